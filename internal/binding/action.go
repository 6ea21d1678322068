package binding

import (
	"encoding/json"
	"fmt"
)

// ActionKind identifies what an Action does.
type ActionKind int

const (
	KindKeyPress ActionKind = iota
	KindKeyDown
	KindKeyUp
	// KindKeyHold is reserved; the executor treats it as a no-op.
	KindKeyHold
	// KindKeySequence is reserved; the executor treats it as a no-op.
	KindKeySequence
	KindDelay
)

var kindNames = [...]string{
	KindKeyPress:    "key_press",
	KindKeyDown:     "key_down",
	KindKeyUp:       "key_up",
	KindKeyHold:     "key_hold",
	KindKeySequence: "key_sequence",
	KindDelay:       "delay",
}

func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseActionKind maps a persisted action_type value to its kind.
func ParseActionKind(s string) (ActionKind, error) {
	for i, name := range kindNames {
		if name == s {
			return ActionKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown action_type %q", ErrInvalidBinding, s)
}

func (k ActionKind) MarshalJSON() ([]byte, error) {
	if k < 0 || int(k) >= len(kindNames) {
		return nil, fmt.Errorf("%w: unknown action kind %d", ErrInvalidBinding, int(k))
	}
	return json.Marshal(kindNames[k])
}

func (k *ActionKind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: action_type: %v", ErrInvalidBinding, err)
	}
	parsed, err := ParseActionKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Action is a single step of a binding's action sequence.
// DurationMS is the wait time for Delay and the hold time for KeyHold.
type Action struct {
	Kind       ActionKind `json:"action_type"`
	Keys       []string   `json:"keys"`
	DurationMS int        `json:"duration"`
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var raw struct {
		Kind       *ActionKind `json:"action_type"`
		Keys       []string    `json:"keys"`
		DurationMS int         `json:"duration"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Kind == nil {
		return fmt.Errorf("%w: action without action_type", ErrInvalidBinding)
	}
	if raw.DurationMS < 0 {
		raw.DurationMS = 0
	}
	if raw.Keys == nil {
		raw.Keys = []string{}
	}
	*a = Action{Kind: *raw.Kind, Keys: raw.Keys, DurationMS: raw.DurationMS}
	return nil
}

func KeyPress(keys ...string) Action {
	return Action{Kind: KindKeyPress, Keys: keys}
}

func KeyHold(key string, durationMS int) Action {
	return Action{Kind: KindKeyHold, Keys: []string{key}, DurationMS: durationMS}
}

func KeySequence(keys ...string) Action {
	return Action{Kind: KindKeySequence, Keys: keys}
}

func Delay(durationMS int) Action {
	return Action{Kind: KindDelay, Keys: []string{}, DurationMS: durationMS}
}
