// Package binding holds the hotkey data model, its JSON form and the
// registry the input hook reads from.
package binding

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
)

const (
	DefaultRepeatDelayMS = 100
	minRepeatDelayMS     = 1
)

var (
	// ErrInvalidBinding marks a malformed persisted binding.
	ErrInvalidBinding = errors.New("invalid binding")
	// ErrNotHotkeyDocument rejects an import that carries none of the
	// actions, trigger_keys or trigger_key fields.
	ErrNotHotkeyDocument = errors.New("invalid format: not a hotkey file")
)

// Binding maps trigger combos to an ordered action sequence.
type Binding struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	TriggerKeys   []string `json:"trigger_keys"`
	Actions       []Action `json:"actions"`
	Enabled       bool     `json:"enabled"`
	Repeat        bool     `json:"repeat"`
	RepeatDelayMS int      `json:"repeat_delay"`
	BlockInput    bool     `json:"block_input"`
}

// NewID returns a fresh opaque binding identifier.
func NewID() string {
	return uuid.NewString()
}

// Triggers reports whether c is one of the binding's trigger combos.
func (b *Binding) Triggers(c string) bool {
	return slices.Contains(b.TriggerKeys, c)
}

// Clone returns a deep copy so callers can mutate it freely.
func (b Binding) Clone() Binding {
	b.TriggerKeys = slices.Clone(b.TriggerKeys)
	actions := make([]Action, len(b.Actions))
	for i, a := range b.Actions {
		a.Keys = slices.Clone(a.Keys)
		actions[i] = a
	}
	b.Actions = actions
	return b
}

// bindingJSON is the wire shape, with optional fields as pointers so that
// defaults can be told apart from explicit zero values.
type bindingJSON struct {
	ID            *string  `json:"id"`
	Name          *string  `json:"name"`
	TriggerKeys   []string `json:"trigger_keys"`
	TriggerKey    *string  `json:"trigger_key"`
	Actions       []Action `json:"actions"`
	Enabled       *bool    `json:"enabled"`
	Repeat        bool     `json:"repeat"`
	RepeatDelayMS *int     `json:"repeat_delay"`
	BlockInput    bool     `json:"block_input"`
}

func (b *Binding) UnmarshalJSON(data []byte) error {
	var raw bindingJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		if errors.Is(err, ErrInvalidBinding) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrInvalidBinding, err)
	}
	if raw.ID == nil {
		return fmt.Errorf("%w: missing id", ErrInvalidBinding)
	}
	if raw.Name == nil {
		return fmt.Errorf("%w: missing name", ErrInvalidBinding)
	}

	out := Binding{
		ID:            *raw.ID,
		Name:          *raw.Name,
		TriggerKeys:   raw.TriggerKeys,
		Actions:       raw.Actions,
		Enabled:       true,
		Repeat:        raw.Repeat,
		RepeatDelayMS: DefaultRepeatDelayMS,
		BlockInput:    raw.BlockInput,
	}
	if len(out.TriggerKeys) == 0 && raw.TriggerKey != nil {
		out.TriggerKeys = []string{*raw.TriggerKey}
	}
	if out.TriggerKeys == nil {
		out.TriggerKeys = []string{}
	}
	if out.Actions == nil {
		out.Actions = []Action{}
	}
	if raw.Enabled != nil {
		out.Enabled = *raw.Enabled
	}
	if raw.RepeatDelayMS != nil {
		out.RepeatDelayMS = max(*raw.RepeatDelayMS, minRepeatDelayMS)
	}

	*b = out
	return nil
}

func (b Binding) MarshalJSON() ([]byte, error) {
	type plain Binding
	out := plain(b.Clone())
	if out.TriggerKeys == nil {
		out.TriggerKeys = []string{}
	}
	for i := range out.Actions {
		if out.Actions[i].Keys == nil {
			out.Actions[i].Keys = []string{}
		}
	}
	return json.Marshal(out)
}
