package binding

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Document is the persisted form of the registry and master triggers.
type Document struct {
	Bindings       []Binding `json:"bindings"`
	MasterTriggers []string  `json:"master_trigger_keys"`
}

// DecodeError describes one binding skipped while decoding a document.
type DecodeError struct {
	Index int
	Err   error
}

func (e DecodeError) Error() string {
	return fmt.Sprintf("binding %d: %v", e.Index, e.Err)
}

func (e DecodeError) Unwrap() error { return e.Err }

// DecodeDocument parses a persisted document. Malformed bindings are skipped
// and reported in skipped; only an unreadable document as a whole is an error.
func DecodeDocument(data []byte) (doc Document, skipped []DecodeError, err error) {
	var raw struct {
		Bindings       []json.RawMessage `json:"bindings"`
		MasterTriggers []string          `json:"master_trigger_keys"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Document{}, nil, fmt.Errorf("decode document: %w", err)
	}

	doc.Bindings = make([]Binding, 0, len(raw.Bindings))
	seen := make(map[string]bool, len(raw.Bindings))
	for i, msg := range raw.Bindings {
		var b Binding
		if err := json.Unmarshal(msg, &b); err != nil {
			skipped = append(skipped, DecodeError{Index: i, Err: err})
			continue
		}
		if seen[b.ID] {
			skipped = append(skipped, DecodeError{Index: i, Err: fmt.Errorf("%w: duplicate id %q", ErrInvalidBinding, b.ID)})
			continue
		}
		seen[b.ID] = true
		doc.Bindings = append(doc.Bindings, b)
	}
	doc.MasterTriggers = raw.MasterTriggers
	if doc.MasterTriggers == nil {
		doc.MasterTriggers = []string{}
	}
	return doc, skipped, nil
}

// EncodeDocument renders a document the way it is written to disk.
func EncodeDocument(doc Document) ([]byte, error) {
	if doc.Bindings == nil {
		doc.Bindings = []Binding{}
	}
	if doc.MasterTriggers == nil {
		doc.MasterTriggers = []string{}
	}
	return json.MarshalIndent(doc, "", "    ")
}

// EncodeBinding renders a standalone single-binding document for export.
func EncodeBinding(b Binding) ([]byte, error) {
	return json.MarshalIndent(b, "", "    ")
}

// DecodeImport parses a standalone single-binding document. The document must
// carry at least one of actions, trigger_keys or trigger_key. A missing id is
// filled with a fresh one.
func DecodeImport(data []byte) (Binding, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return Binding{}, fmt.Errorf("%w: %v", ErrNotHotkeyDocument, err)
	}

	_, hasActions := probe["actions"]
	_, hasTriggers := probe["trigger_keys"]
	_, hasTrigger := probe["trigger_key"]
	if !hasActions && !hasTriggers && !hasTrigger {
		return Binding{}, ErrNotHotkeyDocument
	}

	if id, ok := probe["id"]; !ok || emptyJSON(id) {
		probe["id"] = json.RawMessage(fmt.Sprintf("%q", NewID()))
	}
	if _, ok := probe["name"]; !ok {
		probe["name"] = json.RawMessage(`""`)
	}
	patched, err := json.Marshal(probe)
	if err != nil {
		return Binding{}, fmt.Errorf("%w: %v", ErrInvalidBinding, err)
	}

	var b Binding
	if err := json.Unmarshal(patched, &b); err != nil {
		return Binding{}, err
	}
	return b, nil
}

func emptyJSON(v json.RawMessage) bool {
	s := strings.TrimSpace(string(v))
	return s == `""` || s == "null"
}
