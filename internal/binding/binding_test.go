package binding

import (
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"testing"
)

func sampleBinding() Binding {
	return Binding{
		ID:            "b-1",
		Name:          "Burst",
		TriggerKeys:   []string{"ctrl+f1", "mouse_x1"},
		Actions:       []Action{KeyPress("x", "mouse_left"), Delay(25), KeyHold("w", 300), KeySequence("a", "b")},
		Enabled:       false,
		Repeat:        true,
		RepeatDelayMS: 50,
		BlockInput:    true,
	}
}

func TestBindingRoundTrip(t *testing.T) {
	want := sampleBinding()

	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Binding
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestBindingWireNames(t *testing.T) {
	data, err := json.Marshal(Binding{ID: "x", Name: "n", RepeatDelayMS: 100})
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"id", "name", "trigger_keys", "actions", "enabled", "repeat", "repeat_delay", "block_input"} {
		if _, ok := m[key]; !ok {
			t.Errorf("missing field %q in %s", key, data)
		}
	}
}

func TestBindingDefaults(t *testing.T) {
	var b Binding
	if err := json.Unmarshal([]byte(`{"id":"a","name":"n"}`), &b); err != nil {
		t.Fatal(err)
	}
	if !b.Enabled || b.Repeat || b.BlockInput || b.RepeatDelayMS != DefaultRepeatDelayMS {
		t.Errorf("unexpected defaults: %+v", b)
	}
	if b.TriggerKeys == nil || b.Actions == nil {
		t.Error("slices should default to empty, not nil")
	}
}

func TestBindingLegacyTriggerKey(t *testing.T) {
	var b Binding
	if err := json.Unmarshal([]byte(`{"id":"a","name":"n","trigger_key":"f5"}`), &b); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(b.TriggerKeys, []string{"f5"}) {
		t.Errorf("trigger_keys = %v, want [f5]", b.TriggerKeys)
	}

	if err := json.Unmarshal([]byte(`{"id":"a","name":"n","trigger_key":"f5","trigger_keys":["f6"]}`), &b); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(b.TriggerKeys, []string{"f6"}) {
		t.Errorf("trigger_keys should win over trigger_key, got %v", b.TriggerKeys)
	}
}

func TestBindingRepeatDelayClamped(t *testing.T) {
	var b Binding
	if err := json.Unmarshal([]byte(`{"id":"a","name":"n","repeat_delay":0}`), &b); err != nil {
		t.Fatal(err)
	}
	if b.RepeatDelayMS != 1 {
		t.Errorf("repeat_delay = %d, want 1", b.RepeatDelayMS)
	}
}

func TestBindingInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"missing id", `{"name":"n"}`},
		{"missing name", `{"id":"a"}`},
		{"unknown action", `{"id":"a","name":"n","actions":[{"action_type":"teleport"}]}`},
		{"action without type", `{"id":"a","name":"n","actions":[{"keys":["a"]}]}`},
		{"wrong type", `{"id":"a","name":"n","enabled":"yes"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b Binding
			err := json.Unmarshal([]byte(tt.doc), &b)
			if !errors.Is(err, ErrInvalidBinding) {
				t.Fatalf("err = %v, want ErrInvalidBinding", err)
			}
		})
	}
}

func TestDecodeDocumentSkipsCorruptEntries(t *testing.T) {
	doc := `{
		"bindings": [
			{"id":"a","name":"A","trigger_keys":["f1"],"actions":[{"action_type":"key_press","keys":["x"],"duration":0}]},
			{"id":"b","actions":[]},
			{"id":"c","name":"C","trigger_key":"f2"},
			{"id":"a","name":"dup"}
		],
		"master_trigger_keys": ["f9"]
	}`

	got, skipped, err := DecodeDocument([]byte(doc))
	if err != nil {
		t.Fatalf("DecodeDocument: %v", err)
	}
	if len(got.Bindings) != 2 || got.Bindings[0].ID != "a" || got.Bindings[1].ID != "c" {
		t.Errorf("bindings = %+v", got.Bindings)
	}
	if len(skipped) != 2 || skipped[0].Index != 1 || skipped[1].Index != 3 {
		t.Errorf("skipped = %v", skipped)
	}
	if !reflect.DeepEqual(got.MasterTriggers, []string{"f9"}) {
		t.Errorf("master triggers = %v", got.MasterTriggers)
	}
}

func TestDecodeDocumentRejectsGarbage(t *testing.T) {
	if _, _, err := DecodeDocument([]byte("{not json")); err == nil {
		t.Fatal("expected error")
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	want := Document{Bindings: []Binding{sampleBinding()}, MasterTriggers: []string{"f9", "ctrl+f10"}}
	data, err := EncodeDocument(want)
	if err != nil {
		t.Fatal(err)
	}
	got, skipped, err := DecodeDocument(data)
	if err != nil || len(skipped) != 0 {
		t.Fatalf("decode: %v %v", err, skipped)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestDecodeImport(t *testing.T) {
	t.Run("rejects non hotkey document", func(t *testing.T) {
		_, err := DecodeImport([]byte(`{"id":"a","name":"n"}`))
		if !errors.Is(err, ErrNotHotkeyDocument) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("rejects non object", func(t *testing.T) {
		_, err := DecodeImport([]byte(`[1,2]`))
		if !errors.Is(err, ErrNotHotkeyDocument) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("legacy trigger only", func(t *testing.T) {
		b, err := DecodeImport([]byte(`{"id":"a","name":"n","trigger_key":"f3"}`))
		if err != nil {
			t.Fatal(err)
		}
		if b.ID != "a" || !b.Triggers("f3") {
			t.Errorf("got %+v", b)
		}
	})

	t.Run("missing id gets one", func(t *testing.T) {
		b, err := DecodeImport([]byte(`{"name":"n","actions":[]}`))
		if err != nil {
			t.Fatal(err)
		}
		if b.ID == "" {
			t.Error("expected generated id")
		}
	})
}

func TestRegistryUpsertKeepsPosition(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Binding{ID: "a", Name: "A"})
	r.Upsert(Binding{ID: "b", Name: "B"})
	r.Upsert(Binding{ID: "c", Name: "C"})

	if replaced := r.Upsert(Binding{ID: "b", Name: "B2"}); !replaced {
		t.Error("expected replace")
	}

	snap := r.Snapshot()
	ids := []string{snap[0].ID, snap[1].ID, snap[2].ID}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) || snap[1].Name != "B2" {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestRegistrySnapshotIsStable(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Binding{ID: "a", Name: "A", Enabled: true})
	before := r.Snapshot()

	r.Toggle("a", false)
	r.Upsert(Binding{ID: "z"})
	r.Remove("a")

	if len(before) != 1 || !before[0].Enabled {
		t.Errorf("old snapshot changed: %+v", before)
	}
}

func TestRegistryMutations(t *testing.T) {
	r := NewRegistry()
	r.Upsert(Binding{ID: "a", Enabled: true, TriggerKeys: []string{"f1"}})

	got, ok := r.Get("a")
	if !ok {
		t.Fatal("Get a failed")
	}
	got.TriggerKeys[0] = "mutated"
	if again, _ := r.Get("a"); again.TriggerKeys[0] != "f1" {
		t.Error("Get must return a copy")
	}

	if !r.Toggle("a", false) {
		t.Error("Toggle existing returned false")
	}
	if b, _ := r.Get("a"); b.Enabled {
		t.Error("Toggle did not disable")
	}
	if r.Toggle("missing", true) {
		t.Error("Toggle missing returned true")
	}
	if r.Remove("missing") {
		t.Error("Remove missing returned true")
	}
	if !r.Remove("a") || r.Len() != 0 {
		t.Error("Remove a failed")
	}

	r.Upsert(Binding{ID: "x"})
	r.Clear()
	if r.Len() != 0 {
		t.Error("Clear left bindings")
	}
}

func TestRegistryConcurrentReaders(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for _, b := range r.Snapshot() {
					_ = b.Triggers("f1")
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		id := NewID()
		r.Upsert(Binding{ID: id, TriggerKeys: []string{"f1"}})
		r.Toggle(id, i%2 == 0)
		if i%3 == 0 {
			r.Remove(id)
		}
	}
	close(stop)
	wg.Wait()
}
