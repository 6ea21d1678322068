package app

import (
	"github.com/petems/macro-tray/internal/binding"
	"github.com/petems/macro-tray/internal/engine"
)

// StatusUpdater is an interface for surfacing app state (tray, status
// stream, audible feedback). StatusChanged and BindingTriggered may be
// called from the input hook and must not block.
type StatusUpdater interface {
	engine.Observer
	// ListenerDegraded reports a hook that could not be installed. A nil
	// error means the listener is healthy again.
	ListenerDegraded(err error)
	BindingsChanged(count int)
}

// Fanout forwards every notification to each of its updaters in order.
type Fanout []StatusUpdater

func (f Fanout) StatusChanged(active bool) {
	for _, u := range f {
		u.StatusChanged(active)
	}
}

func (f Fanout) BindingTriggered(b binding.Binding) {
	for _, u := range f {
		u.BindingTriggered(b)
	}
}

func (f Fanout) ListenerDegraded(err error) {
	for _, u := range f {
		u.ListenerDegraded(err)
	}
}

func (f Fanout) BindingsChanged(count int) {
	for _, u := range f {
		u.BindingsChanged(count)
	}
}
