package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/binding"
	"github.com/petems/macro-tray/internal/capture"
	"github.com/petems/macro-tray/internal/combo"
	"github.com/petems/macro-tray/internal/config"
	"github.com/petems/macro-tray/internal/engine"
	"github.com/petems/macro-tray/internal/hotkey"
	"github.com/petems/macro-tray/internal/inject"
	"github.com/petems/macro-tray/internal/store"
)

// ErrBindingNotFound is returned for an id the registry does not hold.
var ErrBindingNotFound = errors.New("binding not found")

const importedSuffix = " (Imported)"

type Config struct {
	Source        hotkey.Source
	Sender        inject.Sender
	Store         *store.Store
	Config        *config.Config
	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
	Clipboard     Clipboard     // Optional - defaults to the system clipboard
	// Preflight runs before the input hook is installed, e.g. an OS
	// permission check. Optional.
	Preflight func() error
}

// App owns the hotkey service: registry, tracker, dispatcher, executor and
// listener, plus persistence of every change.
type App struct {
	cfg       *config.Config
	log       zerolog.Logger
	status    StatusUpdater
	store     *store.Store
	clip      Clipboard
	preflight func() error

	registry *binding.Registry
	tracker  *combo.Tracker
	executor *engine.Executor
	engine   *engine.Engine
	listener *hotkey.Listener

	mu      sync.Mutex
	watcher *store.Watcher
}

func New(cfg Config) *App {
	status := cfg.StatusUpdater
	if status == nil {
		status = Fanout(nil)
	}
	clip := cfg.Clipboard
	if clip == nil {
		clip = systemClipboard{}
	}
	settings := cfg.Config
	if settings == nil {
		settings = config.Default()
	}

	a := &App{
		cfg:       settings,
		log:       cfg.Logger,
		status:    status,
		store:     cfg.Store,
		clip:      clip,
		preflight: cfg.Preflight,
		registry:  binding.NewRegistry(),
		tracker:   combo.NewTracker(),
	}

	a.executor = engine.NewExecutor(engine.ExecutorConfig{
		Sender:  cfg.Sender,
		Tracker: a.tracker,
		Logger:  cfg.Logger,
	})
	a.engine = engine.New(engine.Config{
		Registry: a.registry,
		Tracker:  a.tracker,
		Runner:   a.executor,
		Observer: status,
		Logger:   cfg.Logger,
	})
	a.listener = hotkey.NewListener(hotkey.ListenerConfig{
		Source:       cfg.Source,
		Filter:       a.engine.Filter,
		Handler:      a.engine.HandleEvent,
		Logger:       cfg.Logger,
		RestartPause: time.Duration(settings.Listener.RestartPauseMS) * time.Millisecond,
	})
	return a
}

// Load replaces the registry and master triggers with the persisted document.
func (a *App) Load() error {
	doc, err := a.store.Load()
	if err != nil {
		a.log.Error().Err(err).Str("path", a.store.Path()).Msg("Failed to load hotkeys")
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.applyLocked(doc)
	return nil
}

func (a *App) applyLocked(doc binding.Document) {
	a.executor.StopAll()
	a.registry.Replace(doc.Bindings)
	a.engine.SetMasterTriggers(doc.MasterTriggers)
	a.status.BindingsChanged(a.registry.Len())
}

// Watch reloads the document whenever it changes on disk.
func (a *App) Watch() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.watcher != nil {
		return nil
	}
	w, err := a.store.Watch(a.reload, 0)
	if err != nil {
		return fmt.Errorf("watch hotkeys: %w", err)
	}
	a.watcher = w
	return nil
}

func (a *App) reload(doc binding.Document) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.applyLocked(doc)
	a.restartLocked()
}

// Listen installs the input hook without activating bindings, so master
// triggers work while paused.
func (a *App) Listen() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.listenLocked()
}

func (a *App) listenLocked() error {
	if a.listener.Running() {
		return nil
	}
	if a.preflight != nil {
		if err := a.preflight(); err != nil {
			err = fmt.Errorf("%w: %v", hotkey.ErrHookFailed, err)
			a.log.Error().Err(err).Msg("Hotkeys unavailable")
			a.status.ListenerDegraded(err)
			return err
		}
	}
	if err := a.listener.Start(); err != nil {
		a.status.ListenerDegraded(err)
		return err
	}
	a.status.ListenerDegraded(nil)
	return nil
}

func (a *App) restartLocked() {
	if !a.listener.Running() {
		return
	}
	if err := a.listener.Restart(); err != nil {
		a.status.ListenerDegraded(err)
		return
	}
	a.status.ListenerDegraded(nil)
}

// Start ensures the listener is running and activates bindings. Starting an
// active app is a no-op.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.listenLocked(); err != nil {
		return err
	}
	if a.engine.Active() {
		return nil
	}
	a.tracker.Reset()
	a.engine.SetActive(true)
	a.log.Info().Int("bindings", a.registry.Len()).Msg("Hotkeys started")
	return nil
}

// Stop deactivates bindings and ends every repeat loop. The listener keeps
// running so master triggers still work.
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

func (a *App) stopLocked() {
	if a.engine.SetActive(false) {
		a.log.Info().Msg("Hotkeys stopped")
	}
	a.executor.StopAll()
}

// ToggleActive starts a stopped app and stops a running one.
func (a *App) ToggleActive() error {
	if a.Active() {
		a.Stop()
		return nil
	}
	return a.Start()
}

func (a *App) Active() bool {
	return a.engine.Active()
}

func (a *App) ListenerRunning() bool {
	return a.listener.Running()
}

// SuppressesInput reports whether blocking bindings actually withhold keys
// from other applications on this platform.
func (a *App) SuppressesInput() bool {
	return a.listener.Suppresses()
}

func (a *App) MasterTriggers() []string {
	return a.engine.MasterTriggers()
}

// SetMasterTriggers replaces the master triggers, reinstalls the hook and
// persists the change.
func (a *App) SetMasterTriggers(keys []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.engine.SetMasterTriggers(keys)
	a.restartLocked()
	a.log.Info().Strs("keys", a.engine.MasterTriggers()).Msg("Master triggers updated")
	return a.saveLocked()
}

// Bindings returns the registry in iteration order.
func (a *App) Bindings() []binding.Binding {
	snapshot := a.registry.Snapshot()
	out := make([]binding.Binding, len(snapshot))
	for i, b := range snapshot {
		out[i] = b.Clone()
	}
	return out
}

func (a *App) GetBinding(id string) (binding.Binding, bool) {
	return a.registry.Get(id)
}

// AddBinding stores b under a fresh id, enabled, and returns the id.
func (a *App) AddBinding(b binding.Binding) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b = normalize(b)
	b.ID = binding.NewID()
	b.Enabled = true
	a.registry.Upsert(b)
	a.log.Info().Str("id", b.ID).Str("name", b.Name).Msg("Binding added")

	if err := a.saveLocked(); err != nil {
		return b.ID, err
	}
	return b.ID, nil
}

// UpdateBinding replaces the binding with id in place and re-enables it.
func (a *App) UpdateBinding(id string, b binding.Binding) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.registry.Get(id); !ok {
		return fmt.Errorf("%w: %s", ErrBindingNotFound, id)
	}
	a.executor.Stop(id)

	b = normalize(b)
	b.ID = id
	b.Enabled = true
	a.registry.Upsert(b)
	a.log.Info().Str("id", id).Str("name", b.Name).Msg("Binding updated")
	return a.saveLocked()
}

func (a *App) RemoveBinding(id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.executor.Stop(id)
	if !a.registry.Remove(id) {
		return fmt.Errorf("%w: %s", ErrBindingNotFound, id)
	}
	a.log.Info().Str("id", id).Msg("Binding removed")
	return a.saveLocked()
}

func (a *App) ToggleBinding(id string, enabled bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.registry.Toggle(id, enabled) {
		return fmt.Errorf("%w: %s", ErrBindingNotFound, id)
	}
	if !enabled {
		a.executor.Stop(id)
	}
	a.log.Info().Str("id", id).Bool("enabled", enabled).Msg("Binding toggled")
	return a.saveLocked()
}

// ExportBinding writes the binding with id to path as a standalone document.
func (a *App) ExportBinding(id, path string) error {
	data, err := a.exportData(id)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("export binding: %w", err)
	}
	a.log.Info().Str("id", id).Str("path", path).Msg("Binding exported")
	return nil
}

// ImportBinding adds the standalone binding document at path.
func (a *App) ImportBinding(path string) (binding.Binding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return binding.Binding{}, fmt.Errorf("import binding: %w", err)
	}
	return a.importData(data)
}

func (a *App) ExportToClipboard(id string) error {
	data, err := a.exportData(id)
	if err != nil {
		return err
	}
	if err := a.clip.WriteAll(string(data)); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	a.log.Info().Str("id", id).Msg("Binding copied to clipboard")
	return nil
}

func (a *App) ImportFromClipboard() (binding.Binding, error) {
	text, err := a.clip.ReadAll()
	if err != nil {
		return binding.Binding{}, fmt.Errorf("read clipboard: %w", err)
	}
	return a.importData([]byte(text))
}

// CopyText places text on the clipboard, e.g. a captured trigger name.
func (a *App) CopyText(text string) error {
	if err := a.clip.WriteAll(text); err != nil {
		return fmt.Errorf("write clipboard: %w", err)
	}
	return nil
}

func (a *App) exportData(id string) ([]byte, error) {
	b, ok := a.registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBindingNotFound, id)
	}
	return binding.EncodeBinding(b)
}

// importData validates before touching the registry. A colliding id gets a
// fresh one and the name is marked as imported.
func (a *App) importData(data []byte) (binding.Binding, error) {
	b, err := binding.DecodeImport(data)
	if err != nil {
		a.log.Warn().Err(err).Msg("Import rejected")
		return binding.Binding{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.registry.Get(b.ID); exists {
		b.ID = binding.NewID()
		b.Name += importedSuffix
	}
	a.registry.Upsert(b)
	a.log.Info().Str("id", b.ID).Str("name", b.Name).Msg("Binding imported")

	if err := a.saveLocked(); err != nil {
		return b, err
	}
	return b, nil
}

// Capture returns the next physical key or button press, installing the
// hook if needed. Presses seen by the capture are not dispatched.
func (a *App) Capture(ctx context.Context) (capture.Result, error) {
	if err := a.Listen(); err != nil {
		return capture.Result{}, err
	}
	session := capture.NewSession()
	remove := a.engine.SetTap(session)
	defer remove()
	return session.Wait(ctx)
}

func (a *App) saveLocked() error {
	a.status.BindingsChanged(a.registry.Len())
	doc := binding.Document{
		Bindings:       a.registry.Snapshot(),
		MasterTriggers: a.engine.MasterTriggers(),
	}
	if err := a.store.Save(doc); err != nil {
		a.log.Error().Err(err).Msg("Failed to save hotkeys")
		return err
	}
	return nil
}

func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()

	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
		a.watcher = nil
	}
	errs = append(errs, a.listener.Stop())
	a.engine.Close()

	done := make(chan struct{})
	go func() {
		a.executor.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}

// normalize fills the defaults a hand-built binding may lack.
func normalize(b binding.Binding) binding.Binding {
	b = b.Clone()
	if b.TriggerKeys == nil {
		b.TriggerKeys = []string{}
	}
	if b.Actions == nil {
		b.Actions = []binding.Action{}
	}
	if b.RepeatDelayMS < 1 {
		b.RepeatDelayMS = binding.DefaultRepeatDelayMS
	}
	return b
}
