package tray

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getlantern/systray"
	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/app"
	"github.com/petems/macro-tray/internal/binding"
	"github.com/petems/macro-tray/internal/config"
	"github.com/petems/macro-tray/internal/logging"
)

const captureTimeout = 10 * time.Second

// bindingItem is a pooled Bindings submenu entry. systray cannot remove
// menu items, so entries are retitled and hidden instead.
type bindingItem struct {
	item    *systray.MenuItem
	enabled *systray.MenuItem
	copy    *systray.MenuItem
	remove  *systray.MenuItem

	mu sync.Mutex
	id string
}

func (b *bindingItem) bindingID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.id
}

type UI struct {
	app     *app.App
	cfg     *config.Config
	version string
	commit  string
	log     zerolog.Logger

	ready    atomic.Bool
	active   atomic.Bool
	degraded atomic.Bool

	// Menu items
	mStartStop   *systray.MenuItem
	mSummary     *systray.MenuItem
	mBindings    *systray.MenuItem
	mCapture     *systray.MenuItem
	mImport      *systray.MenuItem
	mStartActive *systray.MenuItem

	poolMu sync.Mutex
	pool   []*bindingItem
}

// StatusChanged implements app.StatusUpdater.
func (u *UI) StatusChanged(active bool) {
	u.active.Store(active)
	u.refreshStatus()
}

// BindingTriggered implements app.StatusUpdater.
func (u *UI) BindingTriggered(b binding.Binding) {
	u.log.Debug().Str("id", b.ID).Str("name", b.Name).Msg("Binding triggered")
}

// ListenerDegraded implements app.StatusUpdater.
func (u *UI) ListenerDegraded(err error) {
	u.degraded.Store(err != nil)
	u.refreshStatus()
}

// BindingsChanged implements app.StatusUpdater.
func (u *UI) BindingsChanged(count int) {
	if !u.ready.Load() {
		return
	}
	u.mSummary.SetTitle(summaryLabel(count))
	go u.refreshBindings()
}

func New(application *app.App, cfg *config.Config, version, commit string) *UI {
	log := logging.NewWithLevel(cfg.LogLevel)
	return &UI{
		app:     application,
		cfg:     cfg,
		version: version,
		commit:  commit,
		log:     log,
	}
}

// SetApp sets the app reference (for circular dependency resolution)
func (u *UI) SetApp(application *app.App) {
	u.app = application
}

func (u *UI) Run(ctx context.Context) error {
	systray.Run(u.onReady, u.onExit)
	return nil
}

func (u *UI) onReady() {
	systray.SetTooltip("Global hotkeys and macros")

	u.mStartStop = systray.AddMenuItem(startStopLabel(u.app.Active()), "Enable or pause all hotkeys")
	u.mSummary = systray.AddMenuItem(summaryLabel(len(u.app.Bindings())), "")
	u.mSummary.Disable()
	systray.AddSeparator()

	u.mBindings = systray.AddMenuItem("Hotkeys", "Enable, copy or remove hotkeys")
	u.mCapture = systray.AddMenuItem("Capture Trigger…", "Press a key or button to copy its trigger name")
	u.mImport = systray.AddMenuItem("Import from Clipboard", "Add a hotkey copied as JSON")

	systray.AddSeparator()
	u.mStartActive = systray.AddMenuItemCheckbox("Enable at Launch", "Activate hotkeys when the app starts", u.cfg.StartActive)
	mData := systray.AddMenuItem("Open Hotkeys File", "Edit hotkeys in your editor")
	mLogs := systray.AddMenuItem("Open Logs", "View application logs")
	mAbout := systray.AddMenuItem("About", "About MacroTray")
	mQuit := systray.AddMenuItem("Quit", "Exit application")

	u.ready.Store(true)
	u.active.Store(u.app.Active())
	u.refreshStatus()
	u.refreshBindings()

	// Event loop
	go u.handleEvents(mData, mLogs, mAbout, mQuit)
}

func (u *UI) handleEvents(mData, mLogs, mAbout, mQuit *systray.MenuItem) {
	for {
		select {
		case <-u.mStartStop.ClickedCh:
			u.toggleActive()
		case <-u.mCapture.ClickedCh:
			go u.captureTrigger()
		case <-u.mImport.ClickedCh:
			u.importFromClipboard()
		case <-u.mStartActive.ClickedCh:
			u.toggleStartActive()
		case <-mData.ClickedCh:
			u.openPath(u.cfg.DataFile)
		case <-mLogs.ClickedCh:
			u.openPath(logging.LogPath())
		case <-mAbout.ClickedCh:
			u.showAbout()
		case <-mQuit.ClickedCh:
			systray.Quit()
			return
		}
	}
}

// refreshBindings retitles the pooled submenu entries to match the registry,
// growing the pool when needed.
func (u *UI) refreshBindings() {
	bindings := u.app.Bindings()

	u.poolMu.Lock()
	defer u.poolMu.Unlock()

	for len(u.pool) < len(bindings) {
		u.pool = append(u.pool, u.newBindingItem())
	}
	for i, entry := range u.pool {
		if i >= len(bindings) {
			entry.item.Hide()
			continue
		}
		b := bindings[i]
		entry.mu.Lock()
		entry.id = b.ID
		entry.mu.Unlock()

		entry.item.SetTitle(bindingLabel(b))
		if b.Enabled {
			entry.enabled.Check()
		} else {
			entry.enabled.Uncheck()
		}
		entry.item.Show()
	}
}

func (u *UI) newBindingItem() *bindingItem {
	item := u.mBindings.AddSubMenuItem("", "")
	entry := &bindingItem{
		item:    item,
		enabled: item.AddSubMenuItemCheckbox("Enabled", "Enable or disable this hotkey", false),
		copy:    item.AddSubMenuItem("Copy to Clipboard", "Export this hotkey as JSON"),
		remove:  item.AddSubMenuItem("Remove", "Delete this hotkey"),
	}

	go func() {
		for {
			select {
			case <-entry.enabled.ClickedCh:
				id := entry.bindingID()
				enable := !entry.enabled.Checked()
				if err := u.app.ToggleBinding(id, enable); err != nil {
					u.log.Error().Err(err).Str("id", id).Msg("Failed to toggle hotkey")
				}
			case <-entry.copy.ClickedCh:
				id := entry.bindingID()
				if err := u.app.ExportToClipboard(id); err != nil {
					u.log.Error().Err(err).Str("id", id).Msg("Failed to export hotkey")
				}
			case <-entry.remove.ClickedCh:
				id := entry.bindingID()
				if err := u.app.RemoveBinding(id); err != nil {
					u.log.Error().Err(err).Str("id", id).Msg("Failed to remove hotkey")
				}
			}
		}
	}()
	return entry
}

func (u *UI) toggleActive() {
	if err := u.app.ToggleActive(); err != nil {
		u.log.Error().Err(err).Msg("Failed to start hotkeys")
	}
}

func (u *UI) captureTrigger() {
	u.mCapture.Disable()
	u.mCapture.SetTitle("Press a key or button…")
	defer func() {
		u.mCapture.SetTitle("Capture Trigger…")
		u.mCapture.Enable()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), captureTimeout)
	defer cancel()

	result, err := u.app.Capture(ctx)
	if err != nil {
		u.log.Warn().Err(err).Msg("Trigger capture ended without input")
		return
	}
	if err := u.app.CopyText(result.Combo); err != nil {
		u.log.Error().Err(err).Msg("Failed to copy captured trigger")
		return
	}
	u.log.Info().Str("combo", result.Combo).Str("display", result.Display).Msg("Captured trigger copied to clipboard")
}

func (u *UI) importFromClipboard() {
	b, err := u.app.ImportFromClipboard()
	if err != nil {
		u.log.Error().Err(err).Msg("Failed to import hotkey")
		return
	}
	u.log.Info().Str("id", b.ID).Str("name", b.Name).Msg("Imported hotkey from clipboard")
}

func (u *UI) toggleStartActive() {
	u.cfg.StartActive = !u.cfg.StartActive
	if u.cfg.StartActive {
		u.mStartActive.Check()
		u.log.Info().Msg("Enabled hotkeys at launch")
	} else {
		u.mStartActive.Uncheck()
		u.log.Info().Msg("Disabled hotkeys at launch")
	}
	if err := u.cfg.Save(); err != nil {
		u.log.Error().Err(err).Msg("Failed to save config")
	}
}

func (u *UI) openPath(path string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		cmd = exec.Command("xdg-open", path)
	}
	if err := cmd.Start(); err != nil {
		u.log.Error().Err(err).Str("path", path).Msg("Failed to open file")
		return
	}
	go cmd.Wait()
}

func (u *UI) showAbout() {
	u.log.Info().Str("version", u.version).Str("commit", u.commit).Msg("MacroTray - global hotkeys and macros")
}

func (u *UI) onExit() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := u.app.Shutdown(ctx); err != nil {
		u.log.Error().Err(err).Msg("Shutdown error")
	}
}

func (u *UI) refreshStatus() {
	if !u.ready.Load() {
		return
	}
	active := u.active.Load()
	status := statusFor(active, u.degraded.Load())
	systray.SetTitle(fmt.Sprintf("⌨️ %s", emojiForStatus(status)))
	u.mStartStop.SetTitle(startStopLabel(active))
}

// statusFor folds the engine and listener state into one tray status.
func statusFor(active, degraded bool) string {
	switch {
	case degraded:
		return "degraded"
	case active:
		return "active"
	default:
		return "paused"
	}
}

// emojiForStatus returns the appropriate status emoji
func emojiForStatus(status string) string {
	switch status {
	case "active":
		return "🟢" // Green - hotkeys live
	case "paused":
		return "🟡" // Yellow - only master triggers
	case "degraded":
		return "⚪️" // White - hook unavailable
	default:
		return "🟡"
	}
}

func startStopLabel(active bool) string {
	if active {
		return "Pause Hotkeys"
	}
	return "Enable Hotkeys"
}

func summaryLabel(count int) string {
	if count == 1 {
		return "1 hotkey"
	}
	return fmt.Sprintf("%d hotkeys", count)
}

func bindingLabel(b binding.Binding) string {
	name := b.Name
	if name == "" {
		name = "Untitled"
	}
	if len(b.TriggerKeys) == 0 {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, b.TriggerKeys[0])
}
