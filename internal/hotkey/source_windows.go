//go:build windows

package hotkey

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	hook "github.com/robotn/gohook"
	"github.com/rs/zerolog"
	"golang.org/x/sys/windows"

	"github.com/petems/macro-tray/internal/combo"
)

var (
	user32 = windows.NewLazySystemDLL("user32.dll")

	procSetWindowsHookExW   = user32.NewProc("SetWindowsHookExW")
	procUnhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	procCallNextHookEx      = user32.NewProc("CallNextHookEx")
	procGetMessageW         = user32.NewProc("GetMessageW")
	procPostThreadMessageW  = user32.NewProc("PostThreadMessageW")
	procGetAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
)

const (
	whKeyboardLL = 13

	wmKeyDown    = 0x0100
	wmKeyUp      = 0x0101
	wmSysKeyDown = 0x0104
	wmSysKeyUp   = 0x0105
	wmQuit       = 0x0012

	vkShift   = 0x10
	vkControl = 0x11
	vkMenu    = 0x12
)

// kbdllHookStruct mirrors KBDLLHOOKSTRUCT.
type kbdllHookStruct struct {
	VkCode      uint32
	ScanCode    uint32
	Flags       uint32
	Time        uint32
	DwExtraInfo uintptr
}

// winMsg mirrors MSG; the layout must match the Win32 struct.
type winMsg struct {
	hWnd     uintptr
	message  uint32
	wParam   uintptr
	lParam   uintptr
	time     uint32
	ptX      int32
	ptY      int32
	lPrivate uint32
}

// activeHook is the keyboard hook the shared callback dispatches to.
var activeHook atomic.Pointer[keyboardHook]

var (
	hookProcOnce sync.Once
	hookProc     uintptr
)

func keyboardProc(nCode, wParam, lParam uintptr) uintptr {
	if int32(nCode) >= 0 {
		if h := activeHook.Load(); h != nil && h.handle(wParam, lParam) {
			return 1
		}
	}
	ret, _, _ := procCallNextHookEx.Call(0, nCode, wParam, lParam)
	return ret
}

type keyboardHook struct {
	filter Filter
	queue  *hookQueue
	log    zerolog.Logger
}

// handle runs on the hook thread and reports whether to swallow the event.
func (h *keyboardHook) handle(wParam, lParam uintptr) bool {
	info := (*kbdllHookStruct)(unsafe.Pointer(lParam))
	name, ok := ResolveVK(info.VkCode)
	if !ok {
		return false
	}

	ev := Event{Device: Keyboard, Key: name}
	switch wParam {
	case wmKeyDown, wmSysKeyDown:
		ev.Kind = Press
		ev.Mods = asyncModifiers()
		ev.Consumed = h.filter != nil && h.filter(ev)
	case wmKeyUp, wmSysKeyUp:
		ev.Kind = Release
	default:
		return false
	}

	if !h.queue.offer(ev) {
		h.log.Warn().Str("key", name).Msg("Key press dropped, listener is behind")
	}
	return ev.Consumed
}

// asyncModifiers samples the physical modifier state directly from the OS.
func asyncModifiers() combo.Modifiers {
	var mods combo.Modifiers
	if keyDown(vkControl) {
		mods |= combo.Ctrl
	}
	if keyDown(vkShift) {
		mods |= combo.Shift
	}
	if keyDown(vkMenu) {
		mods |= combo.Alt
	}
	return mods
}

func keyDown(vk uintptr) bool {
	r, _, _ := procGetAsyncKeyState.Call(vk)
	return r&0x8000 != 0
}

type hookReady struct {
	threadID uint32
	err      error
}

// windowsSource suppresses keyboard presses through a low-level keyboard
// hook and observes mouse buttons through gohook.
type windowsSource struct {
	log zerolog.Logger

	mu       sync.Mutex
	threadID uint32
	kbDone   chan struct{}
	mouseEnd chan struct{}
}

// NewSource returns the native input source for this platform.
func NewSource(log zerolog.Logger) Source {
	return &windowsSource{log: log}
}

func (s *windowsSource) Start(filter Filter) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.kbDone != nil {
		return nil, errors.New("windows source already started")
	}
	if err := user32.Load(); err != nil {
		return nil, fmt.Errorf("user32.dll is unavailable: %w", err)
	}
	hookProcOnce.Do(func() {
		hookProc = windows.NewCallback(keyboardProc)
	})

	out := make(chan Event, eventBuffer)
	kbDone := make(chan struct{})
	readyCh := make(chan hookReady, 1)
	go runKeyboardHook(&keyboardHook{filter: filter, queue: newHookQueue(out), log: s.log}, readyCh, kbDone)

	ready := <-readyCh
	if ready.err != nil {
		close(out)
		return nil, ready.err
	}

	raw := hook.Start()
	mouseEnd := make(chan struct{})
	go func() {
		defer close(mouseEnd)
		if err := awaitHookEnabled(raw, hookStartTimeout); err != nil {
			s.log.Warn().Err(err).Msg("Mouse hook unavailable, mouse triggers disabled")
			return
		}
		pumpGohook(raw, out, func(e Event) bool { return e.Device == Mouse }, nil)
	}()

	go func() {
		<-kbDone
		<-mouseEnd
		close(out)
	}()

	s.threadID = ready.threadID
	s.kbDone = kbDone
	s.mouseEnd = mouseEnd
	return out, nil
}

func runKeyboardHook(h *keyboardHook, readyCh chan<- hookReady, done chan<- struct{}) {
	defer close(done)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	activeHook.Store(h)
	defer activeHook.Store(nil)

	handle, _, callErr := procSetWindowsHookExW.Call(whKeyboardLL, hookProc, 0, 0)
	if handle == 0 {
		readyCh <- hookReady{err: fmt.Errorf("SetWindowsHookExW: %w", callErr)}
		return
	}
	defer procUnhookWindowsHookEx.Call(handle)

	readyCh <- hookReady{threadID: windows.GetCurrentThreadId()}

	var m winMsg
	for {
		r, _, _ := procGetMessageW.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		// 0 is WM_QUIT, -1 is an error.
		if int32(r) <= 0 {
			return
		}
	}
}

func (s *windowsSource) Stop() error {
	s.mu.Lock()
	threadID, kbDone, mouseEnd := s.threadID, s.kbDone, s.mouseEnd
	s.threadID, s.kbDone, s.mouseEnd = 0, nil, nil
	s.mu.Unlock()

	if kbDone == nil {
		return nil
	}

	var err error
	if r, _, callErr := procPostThreadMessageW.Call(uintptr(threadID), wmQuit, 0, 0); r == 0 {
		err = fmt.Errorf("PostThreadMessageW: %w", callErr)
	}
	hook.End()

	<-kbDone
	<-mouseEnd
	return err
}

func (s *windowsSource) Suppresses() bool { return true }
