package inject

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/micmonay/keybd_event"
	"github.com/rs/zerolog"

	"github.com/petems/macro-tray/internal/combo"
	"github.com/petems/macro-tray/internal/config"
)

// uinputSettle is how long Linux needs before a new uinput device accepts events.
const uinputSettle = 2 * time.Second

type keybdSender struct {
	cfg config.InjectConfig
	log zerolog.Logger

	once    sync.Once
	initErr error

	// mu serializes synthesis; KeyBonding is not safe for concurrent use.
	mu sync.Mutex
	kb keybd_event.KeyBonding
}

// New creates a Sender backed by keybd_event for keys and native calls for
// mouse buttons. The keyboard device is opened on first use.
func New(cfg config.InjectConfig, log zerolog.Logger) Sender {
	return &keybdSender{cfg: cfg, log: log}
}

func (s *keybdSender) init() error {
	s.once.Do(func() {
		kb, err := keybd_event.NewKeyBonding()
		if err != nil {
			s.initErr = fmt.Errorf("failed to open keyboard device: %w", err)
			s.log.Error().Err(err).Msg("Keyboard synthesis unavailable")
			return
		}
		if runtime.GOOS == "linux" {
			time.Sleep(uinputSettle)
		}
		s.kb = kb
		s.log.Debug().Msg("Keyboard synthesis ready")
	})
	return s.initErr
}

func (s *keybdSender) Press(key string, hold time.Duration) error {
	if isMouse(key) {
		return s.MouseClick(key)
	}
	st, err := parseStroke(key)
	if err != nil {
		return err
	}
	if err := s.init(); err != nil {
		return err
	}
	if hold <= 0 {
		hold = time.Duration(s.cfg.PressMS) * time.Millisecond
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.load(st)
	if err := s.kb.Press(); err != nil {
		return fmt.Errorf("press %q: %w", key, err)
	}
	time.Sleep(hold)
	if err := s.kb.Release(); err != nil {
		return fmt.Errorf("release %q: %w", key, err)
	}
	return nil
}

func (s *keybdSender) KeyDown(key string) error {
	return s.half(key, true)
}

func (s *keybdSender) KeyUp(key string) error {
	return s.half(key, false)
}

func (s *keybdSender) half(key string, down bool) error {
	st, err := parseStroke(key)
	if err != nil {
		return err
	}
	if err := s.init(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.load(st)
	if down {
		err = s.kb.Press()
	} else {
		err = s.kb.Release()
	}
	if err != nil {
		return fmt.Errorf("key %q: %w", key, err)
	}
	return nil
}

// load programs the bonding with st. Callers hold s.mu.
func (s *keybdSender) load(st stroke) {
	s.kb.Clear()
	if !st.bare {
		s.kb.SetKeys(st.code)
	}
	s.kb.HasCTRL(st.mods.Has(combo.Ctrl))
	s.kb.HasSHIFT(st.mods.Has(combo.Shift))
	s.kb.HasALT(st.mods.Has(combo.Alt))
}

func (s *keybdSender) MouseClick(button string) error {
	b, err := parseButton(button)
	if err != nil {
		return err
	}
	hold := time.Duration(s.cfg.ClickMS) * time.Millisecond

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := platformClick(b, hold); err != nil {
		return fmt.Errorf("click %q: %w", button, err)
	}
	return nil
}

func isMouse(key string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(key)), combo.MousePrefix)
}
