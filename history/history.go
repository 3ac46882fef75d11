package history

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/afero"

	"voice-assistant/logging"
)

type storeImpl struct {
	fileSys   afero.Fs
	path      string
	maxTurns  int
	maxTokens int

	mu     sync.Mutex
	turns  []Turn
	key    []byte
	closed bool
}

type Config struct {
	FileSys   afero.Fs
	Path      string
	MaxTurns  int
	MaxTokens int
}

func New(cfg *Config) (Interface, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	if cfg.FileSys == nil {
		return nil, fmt.Errorf("filesystem is nil")
	}

	if cfg.Path == "" {
		return nil, fmt.Errorf("history path is empty")
	}

	if cfg.MaxTurns <= 0 || cfg.MaxTokens <= 0 {
		return nil, fmt.Errorf("history bounds must be positive")
	}

	key, err := newKey()
	if err != nil {
		return nil, err
	}

	return &storeImpl{
		fileSys:   cfg.FileSys,
		path:      cfg.Path,
		maxTurns:  cfg.MaxTurns,
		maxTokens: cfg.MaxTokens,
		key:       key,
	}, nil
}

func (s *storeImpl) Append(turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	s.turns = append(s.turns, turn)
	s.trimLocked()
}

// trimLocked drops oldest whole turns until both bounds hold.
func (s *storeImpl) trimLocked() {
	tokens := 0
	for _, t := range s.turns {
		tokens += t.TokenEstimate
	}

	dropped := 0
	for len(s.turns) > 0 && (len(s.turns) > s.maxTurns || tokens > s.maxTokens) {
		tokens -= s.turns[0].TokenEstimate
		s.turns = s.turns[1:]
		dropped++
	}

	if dropped > 0 {
		logging.SecurityEvent("history-trimmed",
			"dropped_turns", dropped,
			"remaining_turns", len(s.turns))
	}
}

func (s *storeImpl) Snapshot() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Turn, len(s.turns))
	copy(out, s.turns)

	return out
}

func (s *storeImpl) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("history store is closed")
	}

	plaintext, err := json.Marshal(s.turns)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	blob, err := encrypt(s.key, plaintext)
	if err != nil {
		return err
	}

	if err := afero.WriteFile(s.fileSys, s.path, blob, 0o600); err != nil {
		return fmt.Errorf("write history: %w", err)
	}

	return nil
}

func (s *storeImpl) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("history store is closed")
	}

	blob, err := afero.ReadFile(s.fileSys, s.path)
	if os.IsNotExist(err) {
		s.turns = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	plaintext, err := decrypt(s.key, blob)
	if err != nil {
		// fail closed: start empty, leave the file for inspection
		logging.SecurityEvent("history-load-failed", "error", err.Error())
		s.turns = nil
		return nil
	}

	var turns []Turn
	if err := json.Unmarshal(plaintext, &turns); err != nil {
		logging.SecurityEvent("history-load-failed", "error", err.Error())
		s.turns = nil
		return nil
	}

	s.turns = turns
	s.trimLocked()

	return nil
}

func (s *storeImpl) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.turns = nil
}

func (s *storeImpl) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	for i := range s.key {
		s.key[i] = 0
	}
	s.key = nil
	s.turns = nil

	return nil
}

// Disabled returns a store that records nothing. Used when history is turned
// off in config so every turn is stateless.
func Disabled() Interface {
	return disabledImpl{}
}

type disabledImpl struct{}

func (disabledImpl) Append(Turn)      {}
func (disabledImpl) Snapshot() []Turn { return nil }
func (disabledImpl) Save() error      { return nil }
func (disabledImpl) Load() error      { return nil }
func (disabledImpl) Clear()           {}
func (disabledImpl) Close() error     { return nil }
