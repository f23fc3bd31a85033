package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"teamquest/internal/event"
	"teamquest/internal/model"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Client-local storage keys
const (
	keyAuth         = "auth"
	keyLastActivity = "lastActivity"
)

// Storage is a small client-local key/value store.
type Storage interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// MemoryStorage keeps values in memory.
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string][]byte)}
}

func (m *MemoryStorage) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// FileStorage keeps values in a single JSON file readable only by the owner.
type FileStorage struct {
	path string
	mu   sync.Mutex
}

// NewFileStorage stores values at path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// DefaultSessionPath returns ~/.teamquest/session.json.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".teamquest", "session.json"), nil
}

func (f *FileStorage) Get(key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (f *FileStorage) Set(key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	values[key] = json.RawMessage(value)
	return f.save(values)
}

func (f *FileStorage) Delete(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	values, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return f.save(values)
}

func (f *FileStorage) load() (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		// A corrupt file is treated as empty; the user logs in again
		log.Warn().Err(err).Str("path", f.path).Msg("ignoring unreadable session file")
		return make(map[string]json.RawMessage), nil
	}
	return values, nil
}

func (f *FileStorage) save(values map[string]json.RawMessage) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	data, err := json.Marshal(values)
	if err != nil {
		return err
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

// SessionManager persists the auth record between restarts and enforces a
// sliding inactivity window on it.
type SessionManager struct {
	storage Storage
	clock   clockwork.Clock
	idle    time.Duration
}

// NewSessionManager creates a session manager. A non-positive idle uses the default window.
func NewSessionManager(storage Storage, clock clockwork.Clock, idle time.Duration) *SessionManager {
	if idle <= 0 {
		idle = model.DefaultIdleTimeout
	}
	return &SessionManager{
		storage: storage,
		clock:   clock,
		idle:    idle,
	}
}

// Save stores the session and starts its idle window.
func (m *SessionManager) Save(sess *model.Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	if err := m.storage.Set(keyAuth, data); err != nil {
		return err
	}
	return m.Touch()
}

// Restore loads the stored session. It returns nil with no error when nobody
// is logged in, and ErrSessionExpired (after clearing the record) when the
// idle window has lapsed.
func (m *SessionManager) Restore() (*model.Session, error) {
	data, ok, err := m.storage.Get(keyAuth)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil || !sess.Authenticated {
		return nil, m.Clear()
	}

	if m.expired() {
		if err := m.Clear(); err != nil {
			return nil, err
		}
		return nil, ErrSessionExpired
	}
	return &sess, nil
}

// Check reports ErrSessionExpired, clearing the record, once the window has lapsed.
func (m *SessionManager) Check() error {
	_, err := m.Restore()
	return err
}

// Touch records user activity now.
func (m *SessionManager) Touch() error {
	data, err := json.Marshal(m.clock.Now().UnixMilli())
	if err != nil {
		return err
	}
	return m.storage.Set(keyLastActivity, data)
}

// Clear forgets the session.
func (m *SessionManager) Clear() error {
	if err := m.storage.Delete(keyAuth); err != nil {
		return err
	}
	return m.storage.Delete(keyLastActivity)
}

// Monitor runs Check every interval and calls onExpired once when the window
// lapses. The returned ticker must be stopped on teardown.
func (m *SessionManager) Monitor(interval time.Duration, onExpired func()) *event.Ticker {
	var once sync.Once
	return event.NewTicker(m.clock, interval, func(time.Time) {
		if errors.Is(m.Check(), ErrSessionExpired) {
			once.Do(onExpired)
		}
	})
}

func (m *SessionManager) expired() bool {
	data, ok, err := m.storage.Get(keyLastActivity)
	if err != nil || !ok {
		return true
	}
	var ms int64
	if err := json.Unmarshal(data, &ms); err != nil {
		return true
	}
	last := time.UnixMilli(ms)
	return m.clock.Since(last) > m.idle
}
