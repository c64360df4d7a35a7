// Package dataset is the versioned in-memory table store.
//
// A Manager keeps one session per key. Each session holds the pristine
// table captured at ingestion, the live current table, an undo stack and a
// redo stack of earlier table values, and an action log with one entry per
// reachable commit. The Manager is the only place the current table of a
// session changes.
//
// Tables are immutable values, so pushing the current table onto a stack
// stores a reference rather than a copy; transforms share unchanged columns
// between versions.
//
// Mutations of one session are serialized by a per-session mutex. Update
// runs read-current, transform and commit under that mutex so concurrent
// transforms on the same session cannot lose each other's result.
// Different sessions never contend.
package dataset

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/logger"
	"github.com/ajitpratap0/refinery/pkg/metrics"
)

// Entry is one action-log record.
type Entry struct {
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
	Action      Action    `json:"operation"`
}

// Metadata is fixed when a session is created.
type Metadata struct {
	Name          string         `json:"dataset_name"`
	OriginalShape columnar.Shape `json:"original_shape"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Stats is a point-in-time view of a session.
type Stats struct {
	DatasetName   string         `json:"dataset_name"`
	OriginalShape columnar.Shape `json:"original_shape"`
	CurrentShape  columnar.Shape `json:"current_shape"`
	CanUndo       bool           `json:"can_undo"`
	CanRedo       bool           `json:"can_redo"`
	UndoDepth     int            `json:"undo_depth"`
	RedoDepth     int            `json:"redo_depth"`
	HistoryLength int            `json:"history_length"`
	CreatedAt     time.Time      `json:"created_at"`
}

// TransformFunc derives the next table from the current one and describes
// the change for the action log.
type TransformFunc func(current *columnar.Table) (next *columnar.Table, description string, err error)

type session struct {
	mu sync.Mutex
	// dropped is set, under mu, once the session is replaced or cleared.
	dropped bool

	meta     Metadata
	original *columnar.Table
	current  *columnar.Table
	undo     []*columnar.Table
	redo     []*columnar.Table
	log      []Entry
	redoLog  []Entry
}

// Manager owns every session. The zero value is not usable; use NewManager.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*session
	logger   *zap.Logger
	now      func() time.Time

	hooksMu   sync.RWMutex
	onDiscard []func(key string)
}

// NewManager creates an empty store. A nil logger uses the global logger.
func NewManager(log *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*session),
		logger:   logger.OrDefault(log).With(zap.String("component", "dataset_manager")),
		now:      time.Now,
	}
}

// NewSessionKey returns a fresh, time-ordered session key.
func NewSessionKey() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// InitializeSession creates or replaces the session for key. table becomes
// both the original and the current table.
func (m *Manager) InitializeSession(key string, table *columnar.Table, name string) error {
	if key == "" {
		return errors.New(errors.ErrorTypeValidation, "session key must not be empty")
	}
	if table == nil {
		return errors.New(errors.ErrorTypeValidation, "table must not be nil").WithDetail("session_key", key)
	}

	s := &session{
		meta: Metadata{
			Name:          name,
			OriginalShape: table.Shape(),
			CreatedAt:     m.now(),
		},
		original: table,
		current:  table,
	}

	replaced, count := m.swap(key, s)

	metrics.ActiveSessions.Set(float64(count))
	m.logger.Info("session initialized",
		zap.String("session_id", key),
		zap.String("dataset", name),
		zap.Int("rows", table.NumRows()),
		zap.Int("columns", table.NumCols()),
		zap.Bool("replaced", replaced))
	return nil
}

// Current returns the live table of a session.
func (m *Manager) Current(key string) (*columnar.Table, error) {
	s, err := m.lock(key)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.current, nil
}

// Original returns the table the session was initialized with.
func (m *Manager) Original(key string) (*columnar.Table, error) {
	s, err := m.get(key)
	if err != nil {
		return nil, err
	}
	return s.original, nil
}

// Commit makes table the current table of a session. The previous current
// table moves onto the undo stack, the redo stack is cleared and the action
// log gains one entry.
func (m *Manager) Commit(key string, table *columnar.Table, description string, action Action) error {
	if table == nil {
		return errors.New(errors.ErrorTypeValidation, "table must not be nil").WithDetail("session_key", key)
	}
	s, err := m.lock(key)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()
	m.commit(key, s, table, description, action)
	return nil
}

// Update atomically transforms and commits the current table of a session.
// If fn fails nothing is committed and its error is returned unchanged.
func (m *Manager) Update(key string, action Action, fn TransformFunc) (*columnar.Table, error) {
	s, err := m.lock(key)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	next, description, err := fn(s.current)
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, errors.New(errors.ErrorTypeInternal, "transform returned no table").
			WithDetail("session_key", key).
			WithDetail("operation", action.String())
	}
	m.commit(key, s, next, description, action)
	return next, nil
}

// Undo restores the table preceding the last commit and returns it.
func (m *Manager) Undo(key string) (*columnar.Table, error) {
	s, err := m.lock(key)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if len(s.undo) == 0 {
		return nil, errors.New(errors.ErrorTypeNothingToUndo, "nothing to undo").WithDetail("session_key", key)
	}

	s.redo = append(s.redo, s.current)
	s.current = s.undo[len(s.undo)-1]
	s.undo = s.undo[:len(s.undo)-1]
	if n := len(s.log); n > 0 {
		s.redoLog = append(s.redoLog, s.log[n-1])
		s.log = s.log[:n-1]
	}

	metrics.ObserveHistory(len(s.undo), len(s.redo))
	m.logger.Info("undo", zap.String("session_id", key), zap.Int("undo_depth", len(s.undo)), zap.Int("redo_depth", len(s.redo)))
	return s.current, nil
}

// Redo re-applies the most recently undone commit and returns the new
// current table.
func (m *Manager) Redo(key string) (*columnar.Table, error) {
	s, err := m.lock(key)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	if len(s.redo) == 0 {
		return nil, errors.New(errors.ErrorTypeNothingToRedo, "nothing to redo").WithDetail("session_key", key)
	}

	s.undo = append(s.undo, s.current)
	s.current = s.redo[len(s.redo)-1]
	s.redo = s.redo[:len(s.redo)-1]
	if n := len(s.redoLog); n > 0 {
		s.log = append(s.log, s.redoLog[n-1])
		s.redoLog = s.redoLog[:n-1]
	}

	metrics.ObserveHistory(len(s.undo), len(s.redo))
	m.logger.Info("redo", zap.String("session_id", key), zap.Int("undo_depth", len(s.undo)), zap.Int("redo_depth", len(s.redo)))
	return s.current, nil
}

// Reset makes the original table current again and clears all history.
func (m *Manager) Reset(key string) error {
	s, err := m.lock(key)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	s.current = s.original
	s.undo, s.redo = nil, nil
	s.log, s.redoLog = nil, nil
	m.discarded(key)

	metrics.ObserveHistory(0, 0)
	m.logger.Info("session reset", zap.String("session_id", key))
	return nil
}

// Stats describes a session.
func (m *Manager) Stats(key string) (Stats, error) {
	s, err := m.lock(key)
	if err != nil {
		return Stats{}, err
	}
	defer s.mu.Unlock()
	return s.stats(), nil
}

// History returns a copy of the action log, oldest first.
func (m *Manager) History(key string) ([]Entry, error) {
	s, err := m.lock(key)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	out := make([]Entry, len(s.log))
	copy(out, s.log)
	return out, nil
}

// Metadata returns the creation metadata of a session.
func (m *Manager) Metadata(key string) (Metadata, error) {
	s, err := m.get(key)
	if err != nil {
		return Metadata{}, err
	}
	return s.meta, nil
}

// ClearSession drops a session. Clearing an unknown key is a no-op.
func (m *Manager) ClearSession(key string) {
	ok, count := m.swap(key, nil)

	if ok {
		metrics.ActiveSessions.Set(float64(count))
		m.logger.Info("session cleared", zap.String("session_id", key))
	}
}

// Has reports whether a session exists.
func (m *Manager) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sessions[key]
	return ok
}

// Keys returns the live session keys in sorted order.
func (m *Manager) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.sessions))
	for k := range m.sessions {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

func (m *Manager) get(key string) (*session, error) {
	m.mu.RLock()
	s, ok := m.sessions[key]
	m.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound(key)
	}
	return s, nil
}

// lock returns the live session for key with its mutex held. A session
// dropped while the caller waited for it is skipped in favour of the one
// registered now.
func (m *Manager) lock(key string) (*session, error) {
	for {
		s, err := m.get(key)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if !s.dropped {
			return s, nil
		}
		s.mu.Unlock()
	}
}

// swap registers next under key, or removes the key when next is nil. The
// previous session is locked, marked dropped and reported to the discard
// hooks before next becomes visible.
func (m *Manager) swap(key string, next *session) (replaced bool, count int) {
	for {
		m.mu.RLock()
		old := m.sessions[key]
		m.mu.RUnlock()
		if old != nil {
			old.mu.Lock()
		}

		m.mu.Lock()
		if m.sessions[key] != old {
			m.mu.Unlock()
			if old != nil {
				old.mu.Unlock()
			}
			continue
		}
		if old != nil {
			old.dropped = true
			m.discarded(key)
		}
		if next != nil {
			m.sessions[key] = next
		} else {
			delete(m.sessions, key)
		}
		count = len(m.sessions)
		m.mu.Unlock()

		if old != nil {
			old.mu.Unlock()
		}
		return old != nil, count
	}
}

// OnDiscard registers fn to run whenever the history of a session is thrown
// away: on Reset, when InitializeSession replaces the session and on
// ClearSession. fn runs while the session is locked, so no mutation of that
// session interleaves with it. fn must not call back into the Manager.
func (m *Manager) OnDiscard(fn func(key string)) {
	m.hooksMu.Lock()
	defer m.hooksMu.Unlock()
	m.onDiscard = append(m.onDiscard, fn)
}

func (m *Manager) discarded(key string) {
	m.hooksMu.RLock()
	hooks := m.onDiscard
	m.hooksMu.RUnlock()
	for _, fn := range hooks {
		fn(key)
	}
}

// commit must be called with s.mu held.
func (m *Manager) commit(key string, s *session, table *columnar.Table, description string, action Action) {
	s.undo = append(s.undo, s.current)
	s.redo, s.redoLog = nil, nil
	s.current = table
	s.log = append(s.log, Entry{Description: description, Timestamp: m.now(), Action: action})

	metrics.ObserveHistory(len(s.undo), 0)
	m.logger.Debug("committed",
		zap.String("session_id", key),
		zap.String("operation", action.String()),
		zap.String("description", description),
		zap.Int("undo_depth", len(s.undo)))
}

func (s *session) stats() Stats {
	return Stats{
		DatasetName:   s.meta.Name,
		OriginalShape: s.original.Shape(),
		CurrentShape:  s.current.Shape(),
		CanUndo:       len(s.undo) > 0,
		CanRedo:       len(s.redo) > 0,
		UndoDepth:     len(s.undo),
		RedoDepth:     len(s.redo),
		HistoryLength: len(s.log),
		CreatedAt:     s.meta.CreatedAt,
	}
}
