package dataset

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ajitpratap0/refinery/pkg/columnar"
	"github.com/ajitpratap0/refinery/pkg/errors"
	"github.com/ajitpratap0/refinery/pkg/testutil"
)

type ManagerSuite struct {
	suite.Suite
	m   *Manager
	key string
	t0  *columnar.Table
}

func (s *ManagerSuite) SetupTest() {
	s.m = NewManager(testutil.TestLogger(s.T()))
	s.key = NewSessionKey()
	s.t0 = columnar.MustNew(columnar.Numeric("x", 1, 2, 3))
	s.Require().NoError(s.m.InitializeSession(s.key, s.t0, "numbers.csv"))
}

// withRow returns t with v appended to column x.
func withRow(t *columnar.Table, v float64) *columnar.Table {
	c, _ := t.Column("x")
	return columnar.MustNew(columnar.Numeric("x", append(c.NonNullFloats(), v)...))
}

func (s *ManagerSuite) commitN(n int) []*columnar.Table {
	var seen []*columnar.Table
	for i := 0; i < n; i++ {
		next, err := s.m.Update(s.key, ActionCommit, func(cur *columnar.Table) (*columnar.Table, string, error) {
			return withRow(cur, float64(10+i)), fmt.Sprintf("step %d", i), nil
		})
		s.Require().NoError(err)
		seen = append(seen, next)
	}
	return seen
}

func (s *ManagerSuite) TestInitialState() {
	cur, err := s.m.Current(s.key)
	s.Require().NoError(err)
	orig, err := s.m.Original(s.key)
	s.Require().NoError(err)
	s.True(cur.Equal(orig))

	stats, err := s.m.Stats(s.key)
	s.Require().NoError(err)
	s.Equal("numbers.csv", stats.DatasetName)
	s.Equal(columnar.Shape{Rows: 3, Columns: 1}, stats.OriginalShape)
	s.False(stats.CanUndo)
	s.False(stats.CanRedo)
	s.Equal(0, stats.HistoryLength)
}

func (s *ManagerSuite) TestUndoRedoInverseLaw() {
	seen := s.commitN(4)
	history, err := s.m.History(s.key)
	s.Require().NoError(err)
	s.Len(history, 4)

	for i := 0; i < 4; i++ {
		_, err := s.m.Undo(s.key)
		s.Require().NoError(err)
	}
	cur, _ := s.m.Current(s.key)
	s.True(cur.Equal(s.t0))
	_, err = s.m.Undo(s.key)
	s.True(errors.IsNothingToUndo(err))

	for i := 0; i < 4; i++ {
		next, err := s.m.Redo(s.key)
		s.Require().NoError(err)
		s.True(next.Equal(seen[i]), "redo %d", i)
	}
	_, err = s.m.Redo(s.key)
	s.True(errors.IsNothingToRedo(err))

	replayed, err := s.m.History(s.key)
	s.Require().NoError(err)
	s.Equal(history, replayed)
}

func (s *ManagerSuite) TestCommitClearsRedo() {
	s.commitN(2)
	_, err := s.m.Undo(s.key)
	s.Require().NoError(err)

	stats, _ := s.m.Stats(s.key)
	s.True(stats.CanRedo)
	s.Equal(1, stats.HistoryLength)

	s.Require().NoError(s.m.Commit(s.key, withRow(s.t0, 99), "manual", ActionCommit))
	stats, _ = s.m.Stats(s.key)
	s.False(stats.CanRedo)
	s.Equal(2, stats.UndoDepth)
	s.Equal(2, stats.HistoryLength)
}

func (s *ManagerSuite) TestResetIdempotent() {
	s.commitN(3)
	s.Require().NoError(s.m.Reset(s.key))
	first, _ := s.m.Current(s.key)
	s.Require().NoError(s.m.Reset(s.key))
	second, _ := s.m.Current(s.key)

	orig, _ := s.m.Original(s.key)
	s.True(first.Equal(second))
	s.True(second.Equal(orig))

	stats, _ := s.m.Stats(s.key)
	s.False(stats.CanUndo)
	s.False(stats.CanRedo)
	s.Equal(0, stats.HistoryLength)
}

func (s *ManagerSuite) TestFailedUpdateCommitsNothing() {
	_, err := s.m.Update(s.key, ActionScaling, func(*columnar.Table) (*columnar.Table, string, error) {
		return nil, "", errors.InvalidMethod("method", "bogus")
	})
	s.True(errors.IsInvalidMethod(err))

	stats, _ := s.m.Stats(s.key)
	s.False(stats.CanUndo)
	cur, _ := s.m.Current(s.key)
	s.Same(s.t0, cur)
}

func (s *ManagerSuite) TestHistoryEntries() {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	s.m.now = func() time.Time { return fixed }

	_, err := s.m.Update(s.key, ActionOutliers, func(cur *columnar.Table) (*columnar.Table, string, error) {
		return cur, "capped outliers", nil
	})
	s.Require().NoError(err)

	history, _ := s.m.History(s.key)
	s.Equal([]Entry{{Description: "capped outliers", Timestamp: fixed, Action: ActionOutliers}}, history)

	history[0].Description = "mutated"
	again, _ := s.m.History(s.key)
	s.Equal("capped outliers", again[0].Description, "history is a copy")
}

func (s *ManagerSuite) TestReinitializeReplaces() {
	s.commitN(1)
	other := columnar.MustNew(columnar.Categorical("y", "a"))
	s.Require().NoError(s.m.InitializeSession(s.key, other, "other.csv"))

	stats, _ := s.m.Stats(s.key)
	s.Equal("other.csv", stats.DatasetName)
	s.False(stats.CanUndo)
}

func (s *ManagerSuite) TestClearSession() {
	s.m.ClearSession(s.key)
	s.False(s.m.Has(s.key))
	s.m.ClearSession(s.key)

	_, err := s.m.Current(s.key)
	s.True(errors.IsNotFound(err))
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerSuite))
}

func TestManager_NotFound(t *testing.T) {
	m := NewManager(testutil.TestLogger(t))
	tbl := columnar.MustNew(columnar.Numeric("x", 1))
	ops := map[string]func() error{
		"current":  func() error { _, err := m.Current("ghost"); return err },
		"original": func() error { _, err := m.Original("ghost"); return err },
		"commit":   func() error { return m.Commit("ghost", tbl, "c", ActionCommit) },
		"undo":     func() error { _, err := m.Undo("ghost"); return err },
		"redo":     func() error { _, err := m.Redo("ghost"); return err },
		"reset":    func() error { return m.Reset("ghost") },
		"stats":    func() error { _, err := m.Stats("ghost"); return err },
		"history":  func() error { _, err := m.History("ghost"); return err },
		"update": func() error {
			_, err := m.Update("ghost", ActionCommit, func(c *columnar.Table) (*columnar.Table, string, error) { return c, "", nil })
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			require.Error(t, err)
			assert.True(t, errors.IsNotFound(err))
		})
	}
}

func TestManager_InitializeValidation(t *testing.T) {
	m := NewManager(testutil.TestLogger(t))
	err := m.InitializeSession("", columnar.MustNew(), "x")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	err = m.InitializeSession("k", nil, "x")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestManager_ConcurrentUpdatesDoNotLoseCommits(t *testing.T) {
	m := NewManager(testutil.TestLogger(t))
	key := NewSessionKey()
	require.NoError(t, m.InitializeSession(key, columnar.MustNew(columnar.Numeric("x")), "empty"))

	const writers = 16
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(v float64) {
			defer wg.Done()
			_, err := m.Update(key, ActionCommit, func(cur *columnar.Table) (*columnar.Table, string, error) {
				return withRow(cur, v), "append", nil
			})
			assert.NoError(t, err)
		}(float64(i))
	}
	wg.Wait()

	cur, err := m.Current(key)
	require.NoError(t, err)
	assert.Equal(t, writers, cur.NumRows())

	stats, _ := m.Stats(key)
	assert.Equal(t, writers, stats.UndoDepth)
}

func TestManager_DiscardHooks(t *testing.T) {
	m := NewManager(testutil.TestLogger(t))
	var discarded []string
	m.OnDiscard(func(key string) { discarded = append(discarded, key) })

	key := NewSessionKey()
	require.NoError(t, m.InitializeSession(key, columnar.MustNew(columnar.Numeric("x", 1)), "first"))
	assert.Empty(t, discarded, "a new session discards nothing")

	require.NoError(t, m.Reset(key))
	require.NoError(t, m.InitializeSession(key, columnar.MustNew(columnar.Numeric("x", 2)), "second"))
	m.ClearSession(key)
	m.ClearSession("ghost")

	assert.Equal(t, []string{key, key, key}, discarded)
}

func TestManager_ReplacementWaitsForInFlightUpdate(t *testing.T) {
	m := NewManager(testutil.TestLogger(t))
	var discards atomic.Int32
	m.OnDiscard(func(string) { discards.Add(1) })

	key := NewSessionKey()
	require.NoError(t, m.InitializeSession(key, columnar.MustNew(columnar.Numeric("x", 1)), "old"))
	m.mu.RLock()
	old := m.sessions[key]
	m.mu.RUnlock()

	entered, release := make(chan struct{}), make(chan struct{})
	go func() {
		_, err := m.Update(key, ActionCommit, func(cur *columnar.Table) (*columnar.Table, string, error) {
			close(entered)
			<-release
			return withRow(cur, 2), "late", nil
		})
		assert.NoError(t, err)
	}()
	<-entered

	replacement := columnar.MustNew(columnar.Numeric("x", 10))
	go func() {
		assert.NoError(t, m.InitializeSession(key, replacement, "new"))
	}()
	close(release)

	testutil.AssertEventually(t, func() bool {
		cur, err := m.Current(key)
		return err == nil && cur == replacement
	}, time.Second, "replacement never became current")

	stats, err := m.Stats(key)
	require.NoError(t, err)
	assert.Zero(t, stats.HistoryLength, "the late commit landed on the replaced session")
	assert.Equal(t, int32(1), discards.Load())

	old.mu.Lock()
	assert.True(t, old.dropped)
	assert.Len(t, old.log, 1)
	old.mu.Unlock()

	s, err := m.lock(key)
	require.NoError(t, err)
	assert.NotSame(t, old, s)
	s.mu.Unlock()
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	m := NewManager(testutil.TestLogger(t))
	a, b := NewSessionKey(), NewSessionKey()
	require.NoError(t, m.InitializeSession(a, columnar.MustNew(columnar.Numeric("x", 1)), "a"))
	require.NoError(t, m.InitializeSession(b, columnar.MustNew(columnar.Numeric("x", 1)), "b"))

	require.NoError(t, m.Commit(a, columnar.MustNew(columnar.Numeric("x", 1, 2)), "grow", ActionCommit))

	sb, _ := m.Stats(b)
	assert.False(t, sb.CanUndo)
	assert.ElementsMatch(t, []string{a, b}, m.Keys())
}

func TestNewSessionKey(t *testing.T) {
	k := NewSessionKey()
	id, err := uuid.Parse(k)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.NotEqual(t, k, NewSessionKey())
}
