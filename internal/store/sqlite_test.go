package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/taxonomist/internal/domain"
	"github.com/pbaille/taxonomist/internal/session"
)

var start = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(start)
	s, err := NewWithClock(filepath.Join(t.TempDir(), "journal.db"), clock)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, clock
}

func TestStore_StartRunAndGet(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	run, err := s.StartRun(ctx, RunInfo{
		LabelSet:  "animals",
		Labels:    []string{"cat", "dog"},
		InputDir:  "/in",
		OutputDir: "/out",
		Total:     3,
	})
	require.NoError(t, err)
	require.NotEmpty(t, run.ID)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "animals", got.LabelSet)
	assert.Equal(t, []string{"cat", "dog"}, got.Labels)
	assert.Equal(t, "/in", got.InputDir)
	assert.Equal(t, "/out", got.OutputDir)
	assert.Equal(t, 3, got.Total)
	assert.True(t, got.StartedAt.Equal(start), "started_at %v", got.StartedAt)
	assert.Empty(t, got.Decisions)
}

func TestStore_RecordKeepsOrder(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	run, err := s.StartRun(ctx, RunInfo{LabelSet: "animals", Labels: []string{"cat"}, Total: 2})
	require.NoError(t, err)

	cat := domain.Choice{SourceFile: "/in/a.png", DestFile: "/out/cat/a.png", Label: "cat"}
	require.NoError(t, s.Record(ctx, run.ID, 0, domain.ActionClassify, cat))
	clock.Advance(time.Second)
	require.NoError(t, s.Record(ctx, run.ID, 0, domain.ActionUndo, cat))
	clock.Advance(time.Second)
	require.NoError(t, s.Record(ctx, run.ID, 0, domain.ActionIgnore, domain.Choice{SourceFile: "/in/a.png"}))

	decisions, err := s.Decisions(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, decisions, 3)

	assert.Equal(t, domain.ActionClassify, decisions[0].Action)
	assert.Equal(t, "/out/cat/a.png", decisions[0].DestFile)
	assert.Equal(t, domain.ActionUndo, decisions[1].Action)
	assert.Equal(t, domain.ActionIgnore, decisions[2].Action)
	assert.Empty(t, decisions[2].Label)
	assert.True(t, decisions[2].RecordedAt.Equal(start.Add(2*time.Second)))
}

func TestStore_ListRunsNewestFirst(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"first", "second", "third"} {
		run, err := s.StartRun(ctx, RunInfo{LabelSet: name, Labels: []string{"a", "b"}})
		require.NoError(t, err)
		ids = append(ids, run.ID)
		clock.Advance(time.Minute)
	}

	runs, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
}

func TestStore_FindRun(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	run, err := s.StartRun(ctx, RunInfo{LabelSet: "animals", Labels: []string{"a", "b"}})
	require.NoError(t, err)

	got, err := s.FindRun(ctx, run.ID[:8])
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)

	_, err = s.FindRun(ctx, "zzzz")
	assert.ErrorContains(t, err, "run not found")

	_, err = s.FindRun(ctx, "%")
	assert.ErrorContains(t, err, "run not found")
}

func TestStore_FindRunAmbiguous(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := s.StartRun(ctx, RunInfo{LabelSet: "x", Labels: []string{"a", "b"}})
		require.NoError(t, err)
	}

	_, err := s.FindRun(ctx, "")
	assert.ErrorContains(t, err, "ambiguous")
}

func TestStore_FindRunQueryErrorIsNotNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.StartRun(context.Background(), RunInfo{LabelSet: "x", Labels: []string{"a", "b"}})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.FindRun(ctx, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotContains(t, err.Error(), "run not found")
}

func TestRecorder_JournalsSession(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.png"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(in, "b.png"), []byte("y"), 0644))

	run, err := s.StartRun(ctx, RunInfo{LabelSet: "animals", Labels: []string{"cat", "dog"}, InputDir: in, Total: 2})
	require.NoError(t, err)

	sess, err := session.New([]string{"cat", "dog"}, in, t.TempDir(), session.WithHook(NewRecorder(s, run.ID, nil)))
	require.NoError(t, err)

	_, err = sess.Classify("dog")
	require.NoError(t, err)
	_, err = sess.Undo()
	require.NoError(t, err)
	_, err = sess.Ignore()
	require.NoError(t, err)
	_, err = sess.Classify("cat")
	require.NoError(t, err)

	decisions, err := s.Decisions(ctx, run.ID)
	require.NoError(t, err)

	var actions []domain.Action
	var positions []int
	for _, d := range decisions {
		actions = append(actions, d.Action)
		positions = append(positions, d.Position)
	}
	assert.Equal(t, []domain.Action{domain.ActionClassify, domain.ActionUndo, domain.ActionIgnore, domain.ActionClassify}, actions)
	assert.Equal(t, []int{0, 0, 0, 1}, positions)
	assert.Equal(t, "cat", decisions[3].Label)
}

func TestRecorder_FailureDoesNotBreakSession(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Close())

	in := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(in, "a.png"), []byte("x"), 0644))

	sess, err := session.New([]string{"cat"}, in, t.TempDir(), session.WithHook(NewRecorder(s, "missing", nil)))
	require.NoError(t, err)

	_, err = sess.Classify("cat")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.CurrentIndex())
}
