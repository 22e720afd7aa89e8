package store

import (
	"context"
	"log/slog"

	"github.com/pbaille/taxonomist/internal/domain"
)

// Recorder writes the choices of one session into a run's journal.
// It satisfies session.Hook. Journal failures are logged and do not affect
// the session, which stays the source of truth for its own state.
type Recorder struct {
	store  *Store
	runID  string
	logger *slog.Logger
}

// NewRecorder returns a Recorder appending to the given run
func NewRecorder(s *Store, runID string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: s, runID: runID, logger: logger}
}

// ChoiceRecorded journals a classify or ignore decision
func (r *Recorder) ChoiceRecorded(index int, c domain.Choice) {
	action := domain.ActionClassify
	if c.Ignored() {
		action = domain.ActionIgnore
	}
	r.write(index, action, c)
}

// ChoiceUndone journals the undo of a decision
func (r *Recorder) ChoiceUndone(index int, c domain.Choice) {
	r.write(index, domain.ActionUndo, c)
}

func (r *Recorder) write(index int, action domain.Action, c domain.Choice) {
	if err := r.store.Record(context.Background(), r.runID, index, action, c); err != nil {
		r.logger.Warn("failed to journal decision",
			"run_id", r.runID,
			"action", action,
			"source", c.SourceFile,
			"error", err,
		)
	}
}
