package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pbaille/taxonomist/internal/domain"
)

//go:embed schema.sql
var schema string

// Store is the decision journal: every session run and the choices made in it
type Store struct {
	db    *sql.DB
	clock clockwork.Clock
}

// New opens the journal at the given database path
func New(dbPath string) (*Store, error) {
	return NewWithClock(dbPath, clockwork.NewRealClock())
}

// NewWithClock opens the journal and timestamps entries with clock
func NewWithClock(dbPath string, clock clockwork.Clock) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	// Initialize schema
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db, clock: clock}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInfo describes the session a run is started for
type RunInfo struct {
	LabelSet  string
	Labels    []string
	InputDir  string
	OutputDir string
	Total     int
}

// StartRun creates a new run and returns it
func (s *Store) StartRun(ctx context.Context, info RunInfo) (*domain.Run, error) {
	id := uuid.New().String()
	now := s.clock.Now()

	labels, err := json.Marshal(info.Labels)
	if err != nil {
		return nil, fmt.Errorf("marshal labels: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO runs (id, label_set, labels, input_dir, output_dir, total, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, info.LabelSet, string(labels), info.InputDir, info.OutputDir, info.Total, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}

	return &domain.Run{
		ID:        id,
		LabelSet:  info.LabelSet,
		Labels:    info.Labels,
		InputDir:  info.InputDir,
		OutputDir: info.OutputDir,
		Total:     info.Total,
		StartedAt: now,
	}, nil
}

// Record appends a decision to a run's journal
func (s *Store) Record(ctx context.Context, runID string, position int, action domain.Action, c domain.Choice) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO decisions (run_id, position, action, source_file, dest_file, label, recorded_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		runID, position, string(action), c.SourceFile, c.DestFile, c.Label, s.clock.Now(),
	)
	if err != nil {
		return fmt.Errorf("insert decision: %w", err)
	}
	return nil
}

// GetRun retrieves a run by ID with its decisions
func (s *Store) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx,
		"SELECT id, label_set, labels, input_dir, output_dir, total, started_at FROM runs WHERE id = ?",
		id,
	))
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}

	decisions, err := s.Decisions(ctx, id)
	if err != nil {
		return nil, err
	}
	run.Decisions = decisions

	return run, nil
}

// FindRun resolves a run from a unique ID prefix
func (s *Store) FindRun(ctx context.Context, prefix string) (*domain.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM runs WHERE id LIKE ? ESCAPE '\' ORDER BY started_at DESC LIMIT 2`,
		escapeLike(prefix)+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("find run: %w", err)
	}
	rows.Close()

	switch len(ids) {
	case 0:
		return nil, fmt.Errorf("run not found: %s", prefix)
	case 1:
		return s.GetRun(ctx, ids[0])
	default:
		return nil, fmt.Errorf("ambiguous run prefix: %s", prefix)
	}
}

// ListRuns returns the most recent runs
func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, label_set, labels, input_dir, output_dir, total, started_at FROM runs ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// Decisions returns a run's journal in the order it was written
func (s *Store) Decisions(ctx context.Context, runID string) ([]domain.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, position, action, source_file, dest_file, label, recorded_at
		FROM decisions
		WHERE run_id = ?
		ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get decisions: %w", err)
	}
	defer rows.Close()

	var decisions []domain.Decision
	for rows.Next() {
		var d domain.Decision
		var action string
		if err := rows.Scan(&d.RunID, &d.Position, &action, &d.SourceFile, &d.DestFile, &d.Label, &d.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Action = domain.Action(action)
		decisions = append(decisions, d)
	}

	return decisions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*domain.Run, error) {
	var run domain.Run
	var labels string
	if err := row.Scan(&run.ID, &run.LabelSet, &labels, &run.InputDir, &run.OutputDir, &run.Total, &run.StartedAt); err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(labels), &run.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	return &run, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
