package domain

import "time"

// Action is the kind of decision written to the journal
type Action string

const (
	ActionClassify Action = "classify"
	ActionIgnore   Action = "ignore"
	ActionUndo     Action = "undo"
)

// Run is one journaled classification session
type Run struct {
	ID        string     `json:"id" yaml:"id"`
	LabelSet  string     `json:"label_set" yaml:"label_set"`
	Labels    []string   `json:"labels" yaml:"labels"`
	InputDir  string     `json:"input_dir" yaml:"input_dir"`
	OutputDir string     `json:"output_dir" yaml:"output_dir"`
	Total     int        `json:"total" yaml:"total"`
	StartedAt time.Time  `json:"started_at" yaml:"started_at"`
	Decisions []Decision `json:"decisions,omitempty" yaml:"decisions,omitempty"`
}

// Decision is a journal line: a recorded choice or the undo of one
type Decision struct {
	RunID      string    `json:"run_id" yaml:"-"`
	Position   int       `json:"position" yaml:"position"`
	Action     Action    `json:"action" yaml:"action"`
	SourceFile string    `json:"source_file" yaml:"source_file"`
	DestFile   string    `json:"dest_file,omitempty" yaml:"dest_file,omitempty"`
	Label      string    `json:"label,omitempty" yaml:"label,omitempty"`
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}
