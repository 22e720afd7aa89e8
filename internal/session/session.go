// Package session implements a classification run: it walks the images of an
// input directory in order, copies each one into the output subdirectory of the
// label it is given, and can revert the most recent decision.
//
// The cursor is the number of recorded choices. A Session serialises its own
// mutating calls; two sessions writing to the same output directory are not
// coordinated beyond the exclusive create used when copying.
package session

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/pbaille/taxonomist/internal/domain"
)

// Extensions are the image extensions scanned for, in scan order
var Extensions = []string{"gif", "jpg", "jpeg", "png"}

// Hook observes the decisions of a session after they took effect
type Hook interface {
	ChoiceRecorded(index int, c domain.Choice)
	ChoiceUndone(index int, c domain.Choice)
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger used for placement and undo events
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithHook registers a hook notified of every recorded and undone choice
func WithHook(h Hook) Option {
	return func(s *Session) {
		s.hook = h
	}
}

// Session is one classification run over an input directory
type Session struct {
	mu sync.Mutex

	labels     []string
	inputDir   string
	outputDir  string
	inputFiles []string
	choices    []domain.Choice

	// suffix is the last disambiguator handed out for a taken destination name
	suffix int

	logger *slog.Logger
	hook   Hook
}

// New creates the output subdirectory of every label, scans inputDir for images
// and returns a session positioned on the first one.
func New(labels []string, inputDir, outputDir string, opts ...Option) (*Session, error) {
	if len(labels) == 0 {
		return nil, domain.ErrNoLabels
	}

	s := &Session{
		labels:    slices.Clone(labels),
		inputDir:  inputDir,
		outputDir: outputDir,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.createLabelDirs(); err != nil {
		return nil, err
	}

	files, err := ScanImages(inputDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, domain.ErrNoInputImages
	}
	s.inputFiles = files

	s.logger.Info("session started",
		"input_dir", inputDir,
		"output_dir", outputDir,
		"images", len(files),
		"labels", len(labels),
	)
	return s, nil
}

// SetHook replaces the hook of a running session
func (s *Session) SetHook(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hook = h
}

// Sanitize strips every character outside [A-Za-z0-9] from a label
func Sanitize(label string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, label)
}

func (s *Session) labelDir(label string) string {
	return filepath.Join(s.outputDir, Sanitize(label))
}

func (s *Session) createLabelDirs() error {
	seen := make(map[string]string, len(s.labels))
	for _, label := range s.labels {
		name := Sanitize(label)
		if other, ok := seen[name]; ok && other != label {
			s.logger.Warn("labels share an output directory",
				"label", label, "other", other, "dir", name)
		}
		seen[name] = label

		dir := s.labelDir(label)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return &domain.IOError{Op: "create label dir", Path: dir, Err: err}
		}
	}
	return nil
}

// ScanImages lists the images directly inside dir, grouped by extension in
// Extensions order and sorted by name within each group. Hidden files are skipped.
func ScanImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &domain.IOError{Op: "scan input dir", Path: dir, Err: err}
	}

	var files []string
	for _, ext := range Extensions {
		suffix := "." + ext
		for _, e := range entries {
			if strings.HasPrefix(e.Name(), ".") || !strings.HasSuffix(e.Name(), suffix) || !isFile(dir, e) {
				continue
			}
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

func isFile(dir string, e fs.DirEntry) bool {
	if e.Type()&fs.ModeSymlink != 0 {
		info, err := os.Stat(filepath.Join(dir, e.Name()))
		return err == nil && !info.IsDir()
	}
	return !e.IsDir()
}

// Labels returns a copy of the session's labels
func (s *Session) Labels() []string {
	return slices.Clone(s.labels)
}

// InputFiles returns a copy of the scanned image paths
func (s *Session) InputFiles() []string {
	return slices.Clone(s.inputFiles)
}

// InputDir returns the directory the images were scanned from
func (s *Session) InputDir() string { return s.inputDir }

// OutputDir returns the directory holding one subdirectory per label
func (s *Session) OutputDir() string { return s.outputDir }

// Total returns the number of images in the session
func (s *Session) Total() int {
	return len(s.inputFiles)
}

// Choices returns a copy of the recorded choices, oldest first
func (s *Session) Choices() []domain.Choice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.choices)
}

// LastChoice returns the most recent choice, if any
func (s *Session) LastChoice() (domain.Choice, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.choices) == 0 {
		return domain.Choice{}, false
	}
	return s.choices[len(s.choices)-1], true
}

// CurrentIndex returns the position of the image awaiting a decision
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.choices)
}

// HasImagesRemaining reports whether an image still awaits a decision
func (s *Session) HasImagesRemaining() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasRemaining()
}

// CurrentImagePath returns the image awaiting a decision; false once exhausted
func (s *Session) CurrentImagePath() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasRemaining() {
		return "", false
	}
	return s.inputFiles[len(s.choices)], true
}

// State is a consistent view of the session at one moment
type State struct {
	Index      int
	Total      int
	Current    string
	HasCurrent bool
	LastChoice *domain.Choice
}

// Snapshot returns the cursor, current image and last choice under one lock
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State{Index: len(s.choices), Total: len(s.inputFiles)}
	if s.hasRemaining() {
		st.Current = s.inputFiles[len(s.choices)]
		st.HasCurrent = true
	}
	if n := len(s.choices); n > 0 {
		last := s.choices[n-1]
		st.LastChoice = &last
	}
	return st
}

func (s *Session) hasRemaining() bool {
	return len(s.choices) < len(s.inputFiles)
}

// Ignore skips the current image without placing it
func (s *Session) Ignore() (domain.Choice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasRemaining() {
		return domain.Choice{}, domain.ErrNoImagesRemaining
	}

	choice := domain.Choice{SourceFile: s.inputFiles[len(s.choices)]}
	s.record(choice)
	s.logger.Debug("image ignored", "source", choice.SourceFile)
	return choice, nil
}

// Classify copies the current image into the output subdirectory of label.
// A failed copy leaves the session unchanged.
func (s *Session) Classify(label string) (domain.Choice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasRemaining() {
		return domain.Choice{}, domain.ErrNoImagesRemaining
	}
	if !slices.Contains(s.labels, label) {
		return domain.Choice{}, &domain.UnknownLabelError{Label: label}
	}

	source := s.inputFiles[len(s.choices)]
	dest, err := s.place(source, s.labelDir(label))
	if err != nil {
		return domain.Choice{}, err
	}

	choice := domain.Choice{SourceFile: source, DestFile: dest, Label: label}
	s.record(choice)
	s.logger.Debug("image classified", "source", source, "dest", dest, "label", label)
	return choice, nil
}

func (s *Session) record(choice domain.Choice) {
	s.choices = append(s.choices, choice)
	if s.hook != nil {
		s.hook.ChoiceRecorded(len(s.choices)-1, choice)
	}
}

// place copies source into dir under its own name, or under
// <stem>_<n><ext> when that name is already taken.
func (s *Session) place(source, dir string) (string, error) {
	ext := filepath.Ext(source)
	base := filepath.Join(dir, strings.TrimSuffix(filepath.Base(source), ext))

	dest := base + ext
	for {
		err := copyFile(source, dest)
		if err == nil {
			return dest, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		s.suffix++
		dest = fmt.Sprintf("%s_%d%s", base, s.suffix, ext)
	}
}

// copyFile copies src to a dest that must not exist yet
func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return &domain.IOError{Op: "open source", Path: src, Err: err}
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return &domain.IOError{Op: "create destination", Path: dest, Err: err}
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dest)
		return &domain.IOError{Op: "copy", Path: dest, Err: err}
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return &domain.IOError{Op: "copy", Path: dest, Err: err}
	}
	return nil
}

// Undo reverts the most recent choice, deleting the copy it placed.
// If the copy cannot be deleted the choice stays recorded. A copy that is
// already gone from disk is not an error: the choice is undone and a warning logged.
func (s *Session) Undo() (domain.Choice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.choices) == 0 {
		return domain.Choice{}, domain.ErrNoChoicesToUndo
	}

	index := len(s.choices) - 1
	last := s.choices[index]

	if !last.Ignored() {
		if err := os.Remove(last.DestFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return domain.Choice{}, &domain.IOError{Op: "delete", Path: last.DestFile, Err: err}
			}
			s.logger.Warn("classified copy already gone", "dest", last.DestFile)
		}
	}

	s.choices = s.choices[:index]
	if s.hook != nil {
		s.hook.ChoiceUndone(index, last)
	}
	s.logger.Debug("choice undone", "source", last.SourceFile, "dest", last.DestFile)
	return last, nil
}
