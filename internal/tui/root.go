package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pbaille/taxonomist/internal/domain"
	"github.com/pbaille/taxonomist/internal/imageinfo"
	"github.com/pbaille/taxonomist/internal/labels"
	"github.com/pbaille/taxonomist/internal/session"
)

// ViewMode represents the current view
type ViewMode int

const (
	ViewModeLoading   ViewMode = iota // Scanning the labels directory
	ViewModeNoLabels                  // No usable label set, waiting for a rescan
	ViewModeSelection                 // Label set selection
	ViewModeClassify                  // Classifying images
)

// StartFunc creates the session for the chosen label set
type StartFunc func(set domain.LabelSet, inputDir, outputDir string) (*session.Session, error)

// Params are the choices made before the UI starts
type Params struct {
	LabelsDir string
	InputDir  string
	OutputDir string
	// SetName skips the selection view when set
	SetName string
	Start   StartFunc
}

// Messages
type catalogLoadedMsg struct {
	catalog domain.Catalog
	err     error
}

type sessionStartedMsg struct {
	set  domain.LabelSet
	sess *session.Session
	err  error
}

type actionDoneMsg struct {
	err error
}

type imageInfoMsg struct {
	path string
	info imageinfo.Info
	err  error
}

// Model is the root Bubble Tea model
type Model struct {
	// Terminal dimensions
	width  int
	height int

	viewMode ViewMode
	params   Params

	// Label set selection
	catalog  domain.Catalog
	setNames []string
	setIdx   int

	// Classification
	set      domain.LabelSet
	sess     *session.Session
	labelIdx int
	info     *imageinfo.Info

	// busy is set while a session operation is in flight; input is ignored until it returns
	busy bool
	// err is shown until the next key press
	err error

	keys KeyMap
	help help.Model
}

// NewRootModel creates the root model
func NewRootModel(params Params) Model {
	if params.Start == nil {
		params.Start = func(set domain.LabelSet, inputDir, outputDir string) (*session.Session, error) {
			return session.New(set.Labels, inputDir, outputDir)
		}
	}
	return Model{
		viewMode: ViewModeLoading,
		params:   params,
		keys:     DefaultKeyMap(),
		help:     help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return m.loadCatalogCmd()
}

func (m Model) loadCatalogCmd() tea.Cmd {
	dir := m.params.LabelsDir
	return func() tea.Msg {
		catalog, err := labels.Load(dir)
		return catalogLoadedMsg{catalog: catalog, err: err}
	}
}

func (m Model) startSessionCmd(set domain.LabelSet) tea.Cmd {
	start, in, out := m.params.Start, m.params.InputDir, m.params.OutputDir
	return func() tea.Msg {
		sess, err := start(set, in, out)
		return sessionStartedMsg{set: set, sess: sess, err: err}
	}
}

func classifyCmd(s *session.Session, label string) tea.Cmd {
	return func() tea.Msg {
		_, err := s.Classify(label)
		return actionDoneMsg{err: err}
	}
}

func ignoreCmd(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		_, err := s.Ignore()
		return actionDoneMsg{err: err}
	}
}

func undoCmd(s *session.Session) tea.Cmd {
	return func() tea.Msg {
		_, err := s.Undo()
		return actionDoneMsg{err: err}
	}
}

func describeCmd(s *session.Session) tea.Cmd {
	path, ok := s.CurrentImagePath()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		info, err := imageinfo.Describe(path)
		return imageInfoMsg{path: path, info: info, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case catalogLoadedMsg:
		return m.handleCatalog(msg)

	case sessionStartedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			m.viewMode = ViewModeSelection
			return m, nil
		}
		m.set = msg.set
		m.sess = msg.sess
		m.labelIdx = 0
		m.info = nil
		m.viewMode = ViewModeClassify
		return m, describeCmd(m.sess)

	case actionDoneMsg:
		m.busy = false
		m.err = msg.err
		m.info = nil
		return m, describeCmd(m.sess)

	case imageInfoMsg:
		// Stale results for an image that is no longer current are dropped
		if m.sess == nil || msg.err != nil {
			return m, nil
		}
		if current, ok := m.sess.CurrentImagePath(); ok && current == msg.path {
			info := msg.info
			m.info = &info
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleCatalog(msg catalogLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.err = msg.err
		m.viewMode = ViewModeNoLabels
		return m, nil
	}

	m.catalog = msg.catalog
	m.setNames = msg.catalog.Names()
	m.setIdx = 0

	if len(m.setNames) == 0 {
		m.viewMode = ViewModeNoLabels
		return m, nil
	}

	m.viewMode = ViewModeSelection
	if name := m.params.SetName; name != "" {
		set, err := m.catalog.Get(name)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.params.SetName = ""
		m.busy = true
		return m, m.startSessionCmd(set)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Errors block until acknowledged
	if m.err != nil {
		m.err = nil
		return m, nil
	}

	if m.busy {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	switch m.viewMode {
	case ViewModeNoLabels:
		if key.Matches(msg, m.keys.Rescan) {
			m.viewMode = ViewModeLoading
			return m, m.loadCatalogCmd()
		}

	case ViewModeSelection:
		return m.handleSelectionKey(msg)

	case ViewModeClassify:
		return m.handleClassifyKey(msg)
	}

	return m, nil
}

func (m Model) handleSelectionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Up):
		if m.setIdx > 0 {
			m.setIdx--
		}
	case key.Matches(msg, m.keys.Down):
		if m.setIdx < len(m.setNames)-1 {
			m.setIdx++
		}
	case key.Matches(msg, m.keys.Rescan):
		m.viewMode = ViewModeLoading
		return m, m.loadCatalogCmd()
	case key.Matches(msg, m.keys.Select):
		if len(m.setNames) == 0 {
			return m, nil
		}
		set := m.catalog[m.setNames[m.setIdx]]
		m.busy = true
		return m, m.startSessionCmd(set)
	}
	return m, nil
}

func (m Model) handleClassifyKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	names := m.set.Labels

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.labelIdx > 0 {
			m.labelIdx--
		}
		return m, nil
	case key.Matches(msg, m.keys.Down):
		if m.labelIdx < len(names)-1 {
			m.labelIdx++
		}
		return m, nil
	case key.Matches(msg, m.keys.Undo):
		if _, ok := m.sess.LastChoice(); !ok {
			return m, nil
		}
		m.busy = true
		return m, undoCmd(m.sess)
	}

	// Classification inputs are disabled once every image has a decision
	if !m.sess.HasImagesRemaining() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Select):
		m.busy = true
		return m, classifyCmd(m.sess, names[m.labelIdx])
	case key.Matches(msg, m.keys.Ignore):
		m.busy = true
		return m, ignoreCmd(m.sess)
	}

	if i, ok := digitIndex(msg.String()); ok && i < len(names) {
		m.labelIdx = i
		m.busy = true
		return m, classifyCmd(m.sess, names[i])
	}

	return m, nil
}

// Busy reports whether a session operation is in flight
func (m Model) Busy() bool {
	return m.busy
}

// Err returns the error currently shown, if any
func (m Model) Err() error {
	return m.err
}

// Mode returns the current view
func (m Model) Mode() ViewMode {
	return m.viewMode
}

func describeChoice(c domain.Choice) string {
	name := baseName(c.SourceFile)
	if c.Ignored() {
		return fmt.Sprintf("Ignored the image %q.", name)
	}
	return fmt.Sprintf("Classified the image %q as %q.", name, c.Label)
}

func errorText(err error) string {
	var ioErr *domain.IOError
	if errors.As(err, &ioErr) {
		return fmt.Sprintf("Could not %s %s: %v", ioErr.Op, ioErr.Path, ioErr.Err)
	}
	return err.Error()
}
