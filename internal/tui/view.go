package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pbaille/taxonomist/internal/imageinfo"
)

// labelsPerColumn matches the button grid of the classify view
const labelsPerColumn = 10

func (m Model) View() string {
	var body string
	switch m.viewMode {
	case ViewModeLoading:
		body = MutedStyle.Render("Loading classification labels...")
	case ViewModeNoLabels:
		body = m.noLabelsView()
	case ViewModeSelection:
		body = m.selectionView()
	case ViewModeClassify:
		body = m.classifyView()
	}

	sections := []string{m.renderHeader(), body}
	if m.err != nil {
		sections = append(sections, ErrorStyle.Render("Error: "+errorText(m.err)+"\n"+MutedStyle.Render("press any key to continue")))
	}
	sections = append(sections, m.help.View(m.keys))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := "Taxonomist"
	switch m.viewMode {
	case ViewModeLoading, ViewModeNoLabels:
		title += " - Load Classification Labels"
	case ViewModeSelection:
		title += " - Select Parameters"
	case ViewModeClassify:
		title += " - Classify Images"
	}
	return HeaderStyle.Render(title) + "\n"
}

func (m Model) noLabelsView() string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("No classification labels found"))
	sb.WriteString("\n\n")
	sb.WriteString("Create a text file containing a list of labels (one label per line) in the following directory:\n\n")
	sb.WriteString(PathStyle.Render(m.params.LabelsDir))
	sb.WriteString("\n\n")
	sb.WriteString(MutedStyle.Render("press r to rescan"))
	return PanelStyle.Render(sb.String())
}

func (m Model) selectionView() string {
	var sb strings.Builder
	sb.WriteString(TitleStyle.Render("Select classification labels"))
	sb.WriteString("\n\n")

	for i, name := range m.setNames {
		line := fmt.Sprintf("%s (%d labels)", name, len(m.catalog[name].Labels))
		if i == m.setIdx {
			sb.WriteString(SelectedLabelStyle.Render("> " + line))
		} else {
			sb.WriteString(LabelStyle.Render("  " + line))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Input Directory:  %s\n", PathStyle.Render(m.params.InputDir)))
	sb.WriteString(fmt.Sprintf("Output Directory: %s\n", PathStyle.Render(m.params.OutputDir)))
	if m.busy {
		sb.WriteString("\n" + MutedStyle.Render("Scanning input directory..."))
	}
	return PanelStyle.Render(sb.String())
}

func (m Model) classifyView() string {
	s := m.sess

	var left strings.Builder
	if current, ok := s.CurrentImagePath(); ok {
		left.WriteString(ProgressStyle.Render(fmt.Sprintf("Image %d of %d:", s.CurrentIndex()+1, s.Total())))
		left.WriteString("\n\n")
		left.WriteString(PathStyle.Render(current))
		left.WriteString("\n")
		left.WriteString(m.renderInfo())
	} else {
		left.WriteString(DoneStyle.Render("All images classified."))
		left.WriteString("\n")
	}

	panels := lipgloss.JoinHorizontal(lipgloss.Top,
		PanelStyle.Render(left.String()),
		PanelStyle.Render(m.renderLabels()),
	)

	if last, ok := s.LastChoice(); ok {
		undo := UndoBarStyle.Render(describeChoice(last) + "  " + MutedStyle.Render("[u] undo"))
		return lipgloss.JoinVertical(lipgloss.Left, panels, undo)
	}
	return panels
}

func (m Model) renderInfo() string {
	if m.info == nil {
		return ""
	}
	parts := []string{imageinfo.HumanSize(m.info.Size)}
	if m.info.TakenAt != nil {
		parts = append(parts, "taken "+m.info.TakenAt.Format("2006-01-02 15:04"))
	}
	if m.info.Camera != "" {
		parts = append(parts, m.info.Camera)
	}
	return MutedStyle.Render(strings.Join(parts, " · "))
}

func (m Model) renderLabels() string {
	labels := m.set.Labels
	enabled := m.sess.HasImagesRemaining() && !m.busy

	var columns []string
	for start := 0; start < len(labels); start += labelsPerColumn {
		end := min(start+labelsPerColumn, len(labels))

		var col strings.Builder
		for i := start; i < end; i++ {
			line := labels[i]
			if i < 9 {
				line = fmt.Sprintf("%d %s", i+1, line)
			} else {
				line = "  " + line
			}

			switch {
			case !enabled:
				col.WriteString(MutedStyle.Render(line))
			case i == m.labelIdx:
				col.WriteString(SelectedLabelStyle.Render(line))
			default:
				col.WriteString(LabelStyle.Render(line))
			}
			if i < end-1 {
				col.WriteString("\n")
			}
		}
		columns = append(columns, col.String())
	}

	ignore := "[i] Ignore Current Image"
	if !enabled {
		ignore = MutedStyle.Render(ignore)
	}
	return ignore + "\n\n" + lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}

func baseName(path string) string {
	return filepath.Base(path)
}
