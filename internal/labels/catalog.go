// Package labels discovers label sets from the text files in a labels directory.
package labels

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/pbaille/taxonomist/internal/domain"
)

// Ext is the extension a file needs to be read as a label set
const Ext = ".txt"

// minLabels is the smallest label set worth classifying with
const minLabels = 2

// DefaultDir returns the labels directory inside the per-user data directory
func DefaultDir(dataDir string) string {
	return filepath.Join(dataDir, "labels")
}

// Load scans dir for label set files and returns the usable ones.
// A missing directory is created. Files with fewer than two labels are skipped.
func Load(dir string) (domain.Catalog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &domain.IOError{Op: "create labels dir", Path: dir, Err: err}
	}

	files, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	catalog := make(domain.Catalog)
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, &domain.IOError{Op: "read label file", Path: file, Err: err}
		}

		lines := Parse(string(data))
		if len(lines) < minLabels {
			continue
		}

		name := strings.TrimSuffix(filepath.Base(file), Ext)
		catalog[name] = domain.LabelSet{Name: name, Labels: lines}
	}

	return catalog, nil
}

// Parse splits label file contents into labels, dropping blank lines
func Parse(content string) []string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var labels []string
	for _, line := range strings.Split(content, "\n") {
		if isBlank(line) {
			continue
		}
		labels = append(labels, line)
	}
	return labels
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}

// listFiles returns the regular, non-hidden *.txt files directly inside dir, sorted by name
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &domain.IOError{Op: "list labels dir", Path: dir, Err: err}
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || !strings.HasSuffix(e.Name(), Ext) {
			continue
		}
		if !e.Type().IsRegular() {
			// Follow symlinks so linked label files still count
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}

	sort.Strings(files)
	return files, nil
}
