package domain

import "sort"

// LabelSet is a named, ordered list of classification labels loaded from one file
type LabelSet struct {
	Name   string   `json:"name" yaml:"name"`
	Labels []string `json:"labels" yaml:"labels"`
}

// Catalog maps label set names to their label sets
type Catalog map[string]LabelSet

// Names returns the label set names in sorted order
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get returns the named label set or ErrLabelSetNotFound
func (c Catalog) Get(name string) (LabelSet, error) {
	set, ok := c[name]
	if !ok {
		return LabelSet{}, &LabelSetNotFoundError{Name: name}
	}
	return set, nil
}

// Choice records one classify-or-ignore decision made during a session.
// An empty DestFile and Label mean the image was ignored.
type Choice struct {
	SourceFile string `json:"source_file"`
	DestFile   string `json:"dest_file"`
	Label      string `json:"label"`
}

// Ignored reports whether the choice skipped the image without placing a file
func (c Choice) Ignored() bool {
	return c.DestFile == ""
}
