package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoInputImages     = errors.New("no image files could be found in the input directory")
	ErrNoImagesRemaining = errors.New("no images remaining to classify")
	ErrNoChoicesToUndo   = errors.New("no existing classification choices available to undo")
	ErrUnknownLabel      = errors.New("unrecognised classification label")
	ErrNoLabels          = errors.New("at least one classification label is required")
	ErrLabelSetNotFound  = errors.New("label set not found")
)

// UnknownLabelError is returned when classifying with a label outside the active set.
type UnknownLabelError struct {
	Label string
}

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("%s %q", ErrUnknownLabel, e.Label)
}

// Is makes errors.Is(err, ErrUnknownLabel) match.
func (e *UnknownLabelError) Is(target error) bool {
	return target == ErrUnknownLabel
}

// LabelSetNotFoundError names the label set a caller asked for.
type LabelSetNotFoundError struct {
	Name string
}

func (e *LabelSetNotFoundError) Error() string {
	return fmt.Sprintf("%s: %q", ErrLabelSetNotFound, e.Name)
}

func (e *LabelSetNotFoundError) Is(target error) bool {
	return target == ErrLabelSetNotFound
}

// IOError wraps a filesystem failure with the operation and path involved.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *IOError) Unwrap() error {
	return e.Err
}

// IsIO reports whether err is, or wraps, an IOError.
func IsIO(err error) bool {
	var ioErr *IOError
	return errors.As(err, &ioErr)
}
