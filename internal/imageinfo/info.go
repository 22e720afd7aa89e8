// Package imageinfo reads the file and EXIF metadata shown next to the image
// awaiting a decision. Pixel data is never decoded.
package imageinfo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/pbaille/taxonomist/internal/domain"
)

// Info describes an image file
type Info struct {
	Name    string     `json:"name"`
	Path    string     `json:"path"`
	Size    int64      `json:"size"`
	ModTime time.Time  `json:"mod_time"`
	TakenAt *time.Time `json:"taken_at,omitempty"`
	Camera  string     `json:"camera,omitempty"`
}

// Describe stats path and reads its EXIF capture time and camera model when present.
// Missing or unreadable EXIF data is not an error.
func Describe(path string) (Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return Info{}, &domain.IOError{Op: "stat image", Path: path, Err: err}
	}

	info := Info{
		Name:    filepath.Base(path),
		Path:    path,
		Size:    st.Size(),
		ModTime: st.ModTime(),
	}

	f, err := os.Open(path)
	if err != nil {
		return Info{}, &domain.IOError{Op: "open image", Path: path, Err: err}
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return info, nil
	}

	if tm, err := x.DateTime(); err == nil {
		info.TakenAt = &tm
	}
	if tag, err := x.Get(exif.Model); err == nil {
		if model, err := tag.StringVal(); err == nil {
			info.Camera = strings.TrimSpace(model)
		}
	}

	return info, nil
}

// HumanSize formats a byte count for display
func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
