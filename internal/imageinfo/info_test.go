package imageinfo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/taxonomist/internal/domain"
)

func TestDescribe_WithoutExif(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG not really"), 0644))

	info, err := Describe(path)
	require.NoError(t, err)

	assert.Equal(t, "plain.png", info.Name)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, int64(15), info.Size)
	assert.Nil(t, info.TakenAt)
	assert.Empty(t, info.Camera)
}

func TestDescribe_Missing(t *testing.T) {
	_, err := Describe(filepath.Join(t.TempDir(), "gone.jpg"))
	require.Error(t, err)
	assert.True(t, domain.IsIO(err))
}

func TestHumanSize(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HumanSize(tt.n))
	}
}
