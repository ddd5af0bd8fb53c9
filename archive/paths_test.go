package archive

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasContent(t *testing.T) {
	basePath := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(basePath, "empty_dir"), 0700))
	require.NoError(t, os.MkdirAll(filepath.Join(basePath, "dir_with_dir_child", "nested_empty_dir"), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(basePath, "file.txt"), []byte("hello"), 0600))
	require.NoError(t, os.Symlink("missing-target", filepath.Join(basePath, "dangling")))

	tests := []struct {
		name  string
		paths []string
		want  bool
	}{
		{
			name:  "single empty dir",
			paths: []string{filepath.Join(basePath, "empty_dir")},
			want:  false,
		},
		{
			name:  "empty dir within dir",
			paths: []string{filepath.Join(basePath, "dir_with_dir_child")},
			want:  true,
		},
		{
			name:  "nonexistent path",
			paths: []string{filepath.Join(basePath, "this doesn't exist")},
			want:  false,
		},
		{
			name:  "dangling symlink is archived as a link",
			paths: []string{filepath.Join(basePath, "dangling")},
			want:  true,
		},
		{
			name: "file among empty paths",
			paths: []string{
				filepath.Join(basePath, "this doesn't exist"),
				filepath.Join(basePath, "empty_dir"),
				filepath.Join(basePath, "file.txt"),
			},
			want: true,
		},
		{
			name: "no paths",
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasContent(tt.paths))
		})
	}
}
