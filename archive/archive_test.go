package archive

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTree(t *testing.T) string {
	t.Helper()

	basePath := t.TempDir()
	files := map[string]string{
		"build/app.bin":             "binary content",
		"build/reports/junit.xml":   "<testsuites/>",
		"build/reports/coverage.md": "# 87%",
	}
	for name, content := range files {
		path := filepath.Join(basePath, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(basePath, "build", "empty"), 0755))
	require.NoError(t, os.Symlink("app.bin", filepath.Join(basePath, "build", "latest")))

	return basePath
}

func TestArchiver_WriteExtract(t *testing.T) {
	basePath := createTree(t)
	archiver := NewArchiver(log.NewLogger(), 0)

	var buf bytes.Buffer
	summary, err := archiver.Write(&buf, []string{filepath.Join(basePath, "build")})
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Files)
	assert.Equal(t, int64(len("binary content")+len("<testsuites/>")+len("# 87%")), summary.Bytes)

	destination := t.TempDir()
	extracted, err := archiver.Extract(&buf, destination)
	require.NoError(t, err)
	assert.Equal(t, summary, extracted)

	root := filepath.Join(destination, entryName(basePath), "build")

	content, err := os.ReadFile(filepath.Join(root, "reports", "junit.xml"))
	require.NoError(t, err)
	assert.Equal(t, "<testsuites/>", string(content))

	link, err := os.Readlink(filepath.Join(root, "latest"))
	require.NoError(t, err)
	assert.Equal(t, "app.bin", link)

	info, err := os.Stat(filepath.Join(root, "empty"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestArchiver_WriteMissingPath(t *testing.T) {
	archiver := NewArchiver(log.NewLogger(), DefaultCompressionLevel)

	_, err := archiver.Write(&bytes.Buffer{}, []string{filepath.Join(t.TempDir(), "missing")})
	require.Error(t, err)
}

func TestExtractTarget(t *testing.T) {
	tests := []struct {
		name    string
		entry   string
		wantErr bool
	}{
		{name: "nested file", entry: "a/b/c.txt"},
		{name: "dot segments inside", entry: "a/../b.txt"},
		{name: "escapes destination", entry: "../../etc/passwd", wantErr: true},
		{name: "escapes after descent", entry: "a/../../b.txt", wantErr: true},
		{name: "below symlink", entry: "link/b.txt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			destination := t.TempDir()
			require.NoError(t, os.Symlink(t.TempDir(), filepath.Join(destination, "link")))

			target, err := extractTarget(destination, tt.entry)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, target, destination)
		})
	}
}

func TestEntryName(t *testing.T) {
	assert.Equal(t, "tmp/build/app.bin", entryName("/tmp/build/../build/app.bin"))
	assert.Equal(t, "relative/path", entryName("relative/path/"))
}
