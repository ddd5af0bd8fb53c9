package archive

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tarEntry struct {
	name     string
	linkname string
	content  string
	dir      bool
}

func buildArchive(t *testing.T, entries []tarEntry) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	zw, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	tw := tar.NewWriter(zw)

	for _, e := range entries {
		header := &tar.Header{Name: e.name, Mode: 0644}
		switch {
		case e.dir:
			header.Typeflag = tar.TypeDir
			header.Mode = 0755
		case e.linkname != "":
			header.Typeflag = tar.TypeSymlink
			header.Linkname = e.linkname
		default:
			header.Typeflag = tar.TypeReg
			header.Size = int64(len(e.content))
		}
		require.NoError(t, tw.WriteHeader(header))
		if header.Typeflag == tar.TypeReg {
			_, err := tw.Write([]byte(e.content))
			require.NoError(t, err)
		}
	}

	require.NoError(t, tw.Close())
	require.NoError(t, zw.Close())
	return &buf
}

func TestExtract_SymlinkEscape(t *testing.T) {
	outside := t.TempDir()

	tests := []struct {
		name    string
		entries []tarEntry
		wantErr string
	}{
		{
			name: "absolute symlink followed by a file below it",
			entries: []tarEntry{
				{name: "link", linkname: outside},
				{name: "link/evil.txt", content: "pwned"},
			},
			wantErr: "symlink to absolute path",
		},
		{
			name: "relative symlink leaving the destination",
			entries: []tarEntry{
				{name: "dir/", dir: true},
				{name: "dir/link", linkname: "../../" + filepath.Base(outside)},
				{name: "dir/link/evil.txt", content: "pwned"},
			},
			wantErr: "points outside of",
		},
		{
			name: "symlink escaping through a later symlink",
			entries: []tarEntry{
				{name: "p/q/", dir: true},
				{name: "escape", linkname: "p/q/up/.."},
				{name: "p/q/up", linkname: "../.."},
			},
			wantErr: "resolves outside of",
		},
		{
			name: "directory entry below a symlink",
			entries: []tarEntry{
				{name: "real/", dir: true},
				{name: "link", linkname: "real"},
				{name: "link/sub/", dir: true},
			},
			wantErr: "is below symlink",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			destination := t.TempDir()
			archiver := NewArchiver(log.NewLogger(), DefaultCompressionLevel)

			_, err := archiver.Extract(buildArchive(t, tt.entries), destination)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			assert.NoFileExists(t, filepath.Join(outside, "evil.txt"))
			assert.NoFileExists(t, filepath.Join(destination, "escape"))
		})
	}
}

func TestExtract_PreexistingSymlinkInDestination(t *testing.T) {
	outside := t.TempDir()
	destination := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(destination, "cache")))
	require.NoError(t, os.WriteFile(filepath.Join(outside, "target.txt"), []byte("original"), 0600))
	require.NoError(t, os.Symlink(filepath.Join(outside, "target.txt"), filepath.Join(destination, "file.txt")))

	archiver := NewArchiver(log.NewLogger(), DefaultCompressionLevel)

	_, err := archiver.Extract(buildArchive(t, []tarEntry{{name: "cache/evil.txt", content: "pwned"}}), destination)
	require.Error(t, err)
	assert.NoFileExists(t, filepath.Join(outside, "evil.txt"))

	_, err = archiver.Extract(buildArchive(t, []tarEntry{{name: "file.txt", content: "replaced"}}), destination)
	require.NoError(t, err)

	original, err := os.ReadFile(filepath.Join(outside, "target.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(original))

	replaced, err := os.ReadFile(filepath.Join(destination, "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(replaced))
}

func TestExtract_SymlinksInsideDestination(t *testing.T) {
	destination := t.TempDir()
	archiver := NewArchiver(log.NewLogger(), DefaultCompressionLevel)

	summary, err := archiver.Extract(buildArchive(t, []tarEntry{
		{name: "app/", dir: true},
		{name: "app/v1/bin.txt", content: "v1"},
		{name: "app/current", linkname: "v1"},
		{name: "app/up", linkname: ".."},
		{name: "dangling", linkname: "not/yet/there"},
	}), destination)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Files)

	content, err := os.ReadFile(filepath.Join(destination, "app", "current", "bin.txt"))
	require.NoError(t, err)
	assert.Equal(t, "v1", string(content))

	link, err := os.Readlink(filepath.Join(destination, "dangling"))
	require.NoError(t, err)
	assert.Equal(t, "not/yet/there", link)
}
