// Package archive streams tar.zst archives of local paths, so they can be uploaded without a temporary file.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"github.com/klauspost/compress/zstd"
)

// DefaultCompressionLevel matches the zstd command line default.
const DefaultCompressionLevel = 3

// Summary describes a written archive.
type Summary struct {
	Files int
	// Bytes is the uncompressed size of the regular files.
	Bytes int64
}

// Archiver ...
type Archiver struct {
	logger           log.Logger
	compressionLevel int
}

// NewArchiver ...
func NewArchiver(logger log.Logger, compressionLevel int) *Archiver {
	if compressionLevel < 1 || compressionLevel > 19 {
		compressionLevel = DefaultCompressionLevel
	}
	return &Archiver{
		logger:           logger,
		compressionLevel: compressionLevel,
	}
}

// Write archives the provided absolute paths into dst as a single zstd compressed tar stream.
// Entries are stored without the leading path separator.
func (a *Archiver) Write(dst io.Writer, includePaths []string) (Summary, error) {
	var summary Summary

	zstdWriter, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(a.compressionLevel)))
	if err != nil {
		return summary, fmt.Errorf("create zstd writer: %w", err)
	}
	tw := tar.NewWriter(zstdWriter)

	for _, p := range includePaths {
		path := filepath.Clean(p)
		// walk through every file in the folder
		if err := filepath.Walk(path, func(file string, fi os.FileInfo, e error) error {
			if e != nil {
				return e
			}

			n, err := writeEntry(tw, file, fi)
			if err != nil {
				return err
			}
			if fi.Mode().IsRegular() {
				summary.Files++
				summary.Bytes += n
			}
			return nil
		}); err != nil {
			return summary, fmt.Errorf("iterate on files: %w", err)
		}
	}

	// produce tar
	if err := tw.Close(); err != nil {
		return summary, fmt.Errorf("close tar writer: %w", err)
	}
	// produce zstd
	if err := zstdWriter.Close(); err != nil {
		return summary, fmt.Errorf("close zstd writer: %w", err)
	}

	a.logger.Debugf("Archived %d files (%s)", summary.Files, units.HumanSizeWithPrecision(float64(summary.Bytes), 3))
	return summary, nil
}

func writeEntry(tw *tar.Writer, file string, fi os.FileInfo) (int64, error) {
	var link string
	if fi.Mode()&os.ModeSymlink != 0 {
		var err error
		if link, err = os.Readlink(file); err != nil {
			return 0, fmt.Errorf("read symlink: %w", err)
		}
	}

	header, err := tar.FileInfoHeader(fi, link)
	if err != nil {
		return 0, fmt.Errorf("create file info header: %w", err)
	}
	header.Name = entryName(file)
	if fi.IsDir() {
		header.Name += "/"
	}

	if err := tw.WriteHeader(header); err != nil {
		return 0, fmt.Errorf("write tar file header: %w", err)
	}

	// nothing more to do for non-regular files or directories
	if !fi.Mode().IsRegular() {
		return 0, nil
	}

	data, err := os.Open(file)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	n, err := io.Copy(tw, data)
	if err != nil {
		data.Close() //nolint:errcheck
		return n, fmt.Errorf("copy %s: %w", file, err)
	}
	if err := data.Close(); err != nil {
		return n, fmt.Errorf("close file: %w", err)
	}

	return n, nil
}

func entryName(file string) string {
	name := filepath.ToSlash(filepath.Clean(file))
	if vol := filepath.VolumeName(file); vol != "" {
		name = strings.TrimPrefix(name, filepath.ToSlash(vol))
	}
	return strings.TrimLeft(name, "/")
}
