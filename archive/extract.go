package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/go-units"
	"github.com/klauspost/compress/zstd"
)

// Extract unpacks a stream written by Write into destinationDirectory.
//
// Nothing is written outside destinationDirectory: entries escaping it, entries below a symlink
// and symlinks pointing outside of it fail the extraction.
func (a *Archiver) Extract(src io.Reader, destinationDirectory string) (Summary, error) {
	var summary Summary

	destination, err := filepath.Abs(destinationDirectory)
	if err != nil {
		return summary, fmt.Errorf("resolve destination: %w", err)
	}

	zr, err := zstd.NewReader(src)
	if err != nil {
		return summary, fmt.Errorf("create zstd reader: %w", err)
	}
	defer zr.Close()

	var links []string
	tr := tar.NewReader(zr)
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return summary, fmt.Errorf("read tar file: %w", err)
		}

		target, err := extractTarget(destination, header.Name)
		if err != nil {
			return summary, err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if isSymlink(target) {
				return summary, fmt.Errorf("archive entry %s: %s is a symlink", header.Name, target)
			}
			if err := os.MkdirAll(target, 0755); err != nil {
				return summary, fmt.Errorf("create target directories: %w", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return summary, fmt.Errorf("create target directories: %w", err)
			}
			if isSymlink(target) {
				// replace the link instead of writing through it
				if err := os.Remove(target); err != nil {
					return summary, fmt.Errorf("remove symlink: %w", err)
				}
			}
			n, err := writeFile(target, tr, fs.FileMode(header.Mode).Perm())
			if err != nil {
				return summary, err
			}
			summary.Files++
			summary.Bytes += n
		case tar.TypeSymlink:
			if err := checkLinkname(destination, target, header.Linkname); err != nil {
				return summary, fmt.Errorf("archive entry %s: %w", header.Name, err)
			}
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return summary, fmt.Errorf("create target directories: %w", err)
			}
			if err := os.Symlink(header.Linkname, target); err != nil {
				return summary, fmt.Errorf("symlink file: %w", err)
			}
			links = append(links, target)
		default:
			a.logger.Debugf("Skipping unsupported entry %s (type %c)", header.Name, header.Typeflag)
		}
	}

	if err := verifyLinks(destination, links); err != nil {
		return summary, err
	}

	a.logger.Debugf("Extracted %d files (%s) to %s", summary.Files, units.HumanSizeWithPrecision(float64(summary.Bytes), 3), destination)
	return summary, nil
}

// extractTarget maps an entry name to its path below destination.
// The name must stay inside destination and none of its parent directories may be a symlink.
func extractTarget(destination, name string) (string, error) {
	target := filepath.Join(destination, filepath.FromSlash(name))
	rel, err := filepath.Rel(destination, target)
	if err != nil || !isLocal(rel) {
		return "", fmt.Errorf("archive entry %s points outside of %s", name, destination)
	}

	parent := destination
	for _, part := range strings.Split(filepath.Dir(rel), string(filepath.Separator)) {
		if part == "." {
			continue
		}
		parent = filepath.Join(parent, part)

		info, err := os.Lstat(parent)
		if errors.Is(err, fs.ErrNotExist) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("archive entry %s: %w", name, err)
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return "", fmt.Errorf("archive entry %s is below symlink %s", name, parent)
		}
	}

	return target, nil
}

// checkLinkname rejects symlinks that are absolute or lead outside destination.
func checkLinkname(destination, target, linkname string) error {
	if linkname == "" {
		return errors.New("empty symlink target")
	}
	if filepath.IsAbs(linkname) || strings.HasPrefix(linkname, "/") {
		return fmt.Errorf("symlink to absolute path %s", linkname)
	}

	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	rel, err := filepath.Rel(destination, resolved)
	if err != nil || !isLocal(rel) {
		return fmt.Errorf("symlink to %s points outside of %s", linkname, destination)
	}
	return nil
}

// verifyLinks resolves every extracted symlink once the whole tree exists. A link may only
// escape through other links created after it, which the per-entry check can not see.
func verifyLinks(destination string, links []string) error {
	if len(links) == 0 {
		return nil
	}

	realDestination, err := filepath.EvalSymlinks(destination)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}

	for _, link := range links {
		resolved, err := filepath.EvalSymlinks(link)
		if err != nil {
			// dangling links were already checked lexically
			continue
		}
		rel, err := filepath.Rel(realDestination, resolved)
		if err != nil || !isLocal(rel) {
			if removeErr := os.Remove(link); removeErr != nil {
				return fmt.Errorf("symlink %s resolves outside of %s, remove: %w", link, destination, removeErr)
			}
			return fmt.Errorf("symlink %s resolves outside of %s", link, destination)
		}
	}
	return nil
}

func isLocal(rel string) bool {
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	return err == nil && info.Mode()&os.ModeSymlink != 0
}

func writeFile(target string, r io.Reader, mode fs.FileMode) (int64, error) {
	fileToWrite, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(fileToWrite, r)
	if err != nil {
		fileToWrite.Close() //nolint:errcheck
		return n, fmt.Errorf("copy content to file: %w", err)
	}
	if err := fileToWrite.Close(); err != nil {
		return n, fmt.Errorf("write file: %w", err)
	}
	return n, nil
}
