package keytemplate

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/bitrise-io/go-s3stream/internal/pathset"
)

// checksum backs the {{ checksum "go.sum" "**/*.lock" }} template function.
// A single file yields its SHA-256; several files yield the SHA-256 of their digests in path order.
// Matching no file is an error.
func (m Model) checksum(patterns ...string) (string, error) {
	matches := m.resolver.Resolve(m.workingDir, patterns)
	for _, match := range matches {
		if match.Err != nil {
			return "", fmt.Errorf("checksum: %w", match.Err)
		}
		if match.Empty() {
			m.logger.Warnf("No match for checksum pattern: %s", match.Pattern)
		}
	}

	files := pathset.Files(pathset.Paths(matches))
	if len(files) == 0 {
		return "", fmt.Errorf("checksum: no files match %s", strings.Join(patterns, ", "))
	}
	sort.Strings(files)

	m.logger.Debugf("Files included in checksum:")
	for _, file := range files {
		m.logger.Debugf("- %s", file)
	}

	if len(files) == 1 {
		sum, err := fileDigest(files[0])
		if err != nil {
			return "", err
		}
		return hex.EncodeToString(sum), nil
	}

	combined := sha256.New()
	for _, file := range files {
		sum, err := fileDigest(file)
		if err != nil {
			return "", err
		}
		combined.Write(sum)
	}
	return hex.EncodeToString(combined.Sum(nil)), nil
}

func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("checksum: %w", err)
	}
	defer f.Close() //nolint:errcheck

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return nil, fmt.Errorf("checksum %s: %w", path, err)
	}
	return hash.Sum(nil), nil
}
