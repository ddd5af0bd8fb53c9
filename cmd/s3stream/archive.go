package main

import (
	"errors"
	"fmt"

	"github.com/bitrise-io/go-s3stream/archive"
	"github.com/bitrise-io/go-s3stream/internal/pathset"
	"github.com/bitrise-io/go-s3stream/stream"
	"github.com/bitrise-io/go-utils/v2/pathutil"
	"github.com/spf13/cobra"
)

const archiveContentType = "application/zstd"

func newArchiveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <s3://bucket/key-template> <path>...",
		Short: "Upload a zstd compressed tar of the given paths without a temporary file",
		Long: `Upload a zstd compressed tar of the given paths without a temporary file.

Paths may contain * and ** glob patterns, ~ and environment variables.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.archive(cmd, args[0], args[1:])
		},
	}
	cmd.Flags().IntVar(&a.cfg.CompressionLevel, "level", a.cfg.CompressionLevel, "zstd compression level (1-19)")

	return cmd
}

func (a *app) archive(cmd *cobra.Command, rawURL string, paths []string) error {
	bucket, key, err := a.target(rawURL)
	if err != nil {
		return err
	}

	includePaths, err := a.includePaths(paths)
	if err != nil {
		return err
	}

	archiver := archive.NewArchiver(a.logger, a.cfg.CompressionLevel)

	var summary archive.Summary
	result, err := a.upload(cmd.Context(), bucket, key, a.uploadOptions(archiveContentType), func(w *stream.Writer) error {
		s, err := archiver.Write(w, includePaths)
		summary = s
		return err
	})
	if err != nil {
		return fmt.Errorf("archive to s3://%s/%s: %w", bucket, key, err)
	}

	a.logger.Printf("Archived %d files", summary.Files)
	a.printResult(result)
	return nil
}

// includePaths resolves the archive inputs. Malformed patterns fail, patterns without a match only warn.
func (a *app) includePaths(patterns []string) ([]string, error) {
	resolver := pathset.NewResolver(pathutil.NewPathModifier(), pathutil.NewPathChecker())
	matches := resolver.Resolve("", patterns)

	for _, match := range matches {
		if match.Err != nil {
			return nil, match.Err
		}
		if match.Empty() {
			a.logger.Warnf("No match for path: %s", match.Pattern)
		}
	}

	includePaths := pathset.Paths(matches)
	if len(includePaths) == 0 {
		return nil, errors.New("none of the paths exist")
	}
	if !archive.HasContent(includePaths) {
		return nil, errors.New("the provided paths are all empty")
	}
	return includePaths, nil
}
