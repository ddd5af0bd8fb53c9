package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bitrise-io/go-s3stream/archive"
	"github.com/bitrise-io/go-s3stream/s3store"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

func newGetCmd(a *app) *cobra.Command {
	var extract bool

	cmd := &cobra.Command{
		Use:   "get <s3://bucket/key> <destination>",
		Short: "Download an object with parallel ranged requests",
		Long: `Download an object with parallel ranged requests.

With --extract the object is read as an archive created by the archive command
and unpacked into the destination directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.get(cmd, args[0], args[1], extract)
		},
	}
	cmd.Flags().BoolVarP(&extract, "extract", "x", false, "extract the downloaded archive into the destination directory")

	return cmd
}

func (a *app) get(cmd *cobra.Command, rawURL, destination string, extract bool) error {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return err
	}

	client, err := a.s3Client(cmd.Context())
	if err != nil {
		return err
	}

	downloadPath := destination
	if extract {
		tmpDir, err := os.MkdirTemp("", "s3stream")
		if err != nil {
			return fmt.Errorf("create temp dir: %w", err)
		}
		defer func() {
			if err := os.RemoveAll(tmpDir); err != nil {
				a.logger.Warnf("Failed to remove %s: %s", tmpDir, err)
			}
		}()
		downloadPath = filepath.Join(tmpDir, "archive.tar.zst")
	}

	f, err := os.Create(downloadPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", downloadPath, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			a.logger.Warnf("Failed to close %s: %s", downloadPath, err)
		}
	}()

	size, err := s3store.Download(cmd.Context(), client, s3store.DownloadParams{
		Bucket:      bucket,
		Key:         key,
		PartSize:    int64(a.cfg.ChunkSize),
		Concurrency: a.cfg.Concurrency,
	}, f, a.logger)
	if err != nil {
		return err
	}
	a.logger.Printf("Downloaded %s", units.HumanSizeWithPrecision(float64(size), 3))

	if !extract {
		return nil
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewind %s: %w", downloadPath, err)
	}
	summary, err := archive.NewArchiver(a.logger, a.cfg.CompressionLevel).Extract(f, destination)
	if err != nil {
		return fmt.Errorf("extract into %s: %w", destination, err)
	}
	a.logger.Printf("Extracted %d files into %s", summary.Files, destination)
	return nil
}
