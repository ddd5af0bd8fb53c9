package main

import (
	"fmt"
	"io"
	"os"

	"github.com/bitrise-io/go-s3stream/stream"
	"github.com/spf13/cobra"
)

func newPutCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "put <s3://bucket/key-template>",
		Short: "Upload stdin or a file as a single object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.put(cmd, args[0], file)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "file to upload, - reads stdin")

	return cmd
}

func (a *app) put(cmd *cobra.Command, rawURL, file string) error {
	bucket, key, err := a.target(rawURL)
	if err != nil {
		return err
	}

	src := a.stdin
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return fmt.Errorf("open %s: %w", file, err)
		}
		defer func() {
			if err := f.Close(); err != nil {
				a.logger.Warnf("Failed to close %s: %s", file, err)
			}
		}()
		src = f
	}

	result, err := a.upload(cmd.Context(), bucket, key, a.uploadOptions("application/octet-stream"), func(w *stream.Writer) error {
		_, err := io.Copy(w, src)
		return err
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", bucket, key, err)
	}

	a.printResult(result)
	return nil
}
