package main

import (
	"fmt"

	"github.com/bitrise-io/go-s3stream/s3store"
	"github.com/spf13/cobra"
)

func newPresignCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presign <s3://bucket/key>",
		Short: "Print a presigned GET URL of an object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.presign(cmd, args[0])
		},
	}
	cmd.Flags().DurationVar(&a.cfg.PresignExpiry, "expires", a.cfg.PresignExpiry, "validity of the URL")

	return cmd
}

func (a *app) presign(cmd *cobra.Command, rawURL string) error {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return err
	}

	client, err := a.s3Client(cmd.Context())
	if err != nil {
		return err
	}

	url, err := s3store.PresignGetURL(cmd.Context(), client, bucket, key, a.cfg.PresignExpiry)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(a.stdout, url)
	return err
}
