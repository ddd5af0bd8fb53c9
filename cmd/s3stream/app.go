package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bitrise-io/go-s3stream/keytemplate"
	"github.com/bitrise-io/go-s3stream/s3store"
	"github.com/bitrise-io/go-s3stream/stream"
	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"github.com/spf13/cobra"
)

type storeFactory func(ctx context.Context, opts s3store.UploadOptions) (stream.ObjectStore, error)

type app struct {
	logger  log.Logger
	envRepo env.Repository
	cfg     Config

	stdin  io.Reader
	stdout io.Writer

	newStore storeFactory
}

func newApp(logger log.Logger, envRepo env.Repository) *app {
	a := &app{
		logger:  logger,
		envRepo: envRepo,
		cfg:     defaultConfig(),
		stdin:   os.Stdin,
		stdout:  os.Stdout,
	}
	a.newStore = a.s3Store
	return a
}

func newRootCmd(a *app) (*cobra.Command, error) {
	if err := a.cfg.parseEnv(a.envRepo); err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:           "s3stream",
		Short:         "Stream data into S3 with parallel multipart uploads",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.logger.EnableDebugLog(a.cfg.Debug)
			if a.cfg.Debug {
				stepconf.Print(a.cfg)
				a.logger.Debugf("chunk size: %s, presign expiry: %s", a.cfg.ChunkSize, a.cfg.PresignExpiry)
			}
			return a.cfg.validate(a.logger)
		},
	}
	a.cfg.bindFlags(root.PersistentFlags())

	root.AddCommand(
		newPutCmd(a),
		newArchiveCmd(a),
		newGetCmd(a),
		newPresignCmd(a),
	)
	return root, nil
}

func (a *app) s3Client(ctx context.Context) (*s3.Client, error) {
	return s3store.NewClient(ctx, s3store.Params{
		Region:          a.cfg.Region,
		Endpoint:        a.cfg.Endpoint,
		UsePathStyle:    a.cfg.UsePathStyle,
		AccessKeyID:     a.cfg.AccessKeyID,
		SecretAccessKey: string(a.cfg.SecretAccessKey),
		SessionToken:    string(a.cfg.SessionToken),
		MaxRetries:      a.cfg.MaxRetries,
	}, a.logger)
}

func (a *app) s3Store(ctx context.Context, opts s3store.UploadOptions) (stream.ObjectStore, error) {
	client, err := a.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	store, err := s3store.NewStore(client, opts, a.logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}

func (a *app) uploadOptions(contentType string) s3store.UploadOptions {
	if a.cfg.ContentType != "" {
		contentType = a.cfg.ContentType
	}
	return s3store.UploadOptions{
		ContentType:          contentType,
		StorageClass:         a.cfg.StorageClass,
		ServerSideEncryption: a.cfg.SSE,
		SSEKMSKeyID:          a.cfg.SSEKMSKeyID,
	}
}

// target parses an s3:// URL and evaluates its key as a template.
func (a *app) target(rawURL string) (string, string, error) {
	bucket, keyTemplate, err := parseS3URL(rawURL)
	if err != nil {
		return "", "", err
	}

	key, err := keytemplate.NewModel(a.envRepo, a.logger).Evaluate(keyTemplate)
	if err != nil {
		return "", "", fmt.Errorf("evaluate key %s: %w", keyTemplate, err)
	}
	if key != keyTemplate {
		a.logger.Debugf("Key %s evaluated to %s", keyTemplate, key)
	}
	return bucket, key, nil
}

// upload streams whatever produce writes into bucket/key. A failing producer aborts the upload.
func (a *app) upload(ctx context.Context, bucket, key string, opts s3store.UploadOptions, produce func(w *stream.Writer) error) (*stream.Result, error) {
	store, err := a.newStore(ctx, opts)
	if err != nil {
		return nil, err
	}

	w, err := stream.NewWriter(ctx, store, a.cfg.streamConfig(bucket, key), a.logger)
	if err != nil {
		return nil, err
	}

	if err := produce(w); err != nil {
		if abortErr := w.Abort(); abortErr != nil {
			a.logger.Debugf("Abort: %s", abortErr)
		}
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	stats := w.Stats()
	a.logger.Debugf("%d parts, average part upload time %s", stats.PartsFinished, stats.AverageDuration)
	return w.Result(), nil
}

func (a *app) printResult(result *stream.Result) {
	a.logger.Printf("Object: s3://%s/%s", result.Bucket, result.Key)
	a.logger.Printf("Size: %s", units.HumanSizeWithPrecision(float64(result.Size), 3))
	a.logger.Printf("Parts: %d", len(result.Parts))
	fmt.Fprintf(a.stdout, "s3://%s/%s\n", result.Bucket, result.Key)
}
