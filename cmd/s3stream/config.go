package main

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bitrise-io/go-s3stream/archive"
	"github.com/bitrise-io/go-s3stream/envconf"
	"github.com/bitrise-io/go-s3stream/stream"
	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"github.com/spf13/pflag"
)

const (
	chunkSizeKey     = "S3STREAM_CHUNK_SIZE"
	presignExpiryKey = "S3STREAM_PRESIGN_EXPIRY"

	// S3 rejects parts above 5 GiB, and every part but the last below 5 MiB.
	maxChunkSize = 5 * units.GiB
	minChunkSize = 5 * units.MiB
)

var sseModes = []string{"AES256", "aws:kms", "aws:kms:dsse"}

// Config ...
type Config struct {
	Region          string          `env:"AWS_REGION"`
	Endpoint        string          `env:"S3STREAM_ENDPOINT"`
	UsePathStyle    bool            `env:"S3STREAM_PATH_STYLE"`
	AccessKeyID     string          `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey stepconf.Secret `env:"AWS_SECRET_ACCESS_KEY"`
	SessionToken    stepconf.Secret `env:"AWS_SESSION_TOKEN"`
	MaxRetries      int             `env:"S3STREAM_MAX_RETRIES"`

	Concurrency      int    `env:"S3STREAM_CONCURRENCY"`
	NoAbort          bool   `env:"S3STREAM_NO_ABORT"`
	ContentType      string `env:"S3STREAM_CONTENT_TYPE"`
	StorageClass     string `env:"S3STREAM_STORAGE_CLASS"`
	SSE              string `env:"S3STREAM_SSE"`
	SSEKMSKeyID      string `env:"S3STREAM_SSE_KMS_KEY_ID"`
	CompressionLevel int    `env:"S3STREAM_COMPRESSION_LEVEL"`

	// Read by parseEnv from S3STREAM_CHUNK_SIZE and S3STREAM_PRESIGN_EXPIRY.
	ChunkSize     envconf.ByteSize
	PresignExpiry time.Duration

	Debug bool `env:"S3STREAM_DEBUG"`
}

func defaultConfig() Config {
	return Config{
		Region:           "us-east-1",
		Concurrency:      stream.DefaultConcurrency(),
		ChunkSize:        envconf.ByteSize(stream.DefaultChunkSize),
		CompressionLevel: archive.DefaultCompressionLevel,
		PresignExpiry:    time.Hour,
	}
}

func (c *Config) parseEnv(envRepo env.Repository) error {
	if err := stepconf.NewInputParser(envRepo).Parse(c); err != nil {
		return err
	}
	if err := envconf.LookupByteSize(envRepo, chunkSizeKey, &c.ChunkSize); err != nil {
		return err
	}
	return envconf.LookupDuration(envRepo, presignExpiryKey, &c.PresignExpiry)
}

func (c *Config) bindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&c.Region, "region", c.Region, "AWS region")
	flags.StringVar(&c.Endpoint, "endpoint", c.Endpoint, "custom S3 endpoint, for example http://localhost:9000")
	flags.BoolVar(&c.UsePathStyle, "path-style", c.UsePathStyle, "use path style addressing")
	flags.StringVar(&c.AccessKeyID, "access-key-id", c.AccessKeyID, "AWS access key ID, the default credential chain is used when empty")
	flags.Var(envconf.SecretVar(&c.SecretAccessKey), "secret-access-key", "AWS secret access key")
	flags.Var(envconf.SecretVar(&c.SessionToken), "session-token", "AWS session token")
	flags.IntVar(&c.MaxRetries, "max-retries", c.MaxRetries, "HTTP retries per request, 0 keeps the default")

	flags.IntVarP(&c.Concurrency, "concurrency", "c", c.Concurrency, "number of parts uploaded in parallel")
	flags.Var(&c.ChunkSize, "chunk-size", "part size, for example 8MiB")
	flags.BoolVar(&c.NoAbort, "no-abort", c.NoAbort, "keep the multipart upload when the stream fails")
	flags.StringVar(&c.ContentType, "content-type", c.ContentType, "content type of the object")
	flags.StringVar(&c.StorageClass, "storage-class", c.StorageClass, "storage class of the object")
	flags.StringVar(&c.SSE, "sse", c.SSE, "server side encryption: AES256, aws:kms or aws:kms:dsse")
	flags.StringVar(&c.SSEKMSKeyID, "sse-kms-key-id", c.SSEKMSKeyID, "KMS key used with aws:kms encryption")

	flags.BoolVarP(&c.Debug, "debug", "v", c.Debug, "enable debug logs")
}

// validate checks the merged env and flag values. Chunks below the S3 part minimum are only
// reported, since S3 compatible stores may accept them.
func (c Config) validate(logger log.Logger) error {
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("chunk size must be at least 1 byte, got %d", c.ChunkSize)
	}
	if c.ChunkSize > maxChunkSize {
		return fmt.Errorf("chunk size must be at most %s, got %s", envconf.ByteSize(maxChunkSize), c.ChunkSize)
	}
	if c.ChunkSize < minChunkSize {
		logger.Warnf("Chunk size %s is below the %s S3 part minimum, multipart uploads to AWS will fail", c.ChunkSize, envconf.ByteSize(minChunkSize))
	}
	if c.SSE != "" && !slices.Contains(sseModes, c.SSE) {
		return fmt.Errorf("unsupported server side encryption %s, options: %s", c.SSE, strings.Join(sseModes, ", "))
	}
	return nil
}

func (c Config) streamConfig(bucket, key string) stream.Config {
	cfg := stream.DefaultConfig(bucket, key)
	cfg.Concurrency = c.Concurrency
	cfg.ChunkSize = int(c.ChunkSize)
	cfg.AbortOnFailure = !c.NoAbort
	return cfg
}
