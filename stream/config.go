package stream

import (
	"fmt"
	"runtime"

	"github.com/docker/go-units"
)

const (
	// DefaultChunkSize is the minimum part size most object stores accept for non-final parts.
	DefaultChunkSize = 5 * units.MiB

	// MaxParts is the maximum number of parts of a single multipart upload.
	MaxParts = 10000
)

// Config holds configuration for the stream writer.
type Config struct {
	// Bucket is the destination bucket.
	Bucket string

	// Key is the destination object key.
	Key string

	// Concurrency is the maximum number of parts uploaded in parallel.
	// It also bounds memory: at most Concurrency+1 chunks are held at once.
	// Default: min(NumCPU * 2, 16), minimum 2
	Concurrency int

	// ChunkSize is the size of every part except the last one.
	// Default: 5 MiB
	ChunkSize int

	// AbortOnFailure aborts the multipart upload when the stream fails,
	// if the store supports it.
	// Default: true
	AbortOnFailure bool
}

// ConfigError is returned by Validate for an unusable configuration.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

// DefaultConfig returns the default configuration for the given destination.
func DefaultConfig(bucket, key string) Config {
	return Config{
		Bucket:         bucket,
		Key:            key,
		Concurrency:    DefaultConcurrency(),
		ChunkSize:      DefaultChunkSize,
		AbortOnFailure: true,
	}
}

// DefaultConcurrency calculates the default concurrency based on CPU count.
func DefaultConcurrency() int {
	c := runtime.NumCPU() * 2

	if c > 16 {
		c = 16
	}

	if c < 2 {
		c = 2
	}

	return c
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Reason: "must not be empty"}
	}
	if c.Key == "" {
		return &ConfigError{Field: "Key", Reason: "must not be empty"}
	}
	if c.Concurrency < 1 {
		return &ConfigError{Field: "Concurrency", Reason: fmt.Sprintf("must be at least 1, got %d", c.Concurrency)}
	}
	if c.ChunkSize < 1 {
		return &ConfigError{Field: "ChunkSize", Reason: fmt.Sprintf("must be at least 1 byte, got %d", c.ChunkSize)}
	}
	return nil
}

// MaxObjectSize returns the largest object this configuration can produce.
func (c Config) MaxObjectSize() int64 {
	return int64(c.ChunkSize) * MaxParts
}
