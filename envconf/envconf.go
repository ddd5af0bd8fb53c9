// Package envconf holds the configuration values stepconf cannot parse from `env` tags:
// human readable sizes and durations. Both read from the environment with the Lookup helpers
// and implement pflag.Value so flags can override them.
package envconf

import (
	"fmt"
	"time"

	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/docker/go-units"
)

// ByteSize is a size parsed from human readable values like "5MiB", "64m" or "1048576".
type ByteSize int64

// String ...
func (b ByteSize) String() string {
	return units.BytesSize(float64(b))
}

// ParseByteSize accepts binary units, so "8m" and "8MiB" both mean 8*1024*1024 bytes.
func ParseByteSize(value string) (ByteSize, error) {
	size, err := units.RAMInBytes(value)
	if err != nil {
		return 0, fmt.Errorf("parse size: %w", err)
	}
	if size < 0 {
		return 0, fmt.Errorf("size must not be negative: %s", value)
	}
	return ByteSize(size), nil
}

// LookupByteSize sets dst from the key variable. An unset or empty variable leaves dst untouched.
func LookupByteSize(envRepo env.Repository, key string, dst *ByteSize) error {
	value := envRepo.Get(key)
	if value == "" {
		return nil
	}
	size, err := ParseByteSize(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = size
	return nil
}

// LookupDuration sets dst from the key variable, for example "90s" or "12h".
func LookupDuration(envRepo env.Repository, key string, dst *time.Duration) error {
	value := envRepo.Get(key)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: parse duration: %w", key, err)
	}
	if d < 0 {
		return fmt.Errorf("%s: duration must not be negative: %s", key, value)
	}
	*dst = d
	return nil
}
