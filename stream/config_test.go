package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		modify    func(c *Config)
		wantField string
	}{
		{name: "default config", modify: func(c *Config) {}},
		{name: "single upload slot", modify: func(c *Config) { c.Concurrency = 1 }},
		{name: "missing bucket", modify: func(c *Config) { c.Bucket = "" }, wantField: "Bucket"},
		{name: "missing key", modify: func(c *Config) { c.Key = "" }, wantField: "Key"},
		{name: "zero concurrency", modify: func(c *Config) { c.Concurrency = 0 }, wantField: "Concurrency"},
		{name: "negative chunk size", modify: func(c *Config) { c.ChunkSize = -1 }, wantField: "ChunkSize"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("bucket", "key")
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var configErr *ConfigError
			require.ErrorAs(t, err, &configErr)
			assert.Equal(t, tt.wantField, configErr.Field)
			assert.Contains(t, err.Error(), "invalid config: "+tt.wantField)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("bucket", "key")

	assert.Equal(t, "bucket", cfg.Bucket)
	assert.Equal(t, "key", cfg.Key)
	assert.Equal(t, 5*1024*1024, cfg.ChunkSize)
	assert.True(t, cfg.AbortOnFailure)
	assert.Equal(t, int64(5*1024*1024)*10000, cfg.MaxObjectSize())
}

func TestDefaultConcurrency(t *testing.T) {
	c := DefaultConcurrency()
	if c < 2 {
		t.Errorf("Concurrency %d is below minimum 2", c)
	}
	if c > 16 {
		t.Errorf("Concurrency %d exceeds maximum 16", c)
	}
	t.Logf("Default concurrency: %d", c)
}
