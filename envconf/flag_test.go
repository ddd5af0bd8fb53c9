package envconf

import (
	"testing"

	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlagValues(t *testing.T) {
	secret := stepconf.Secret("from-env")
	size := ByteSize(5 * 1024 * 1024)

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Var(SecretVar(&secret), "secret", "secret value")
	flags.Var(&size, "size", "chunk size")

	assert.Equal(t, "*****", flags.Lookup("secret").DefValue)
	assert.Equal(t, "5MiB", flags.Lookup("size").DefValue)

	require.NoError(t, flags.Parse([]string{"--secret", "from-flag", "--size", "16m"}))
	assert.Equal(t, stepconf.Secret("from-flag"), secret)
	assert.Equal(t, ByteSize(16*1024*1024), size)

	assert.Error(t, flags.Parse([]string{"--size", "huge"}))
	assert.Error(t, flags.Parse([]string{"--size", "-1"}))
}

func TestSecretVar_EmptyDefault(t *testing.T) {
	var secret stepconf.Secret

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Var(SecretVar(&secret), "secret", "secret value")

	assert.Equal(t, "", flags.Lookup("secret").DefValue)
}
