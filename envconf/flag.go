package envconf

import (
	"github.com/bitrise-io/go-steputils/v2/stepconf"
	"github.com/spf13/pflag"
)

var (
	_ pflag.Value = (*ByteSize)(nil)
	_ pflag.Value = (*secretValue)(nil)
)

// Set implements pflag.Value.
func (b *ByteSize) Set(value string) error {
	size, err := ParseByteSize(value)
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// Type implements pflag.Value.
func (b *ByteSize) Type() string {
	return "size"
}

type secretValue stepconf.Secret

// SecretVar wraps p as a flag value. The default shown in help output is masked.
func SecretVar(p *stepconf.Secret) pflag.Value {
	return (*secretValue)(p)
}

func (s *secretValue) String() string {
	if *s == "" {
		return ""
	}
	return "*****"
}

func (s *secretValue) Set(value string) error {
	*s = secretValue(value)
	return nil
}

func (s *secretValue) Type() string {
	return "secret"
}
