package main

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/bitrise-io/go-s3stream/internal/testing/memstore"
	"github.com/bitrise-io/go-s3stream/s3store"
	"github.com/bitrise-io/go-s3stream/stream"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/require"
)

type fakeEnvRepo struct {
	envVars map[string]string
}

func (repo fakeEnvRepo) Get(key string) string {
	return repo.envVars[key]
}

func (repo fakeEnvRepo) Set(key, value string) error {
	repo.envVars[key] = value
	return nil
}

func (repo fakeEnvRepo) Unset(key string) error {
	delete(repo.envVars, key)
	return nil
}

func (repo fakeEnvRepo) List() []string {
	var envs []string
	for k, v := range repo.envVars {
		envs = append(envs, fmt.Sprintf("%s=%s", k, v))
	}
	return envs
}

type testApp struct {
	*app
	store   *memstore.Store
	options []s3store.UploadOptions
	stdout  *bytes.Buffer
}

func newTestApp(envVars map[string]string) *testApp {
	if envVars == nil {
		envVars = map[string]string{}
	}

	ta := &testApp{
		app:    newApp(log.NewLogger(), fakeEnvRepo{envVars: envVars}),
		store:  memstore.New(),
		stdout: &bytes.Buffer{},
	}
	ta.app.stdout = ta.stdout
	ta.app.newStore = func(ctx context.Context, opts s3store.UploadOptions) (stream.ObjectStore, error) {
		ta.options = append(ta.options, opts)
		return ta.store, nil
	}
	return ta
}

func (ta *testApp) run(t *testing.T, args ...string) error {
	root, err := newRootCmd(ta.app)
	require.NoError(t, err)

	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}
