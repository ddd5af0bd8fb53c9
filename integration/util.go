//go:build integration
// +build integration

package integration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"os/exec"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bitrise-io/go-s3stream/s3store"
	"github.com/bitrise-io/go-utils/v2/command"
	"github.com/bitrise-io/go-utils/v2/env"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/require"
)

var logger = log.NewLogger()

type testTarget struct {
	client *s3.Client
	bucket string
}

// newTestTarget connects to the bucket named by S3STREAM_TEST_BUCKET.
// Credentials and region come from the usual AWS variables, S3STREAM_ENDPOINT points
// the client at an S3 compatible server such as MinIO.
func newTestTarget(t *testing.T) testTarget {
	envRepo := env.NewRepository()

	bucket := envRepo.Get("S3STREAM_TEST_BUCKET")
	if bucket == "" {
		t.Skip("S3STREAM_TEST_BUCKET is not set")
	}

	region := envRepo.Get("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}

	client, err := s3store.NewClient(context.Background(), s3store.Params{
		Region:          region,
		Endpoint:        envRepo.Get("S3STREAM_ENDPOINT"),
		UsePathStyle:    envRepo.Get("S3STREAM_ENDPOINT") != "",
		AccessKeyID:     envRepo.Get("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: envRepo.Get("AWS_SECRET_ACCESS_KEY"),
		SessionToken:    envRepo.Get("AWS_SESSION_TOKEN"),
	}, logger)
	require.NoError(t, err)

	return testTarget{client: client, bucket: bucket}
}

func checksumOf(bytes []byte) string {
	hash := sha256.New()
	hash.Write(bytes)
	return hex.EncodeToString(hash.Sum(nil))
}

func testKey(t *testing.T) string {
	return fmt.Sprintf("s3stream-integration/%s/%d", t.Name(), os.Getpid())
}

// verifyZstd checks the archive with the reference zstd implementation.
func verifyZstd(path string) error {
	output, err := command.NewFactory(env.NewRepository()).
		Create("zstd", []string{"-t", path}, nil).
		RunAndReturnTrimmedCombinedOutput()
	if err != nil {
		return fmt.Errorf("zstd integrity check failed, out: %s, error: %w", output, err)
	}
	return nil
}

func checkTools(t *testing.T) {
	if _, err := exec.LookPath("zstd"); err != nil {
		t.Skip("zstd is required for the archive integration tests")
	}
}
