package s3store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/bitrise-io/go-utils/v2/retryhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// Params ...
type Params struct {
	Region          string
	Endpoint        string
	UsePathStyle    bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// MaxRetries is the number of HTTP level retries of a single request. Zero keeps the default.
	MaxRetries int
}

// NewClient creates an S3 client. Requests are retried by a retrying HTTP client,
// the SDK's own retryer is disabled so requests are not retried twice.
func NewClient(ctx context.Context, params Params, logger log.Logger) (*s3.Client, error) {
	cfg, err := loadAWSConfig(ctx, params, logger)
	if err != nil {
		return nil, fmt.Errorf("load aws credentials: %w", err)
	}

	httpClient := newHTTPClient(params.MaxRetries, logger)
	client := s3.NewFromConfig(*cfg, func(o *s3.Options) {
		o.HTTPClient = httpClient.StandardClient()
		o.Retryer = aws.NopRetryer{}

		if params.Endpoint != "" {
			o.BaseEndpoint = aws.String(params.Endpoint)
		}
		o.UsePathStyle = params.UsePathStyle
	})

	return client, nil
}

func newHTTPClient(maxRetries int, logger log.Logger) *retryablehttp.Client {
	client := retryhttp.NewClient(logger)
	if maxRetries > 0 {
		client.RetryMax = maxRetries
	}
	return client
}

func loadAWSConfig(ctx context.Context, params Params, logger log.Logger) (*aws.Config, error) {
	if params.Region == "" {
		return nil, fmt.Errorf("region must not be empty")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
	}

	if params.AccessKeyID != "" && params.SecretAccessKey != "" {
		logger.Debugf("aws credentials provided, using them...")
		opts = append(opts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(params.AccessKeyID, params.SecretAccessKey, params.SessionToken)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load config, %v", err)
	}

	return &cfg, nil
}
