// Package s3store implements the multipart object store of the stream writer on top of S3.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/bitrise-io/go-s3stream/stream"
	"github.com/bitrise-io/go-utils/retry"
	"github.com/bitrise-io/go-utils/v2/log"
)

const (
	numAbortRetries = 3
	abortRetryWait  = 5 * time.Second
)

var (
	_ stream.ObjectStore = (*Store)(nil)
	_ stream.Aborter     = (*Store)(nil)
)

// API is the part of the S3 client used by Store.
type API interface {
	CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error)
	UploadPart(ctx context.Context, params *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error)
	CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error)
	AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, optFns ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error)
}

// UploadOptions are applied to every object created by the Store.
type UploadOptions struct {
	ContentType          string
	ContentEncoding      string
	StorageClass         string
	ServerSideEncryption string
	SSEKMSKeyID          string
}

// Validate checks the storage class and encryption settings against the values S3 accepts.
func (o UploadOptions) Validate() error {
	if o.StorageClass != "" && !slices.Contains(types.StorageClass("").Values(), types.StorageClass(o.StorageClass)) {
		return fmt.Errorf("unknown storage class: %s", o.StorageClass)
	}
	if o.ServerSideEncryption != "" && !slices.Contains(types.ServerSideEncryption("").Values(), types.ServerSideEncryption(o.ServerSideEncryption)) {
		return fmt.Errorf("unknown server side encryption: %s", o.ServerSideEncryption)
	}
	if o.SSEKMSKeyID != "" && types.ServerSideEncryption(o.ServerSideEncryption) != types.ServerSideEncryptionAwsKms {
		return fmt.Errorf("KMS key ID requires %s server side encryption", types.ServerSideEncryptionAwsKms)
	}
	return nil
}

// Store uploads multipart objects to S3.
type Store struct {
	client    API
	opts      UploadOptions
	logger    log.Logger
	abortWait time.Duration
}

// NewStore ...
func NewStore(client API, opts UploadOptions, logger log.Logger) (*Store, error) {
	if client == nil {
		return nil, errors.New("s3 client must not be nil")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("validate upload options: %w", err)
	}
	if logger == nil {
		logger = log.NewLogger()
	}

	return &Store{
		client:    client,
		opts:      opts,
		logger:    logger,
		abortWait: abortRetryWait,
	}, nil
}

// BeginMultipart ...
func (s *Store) BeginMultipart(ctx context.Context, bucket, key string) (string, error) {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if s.opts.ContentType != "" {
		input.ContentType = aws.String(s.opts.ContentType)
	}
	if s.opts.ContentEncoding != "" {
		input.ContentEncoding = aws.String(s.opts.ContentEncoding)
	}
	if s.opts.StorageClass != "" {
		input.StorageClass = types.StorageClass(s.opts.StorageClass)
	}
	if s.opts.ServerSideEncryption != "" {
		input.ServerSideEncryption = types.ServerSideEncryption(s.opts.ServerSideEncryption)
	}
	if s.opts.SSEKMSKeyID != "" {
		input.SSEKMSKeyId = aws.String(s.opts.SSEKMSKeyID)
	}

	resp, err := s.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return "", s.wrap("create multipart upload", bucket, key, err)
	}

	return aws.ToString(resp.UploadId), nil
}

// UploadPart ...
func (s *Store) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, data []byte) (string, error) {
	resp, err := s.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		ContentLength: aws.Int64(int64(len(data))),
		Body:          bytes.NewReader(data),
	})
	if err != nil {
		return "", s.wrap(fmt.Sprintf("upload part %d", partNumber), bucket, key, err)
	}

	return aws.ToString(resp.ETag), nil
}

// CompleteMultipart ...
func (s *Store) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []stream.CompletedPart) error {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(part.PartNumber),
			ETag:       aws.String(part.ETag),
		})
	}

	resp, err := s.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return s.wrap("complete multipart upload", bucket, key, err)
	}

	if resp != nil && resp.Location != nil {
		s.logger.Debugf("Object location: %s", *resp.Location)
	}
	return nil
}

// AbortMultipart discards the uploaded parts. An upload that no longer exists counts as aborted.
func (s *Store) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	return retry.Times(numAbortRetries).Wait(s.abortWait).TryWithAbort(func(attempt uint) (error, bool) {
		_, err := s.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
			Bucket:   aws.String(bucket),
			Key:      aws.String(key),
			UploadId: aws.String(uploadID),
		})
		if err == nil {
			return nil, true
		}
		if IsNotFound(err) {
			s.logger.Debugf("Multipart upload %s not found, nothing to abort", uploadID)
			return nil, true
		}

		s.logger.Debugf("Abort attempt %d failed: %s", attempt+1, err)
		return s.wrap("abort multipart upload", bucket, key, err), false
	})
}

func (s *Store) wrap(op, bucket, key string, err error) error {
	var apiError smithy.APIError
	if errors.As(err, &apiError) {
		s.logger.Debugf("s3 %s failed with %s: %s", op, apiError.ErrorCode(), apiError.ErrorMessage())
	}
	return &Error{Op: op, Bucket: bucket, Key: key, Err: err}
}
