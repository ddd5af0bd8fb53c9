package s3store

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignGetURL returns a URL that allows downloading the object without credentials until expiry.
func PresignGetURL(ctx context.Context, client *s3.Client, bucket, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		return "", fmt.Errorf("expiry must be positive, got %s", expiry)
	}

	presignClient := s3.NewPresignClient(client)
	request, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, func(opts *s3.PresignOptions) {
		opts.Expires = expiry
	})
	if err != nil {
		return "", &Error{Op: "presign get", Bucket: bucket, Key: key, Err: err}
	}

	return request.URL, nil
}
