package s3store

import (
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Error is a failed S3 operation on a single object.
type Error struct {
	Op     string
	Bucket string
	Key    string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("s3 %s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the object or the multipart upload does not exist.
func IsNotFound(err error) bool {
	var apiError smithy.APIError
	if !errors.As(err, &apiError) {
		return false
	}

	switch apiError.(type) {
	case *types.NotFound, *types.NoSuchKey, *types.NoSuchUpload:
		return true
	}

	switch apiError.ErrorCode() {
	case "NotFound", "NoSuchKey", "NoSuchUpload":
		return true
	}
	return false
}
