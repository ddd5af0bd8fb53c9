// Package stream provides an io.WriteCloser that uploads an unbounded byte stream to an
// object store using multipart uploads. The stream is cut into fixed-size chunks which are
// uploaded in parallel by a bounded number of workers; the object is completed on Close.
package stream

import (
	"context"
)

// ObjectStore is the subset of a multipart-capable object store the Writer needs.
type ObjectStore interface {
	// BeginMultipart starts a multipart upload and returns its upload ID.
	BeginMultipart(ctx context.Context, bucket, key string) (string, error)

	// UploadPart uploads one numbered part and returns its ETag.
	// data is only valid for the duration of the call.
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, data []byte) (string, error)

	// CompleteMultipart assembles the uploaded parts, in the given order, into the final object.
	CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) error
}

// Aborter is implemented by stores that can discard an in-progress multipart upload.
type Aborter interface {
	AbortMultipart(ctx context.Context, bucket, key, uploadID string) error
}

// Part is a single chunk of the stream together with its part number.
type Part struct {
	Number int32
	Data   []byte
}

// CompletedPart identifies an uploaded part.
type CompletedPart struct {
	PartNumber int32
	ETag       string
}

// Result describes a completed upload.
type Result struct {
	Bucket   string
	Key      string
	UploadID string
	Parts    []CompletedPart
	Size     int64
}
