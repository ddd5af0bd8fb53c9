package s3store

import (
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/mock"
)

// MockAPI ...
type MockAPI struct {
	mock.Mock
}

// CreateMultipartUpload ...
func (m *MockAPI) CreateMultipartUpload(ctx context.Context, params *s3.CreateMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CreateMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.CreateMultipartUploadOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

// UploadPart ...
func (m *MockAPI) UploadPart(ctx context.Context, params *s3.UploadPartInput, _ ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	// the body is only readable during the call
	body, err := io.ReadAll(params.Body)
	if err != nil {
		return nil, err
	}

	args := m.Called(ctx, aws.ToInt32(params.PartNumber), string(body))
	if out := args.Get(0); out != nil {
		return out.(*s3.UploadPartOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

// CompleteMultipartUpload ...
func (m *MockAPI) CompleteMultipartUpload(ctx context.Context, params *s3.CompleteMultipartUploadInput, _ ...func(*s3.Options)) (*s3.CompleteMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.CompleteMultipartUploadOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

// AbortMultipartUpload ...
func (m *MockAPI) AbortMultipartUpload(ctx context.Context, params *s3.AbortMultipartUploadInput, _ ...func(*s3.Options)) (*s3.AbortMultipartUploadOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.AbortMultipartUploadOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

// GivenCreateSucceeds ...
func (m *MockAPI) GivenCreateSucceeds(uploadID string) *MockAPI {
	m.On("CreateMultipartUpload", mock.Anything, mock.Anything).
		Return(&s3.CreateMultipartUploadOutput{UploadId: aws.String(uploadID)}, nil)
	return m
}

// GivenUploadPartSucceeds ...
func (m *MockAPI) GivenUploadPartSucceeds(partNumber int32, body, etag string) *MockAPI {
	m.On("UploadPart", mock.Anything, partNumber, body).
		Return(&s3.UploadPartOutput{ETag: aws.String(etag)}, nil)
	return m
}

// GivenCompleteSucceeds ...
func (m *MockAPI) GivenCompleteSucceeds() *MockAPI {
	m.On("CompleteMultipartUpload", mock.Anything, mock.Anything).
		Return(&s3.CompleteMultipartUploadOutput{}, nil)
	return m
}

// MockDownloadAPI ...
type MockDownloadAPI struct {
	mock.Mock
}

// GetObject ...
func (m *MockDownloadAPI) GetObject(ctx context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*s3.GetObjectOutput), args.Error(1)
	}
	return nil, args.Error(1)
}
