// Package memstore is an in-memory multipart object store for tests.
package memstore

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/bitrise-io/go-s3stream/stream"
)

var (
	_ stream.ObjectStore = (*Store)(nil)
	_ stream.Aborter     = (*Store)(nil)
)

// Calls counts the store operations.
type Calls struct {
	Begin      int
	UploadPart int
	Complete   int
	Abort      int
}

type upload struct {
	bucket  string
	key     string
	parts   map[int32][]byte
	etags   map[int32]string
	aborted bool
}

// Store keeps objects and multipart uploads in memory. It is safe for concurrent use.
type Store struct {
	// BeginErr, CompleteErr and AbortErr fail the corresponding operation when set.
	BeginErr    error
	CompleteErr error
	AbortErr    error

	// UploadPartFunc runs before a part is stored. A non-nil error fails the part.
	// It may block to simulate slow transfers.
	UploadPartFunc func(ctx context.Context, partNumber int32, data []byte) error

	mu          sync.Mutex
	objects     map[string][]byte
	uploads     map[string]*upload
	nextID      int
	calls       Calls
	partNumbers []int32
	inFlight    int
	maxInFlight int
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		objects: map[string][]byte{},
		uploads: map[string]*upload{},
	}
}

// BeginMultipart ...
func (s *Store) BeginMultipart(ctx context.Context, bucket, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls.Begin++
	if s.BeginErr != nil {
		return "", s.BeginErr
	}

	s.nextID++
	uploadID := fmt.Sprintf("upload-%d", s.nextID)
	s.uploads[uploadID] = &upload{
		bucket: bucket,
		key:    key,
		parts:  map[int32][]byte{},
		etags:  map[int32]string{},
	}
	return uploadID, nil
}

// UploadPart ...
func (s *Store) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, data []byte) (string, error) {
	// the caller reuses data after the call returns
	body := make([]byte, len(data))
	copy(body, data)

	s.mu.Lock()
	s.calls.UploadPart++
	s.partNumbers = append(s.partNumbers, partNumber)
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inFlight--
		s.mu.Unlock()
	}()

	if s.UploadPartFunc != nil {
		if err := s.UploadPartFunc(ctx, partNumber, body); err != nil {
			return "", err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.uploads[uploadID]
	if !ok || u.aborted {
		return "", fmt.Errorf("no such upload: %s", uploadID)
	}

	sum := md5.Sum(body)
	etag := fmt.Sprintf("%q", hex.EncodeToString(sum[:]))
	u.parts[partNumber] = body
	u.etags[partNumber] = etag
	return etag, nil
}

// CompleteMultipart ...
func (s *Store) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []stream.CompletedPart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls.Complete++
	if s.CompleteErr != nil {
		return s.CompleteErr
	}

	u, ok := s.uploads[uploadID]
	if !ok || u.aborted {
		return fmt.Errorf("no such upload: %s", uploadID)
	}
	if len(parts) == 0 {
		return fmt.Errorf("no parts to complete upload %s", uploadID)
	}

	var object bytes.Buffer
	var previous int32
	for _, part := range parts {
		if part.PartNumber <= previous {
			return fmt.Errorf("parts are not in ascending order: %d after %d", part.PartNumber, previous)
		}
		previous = part.PartNumber

		data, ok := u.parts[part.PartNumber]
		if !ok {
			return fmt.Errorf("part %d was not uploaded", part.PartNumber)
		}
		if u.etags[part.PartNumber] != part.ETag {
			return fmt.Errorf("ETag mismatch for part %d", part.PartNumber)
		}
		object.Write(data)
	}

	s.objects[objectKey(bucket, key)] = object.Bytes()
	delete(s.uploads, uploadID)
	return nil
}

// AbortMultipart ...
func (s *Store) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls.Abort++
	if s.AbortErr != nil {
		return s.AbortErr
	}

	u, ok := s.uploads[uploadID]
	if !ok {
		return fmt.Errorf("no such upload: %s", uploadID)
	}
	u.aborted = true
	return nil
}

// Object returns a completed object.
func (s *Store) Object(bucket, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[objectKey(bucket, key)]
	return data, ok
}

// Calls returns the operation counters.
func (s *Store) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// PartNumbers returns the uploaded part numbers in ascending order.
func (s *Store) PartNumbers() []int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	numbers := append([]int32(nil), s.partNumbers...)
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	return numbers
}

// MaxInFlight returns the highest number of concurrent UploadPart calls observed.
func (s *Store) MaxInFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxInFlight
}

// Aborted reports whether the given upload was aborted.
func (s *Store) Aborted(uploadID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.uploads[uploadID]
	return ok && u.aborted
}

func objectKey(bucket, key string) string {
	return bucket + "/" + key
}
