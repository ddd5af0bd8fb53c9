package stream

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"golang.org/x/sync/semaphore"
)

// dispatcher numbers chunks and uploads them on a bounded number of goroutines.
type dispatcher struct {
	store  ObjectStore
	bucket string
	key    string
	ctx    context.Context
	sem    *semaphore.Weighted
	pool   *bufferPool
	fault  *faultMonitor
	stats  *Stats
	logger log.Logger
	wg     sync.WaitGroup

	sessionMu sync.Mutex
	uploadID  string
	lastPart  int32
}

// session returns the upload ID, beginning the multipart upload on first use.
func (d *dispatcher) session() (string, error) {
	d.sessionMu.Lock()
	defer d.sessionMu.Unlock()

	if d.uploadID != "" {
		return d.uploadID, nil
	}

	uploadID, err := d.store.BeginMultipart(d.ctx, d.bucket, d.key)
	if err != nil {
		return "", fmt.Errorf("begin multipart upload: %w", err)
	}
	if uploadID == "" {
		return "", errors.New("begin multipart upload: no upload ID in response")
	}

	d.logger.Debugf("Multipart upload started: %s", uploadID)
	d.uploadID = uploadID
	return uploadID, nil
}

func (d *dispatcher) currentSession() string {
	d.sessionMu.Lock()
	defer d.sessionMu.Unlock()
	return d.uploadID
}

// dispatch submits chunk as the next part. It blocks while every upload slot is busy.
// On success the dispatcher owns chunk; on error the caller keeps it.
func (d *dispatcher) dispatch(chunk []byte) (*pendingPart, error) {
	uploadID, err := d.session()
	if err != nil {
		return nil, err
	}

	if d.lastPart >= MaxParts {
		return nil, fmt.Errorf("%w: the limit is %d parts of %s", ErrTooManyParts, MaxParts, units.BytesSize(float64(cap(chunk))))
	}

	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire upload slot: %w", err)
	}

	d.lastPart++
	part := Part{Number: d.lastPart, Data: chunk}
	pending := newPendingPart(part.Number, len(chunk))
	d.stats.dispatched()

	d.wg.Add(1)
	go d.upload(uploadID, part, pending)

	return pending, nil
}

func (d *dispatcher) upload(uploadID string, part Part, pending *pendingPart) {
	defer d.wg.Done()
	defer d.sem.Release(1)
	defer d.pool.put(part.Data)

	d.logger.Debugf("Uploading part %d (%s) [finished=%d] [avg=%v]",
		part.Number, units.BytesSize(float64(len(part.Data))),
		d.stats.FinishedCount(), d.stats.Average().Round(time.Millisecond))

	start := time.Now()
	etag, err := d.store.UploadPart(d.ctx, d.bucket, d.key, uploadID, part.Number, part.Data)
	if err == nil && etag == "" {
		err = errors.New("no ETag in response")
	}
	if err != nil {
		partErr := &PartError{PartNumber: part.Number, Err: err}
		if d.fault.set(partErr) && d.ctx.Err() == nil {
			d.logger.Warnf("Part %d upload failed, the stream can not be completed: %s", part.Number, err)
		}
		pending.resolve("", partErr)
		return
	}

	took := time.Since(start)
	d.stats.finished(took)
	d.logger.Debugf("Part %d uploaded in %v, ETag: %s", part.Number, took.Round(time.Millisecond), etag)
	pending.resolve(etag, nil)
}

// wait blocks until every started upload goroutine returned.
func (d *dispatcher) wait() {
	d.wg.Wait()
}
