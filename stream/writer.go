package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
	"golang.org/x/sync/semaphore"
)

var (
	_ io.WriteCloser  = (*Writer)(nil)
	_ io.ByteWriter   = (*Writer)(nil)
	_ io.StringWriter = (*Writer)(nil)
	_ io.ReaderFrom   = (*Writer)(nil)
)

// Writer streams everything written to it into a single object using a multipart upload.
//
// Writes are collected into chunks of Config.ChunkSize bytes. Every full chunk is uploaded
// as the next part on a background goroutine; at most Config.Concurrency parts are in flight,
// further writes block until a slot frees up. Close uploads the remaining bytes and completes
// the object. Nothing is uploaded and no multipart upload is started if no bytes were written.
//
// The first failed part upload puts the Writer into a failed state: the next Write or Close
// returns the failure and the object is never completed.
//
// A Writer must be used by a single producer; its methods are serialised.
type Writer struct {
	mu     sync.Mutex
	cfg    Config
	store  ObjectStore
	logger log.Logger

	parent context.Context
	cancel context.CancelFunc

	pool       *bufferPool
	buf        []byte
	dispatcher *dispatcher
	tracker    tracker
	fault      *faultMonitor
	stats      Stats
	started    time.Time

	closed bool
	err    error
	result *Result
}

// NewWriter creates a Writer uploading to cfg.Bucket/cfg.Key through store.
// ctx bounds every store call made by the Writer. A nil logger falls back to log.NewLogger().
func NewWriter(ctx context.Context, store ObjectStore, cfg Config, logger log.Logger) (*Writer, error) {
	if store == nil {
		return nil, errors.New("object store must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewLogger()
	}

	uploadCtx, cancel := context.WithCancel(ctx)
	w := &Writer{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		parent:  ctx,
		cancel:  cancel,
		pool:    newBufferPool(cfg.ChunkSize),
		fault:   newFaultMonitor(),
		started: time.Now(),
	}
	w.buf = w.pool.get()
	w.dispatcher = &dispatcher{
		store:  store,
		bucket: cfg.Bucket,
		key:    cfg.Key,
		ctx:    uploadCtx,
		sem:    semaphore.NewWeighted(int64(cfg.Concurrency)),
		pool:   w.pool,
		fault:  w.fault,
		stats:  &w.stats,
		logger: logger,
	}

	return w, nil
}

// Write appends p to the stream. Writes larger than the chunk size are split across parts.
// It blocks while all upload slots are busy.
func (w *Writer) Write(p []byte) (int, error) {
	if w == nil {
		return 0, ErrNilWriter
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writable(); err != nil {
		return 0, err
	}

	n := 0
	for len(p) > 0 {
		free := w.cfg.ChunkSize - len(w.buf)
		if free > len(p) {
			free = len(p)
		}

		w.buf = append(w.buf, p[:free]...)
		p = p[free:]
		n += free
		w.stats.addBytes(free)

		if len(w.buf) == w.cfg.ChunkSize {
			if err := w.flush(); err != nil {
				return n, err
			}
		}
	}

	return n, nil
}

// WriteByte appends a single byte to the stream.
func (w *Writer) WriteByte(c byte) error {
	if w == nil {
		return ErrNilWriter
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writable(); err != nil {
		return err
	}

	if len(w.buf) == w.cfg.ChunkSize {
		// a previous dispatch failed before the session could be started
		if err := w.flush(); err != nil {
			return err
		}
	}

	w.buf = append(w.buf, c)
	w.stats.addBytes(1)

	if len(w.buf) == w.cfg.ChunkSize {
		return w.flush()
	}
	return nil
}

// WriteString appends s to the stream.
func (w *Writer) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// ReadFrom reads r until EOF straight into chunk buffers.
func (w *Writer) ReadFrom(r io.Reader) (int64, error) {
	if w == nil {
		return 0, ErrNilWriter
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writable(); err != nil {
		return 0, err
	}

	var total int64
	for {
		if len(w.buf) == w.cfg.ChunkSize {
			if err := w.flush(); err != nil {
				return total, err
			}
		}

		n, err := r.Read(w.buf[len(w.buf):w.cfg.ChunkSize])
		w.buf = w.buf[:len(w.buf)+n]
		total += int64(n)
		w.stats.addBytes(n)

		if errors.Is(err, io.EOF) {
			return total, nil
		}
		if err != nil {
			return total, fmt.Errorf("read source: %w", err)
		}
	}
}

// Close uploads the buffered bytes, waits for every part and completes the object.
// After a failed part upload Close returns that failure and the object is not completed.
// A failed Close still closes the Writer; later calls return the same error.
func (w *Writer) Close() error {
	if w == nil {
		return ErrNilWriter
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		if w.err != nil {
			return w.err
		}
		return ErrClosed
	}
	w.closed = true
	defer w.cancel()

	if err := w.complete(); err != nil {
		w.err = err
		return err
	}
	return nil
}

func (w *Writer) complete() error {
	if w.err != nil {
		return w.fail(w.err)
	}
	if err := w.flush(); err != nil {
		return w.fail(err)
	}
	w.buf = nil

	parts, size, err := w.tracker.resolve(w.fault.done())
	if err != nil {
		if faultErr := w.checkFault(); faultErr != nil {
			err = faultErr
		}
		return w.fail(err)
	}
	w.dispatcher.wait()

	uploadID := w.dispatcher.currentSession()
	if len(parts) == 0 {
		w.logger.Debugf("Nothing was written, skipping upload of %s/%s", w.cfg.Bucket, w.cfg.Key)
		w.result = &Result{Bucket: w.cfg.Bucket, Key: w.cfg.Key}
		return nil
	}

	w.logger.Debugf("Completing multipart upload %s with %d parts", uploadID, len(parts))
	if err := w.store.CompleteMultipart(w.dispatcher.ctx, w.cfg.Bucket, w.cfg.Key, uploadID, parts); err != nil {
		w.abortUpload()
		return fmt.Errorf("complete multipart upload: %w", err)
	}

	w.result = &Result{
		Bucket:   w.cfg.Bucket,
		Key:      w.cfg.Key,
		UploadID: uploadID,
		Parts:    parts,
		Size:     size,
	}
	w.logger.Donef("Uploaded %s in %d parts to %s/%s in %s",
		units.HumanSizeWithPrecision(float64(size), 3), len(parts), w.cfg.Bucket, w.cfg.Key,
		time.Since(w.started).Round(time.Millisecond))

	return nil
}

// Abort discards the stream: outstanding part uploads are cancelled and the multipart upload
// is aborted if the store supports it. The Writer is closed afterwards.
func (w *Writer) Abort() error {
	if w == nil {
		return ErrNilWriter
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	w.closed = true
	w.buf = nil

	w.cancel()
	w.dispatcher.wait()
	w.abortUpload()

	return nil
}

// Result returns the completed upload, or nil until Close succeeded.
func (w *Writer) Result() *Result {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.result
}

// Stats returns the current upload counters.
func (w *Writer) Stats() StatsSnapshot {
	if w == nil {
		return StatsSnapshot{}
	}
	return w.stats.Snapshot()
}

// writable reports why the stream can not accept bytes, if it can not.
func (w *Writer) writable() error {
	if w.err != nil {
		return w.err
	}
	if w.closed {
		return ErrClosed
	}
	return w.checkFault()
}

// checkFault surfaces a recorded part failure: outstanding uploads are cancelled and the
// failure becomes the permanent error of the Writer.
func (w *Writer) checkFault() error {
	if !w.fault.failed() {
		return nil
	}
	if w.err != nil {
		return w.err
	}

	failed := w.tracker.drain(w.logger)
	w.logger.Debugf("%d of %d parts failed, cancelling outstanding uploads", failed, w.tracker.len())
	w.cancel()
	w.err = w.fault.err()
	return w.err
}

// flush hands the current buffer to the dispatcher as the next part.
func (w *Writer) flush() error {
	if err := w.checkFault(); err != nil {
		return err
	}
	if len(w.buf) == 0 {
		return nil
	}

	pending, err := w.dispatcher.dispatch(w.buf)
	if err != nil {
		if faultErr := w.checkFault(); faultErr != nil {
			return faultErr
		}
		if errors.Is(err, ErrTooManyParts) {
			w.err = err
		}
		return err
	}

	w.tracker.add(pending)
	w.buf = w.pool.get()
	return nil
}

// fail stops every outstanding upload and aborts the multipart upload.
func (w *Writer) fail(err error) error {
	w.cancel()
	w.dispatcher.wait()
	w.abortUpload()
	return err
}

func (w *Writer) abortUpload() {
	uploadID := w.dispatcher.currentSession()
	if !w.cfg.AbortOnFailure || uploadID == "" {
		return
	}

	aborter, ok := w.store.(Aborter)
	if !ok {
		w.logger.Debugf("Object store can not abort uploads, leaving multipart upload %s", uploadID)
		return
	}

	// the upload context is already cancelled here
	ctx := context.WithoutCancel(w.parent)
	if err := aborter.AbortMultipart(ctx, w.cfg.Bucket, w.cfg.Key, uploadID); err != nil {
		w.logger.Warnf("Failed to abort multipart upload %s: %s", uploadID, err)
		return
	}
	w.logger.Debugf("Multipart upload %s aborted", uploadID)
}
