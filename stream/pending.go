package stream

import "errors"

// errWaitStopped is returned by wait when the stream faulted before the part finished.
var errWaitStopped = errors.New("stopped waiting for part upload")

// pendingPart is the eventual outcome of one part upload.
type pendingPart struct {
	number int32
	size   int
	done   chan struct{}
	etag   string
	err    error
}

func newPendingPart(number int32, size int) *pendingPart {
	return &pendingPart{
		number: number,
		size:   size,
		done:   make(chan struct{}),
	}
}

// resolve must be called exactly once.
func (p *pendingPart) resolve(etag string, err error) {
	p.etag = etag
	p.err = err
	close(p.done)
}

func (p *pendingPart) isDone() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}

// wait blocks until the part upload finished or stop is closed.
func (p *pendingPart) wait(stop <-chan struct{}) (CompletedPart, error) {
	select {
	case <-p.done:
	case <-stop:
		return CompletedPart{}, errWaitStopped
	}
	if p.err != nil {
		return CompletedPart{}, p.err
	}
	return CompletedPart{PartNumber: p.number, ETag: p.etag}, nil
}
