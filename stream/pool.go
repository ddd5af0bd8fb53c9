package stream

import "sync"

// bufferPool recycles chunk buffers between finished part uploads and the accumulator.
type bufferPool struct {
	size int
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	p := &bufferPool{size: size}
	p.pool.New = func() interface{} {
		buf := make([]byte, 0, size)
		return &buf
	}
	return p
}

// get returns an empty buffer with capacity for one chunk.
func (p *bufferPool) get() []byte {
	bufPtr := p.pool.Get().(*[]byte)
	return (*bufPtr)[:0]
}

// put returns a buffer to the pool. The buffer must not be used afterwards.
func (p *bufferPool) put(buf []byte) {
	if cap(buf) != p.size {
		return
	}
	buf = buf[:0]
	p.pool.Put(&buf)
}
