package stream

import (
	"sync"
	"sync/atomic"
)

// faultMonitor records the first part upload failure. Once faulted it never recovers.
type faultMonitor struct {
	once    sync.Once
	faulted atomic.Bool
	cause   error
	tripped chan struct{}
}

func newFaultMonitor() *faultMonitor {
	return &faultMonitor{tripped: make(chan struct{})}
}

// set records err as the cause unless a cause was already recorded.
// It reports whether this call moved the monitor into the faulted state.
func (m *faultMonitor) set(err error) bool {
	first := false
	m.once.Do(func() {
		m.cause = err
		m.faulted.Store(true)
		close(m.tripped)
		first = true
	})
	return first
}

func (m *faultMonitor) failed() bool {
	return m.faulted.Load()
}

// done is closed when the monitor becomes faulted.
func (m *faultMonitor) done() <-chan struct{} {
	return m.tripped
}

// err returns the recorded cause, or nil while healthy.
func (m *faultMonitor) err() error {
	if !m.faulted.Load() {
		return nil
	}
	return m.cause
}
