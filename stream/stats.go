package stream

import (
	"sync"
	"time"
)

// Stats tracks upload progress of a Writer.
type Stats struct {
	mu              sync.Mutex
	bytesWritten    int64
	partsDispatched int64
	partsFinished   int64
	sum             time.Duration
}

// StatsSnapshot is a point-in-time copy of Stats.
type StatsSnapshot struct {
	BytesWritten    int64
	PartsDispatched int64
	PartsFinished   int64
	AverageDuration time.Duration
}

func (s *Stats) addBytes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesWritten += int64(n)
}

func (s *Stats) dispatched() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.partsDispatched++
}

// finished records a successful part upload duration.
func (s *Stats) finished(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sum += d
	s.partsFinished++
}

// Average returns the average upload duration of finished parts.
func (s *Stats) Average() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.average()
}

func (s *Stats) average() time.Duration {
	if s.partsFinished == 0 {
		return 0
	}
	return s.sum / time.Duration(s.partsFinished)
}

// FinishedCount returns the number of successfully uploaded parts.
func (s *Stats) FinishedCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partsFinished
}

// Snapshot returns a copy of the current counters.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		BytesWritten:    s.bytesWritten,
		PartsDispatched: s.partsDispatched,
		PartsFinished:   s.partsFinished,
		AverageDuration: s.average(),
	}
}
