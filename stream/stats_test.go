package stream

import (
	"testing"
	"time"
)

func TestStats(t *testing.T) {
	var stats Stats

	if stats.FinishedCount() != 0 {
		t.Errorf("Expected 0 finished, got %d", stats.FinishedCount())
	}

	if stats.Average() != 0 {
		t.Errorf("Expected 0 average, got %v", stats.Average())
	}

	stats.addBytes(10)
	stats.addBytes(5)
	for i := 0; i < 3; i++ {
		stats.dispatched()
	}
	stats.finished(100 * time.Millisecond)
	stats.finished(200 * time.Millisecond)
	stats.finished(300 * time.Millisecond)

	if stats.FinishedCount() != 3 {
		t.Errorf("Expected 3 finished, got %d", stats.FinishedCount())
	}

	expectedAvg := 200 * time.Millisecond
	if stats.Average() != expectedAvg {
		t.Errorf("Expected %v average, got %v", expectedAvg, stats.Average())
	}

	snapshot := stats.Snapshot()
	expected := StatsSnapshot{
		BytesWritten:    15,
		PartsDispatched: 3,
		PartsFinished:   3,
		AverageDuration: expectedAvg,
	}
	if snapshot != expected {
		t.Errorf("Expected snapshot %+v, got %+v", expected, snapshot)
	}
}
