package stream

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFaultMonitor(t *testing.T) {
	m := newFaultMonitor()

	assert.False(t, m.failed())
	assert.NoError(t, m.err())
	select {
	case <-m.done():
		t.Fatal("healthy monitor reports done")
	default:
	}

	first := errors.New("first")
	assert.True(t, m.set(first))
	assert.False(t, m.set(errors.New("second")))

	assert.True(t, m.failed())
	assert.Equal(t, first, m.err())
	<-m.done()
}

func TestFaultMonitor_ConcurrentSet(t *testing.T) {
	m := newFaultMonitor()

	var wg sync.WaitGroup
	results := make(chan bool, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- m.set(fmt.Errorf("part %d", i))
		}(i)
	}
	wg.Wait()
	close(results)

	firsts := 0
	for first := range results {
		if first {
			firsts++
		}
	}
	assert.Equal(t, 1, firsts)
	require.Error(t, m.err())
	assert.Equal(t, m.err(), m.err())
}
