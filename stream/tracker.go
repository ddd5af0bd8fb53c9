package stream

import (
	"github.com/bitrise-io/go-utils/v2/log"
)

// tracker holds the pending parts in part number order.
type tracker struct {
	parts []*pendingPart
}

func (t *tracker) add(p *pendingPart) {
	t.parts = append(t.parts, p)
}

func (t *tracker) len() int {
	return len(t.parts)
}

// drain logs every part that already finished with a failure.
func (t *tracker) drain(logger log.Logger) int {
	failed := 0
	for _, p := range t.parts {
		if !p.isDone() || p.err == nil {
			continue
		}
		failed++
		logger.Debugf("Part %d failed: %s", p.number, p.err)
	}
	return failed
}

// resolve waits for every part in part number order and returns the completed parts
// together with the total number of bytes uploaded. The first failure, or stop being closed,
// ends the wait.
func (t *tracker) resolve(stop <-chan struct{}) ([]CompletedPart, int64, error) {
	completed := make([]CompletedPart, 0, len(t.parts))
	var size int64
	for _, p := range t.parts {
		part, err := p.wait(stop)
		if err != nil {
			return nil, 0, err
		}
		completed = append(completed, part)
		size += int64(p.size)
	}
	return completed, size, nil
}
