package pipeline

import (
	"fmt"
	"sync/atomic"
)

// Sequencer numbers accepted chunks. Sequence order is the emit order.
type Sequencer struct {
	counter uint64
}

func NewSequencer() *Sequencer {
	return &Sequencer{}
}

// Next returns the next sequence number and the chunk id derived from it.
func (s *Sequencer) Next(sessionID string) (uint64, string) {
	n := atomic.AddUint64(&s.counter, 1)
	return n, fmt.Sprintf("%s-chunk-%d", sessionID, n)
}
