package pipeline

import (
	"sync"
	"testing"
)

func TestSequencer_Next(t *testing.T) {
	seq := NewSequencer()

	n1, id1 := seq.Next("sess-123")
	if n1 != 1 || id1 != "sess-123-chunk-1" {
		t.Errorf("expected (1, 'sess-123-chunk-1'), got (%d, %s)", n1, id1)
	}

	n2, id2 := seq.Next("sess-123")
	if n2 != 2 || id2 != "sess-123-chunk-2" {
		t.Errorf("expected (2, 'sess-123-chunk-2'), got (%d, %s)", n2, id2)
	}
}

func TestSequencer_ThreadSafety(t *testing.T) {
	seq := NewSequencer()
	numGoroutines := 100
	perGoroutine := 10

	var wg sync.WaitGroup
	results := make(chan uint64, numGoroutines*perGoroutine)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				n, _ := seq.Next("sess-concurrent")
				results <- n
			}
		}()
	}

	wg.Wait()
	close(results)

	seen := make(map[uint64]bool)
	for n := range results {
		if seen[n] {
			t.Errorf("duplicate sequence: %d", n)
		}
		seen[n] = true
	}

	if len(seen) != numGoroutines*perGoroutine {
		t.Errorf("expected %d unique sequences, got %d", numGoroutines*perGoroutine, len(seen))
	}
}
