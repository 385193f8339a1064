package catalog

import (
	"sync"

	"github.com/novelly/novelly-server/internal/metrics"
)

// DefaultQueueCapacity bounds the number of keys waiting for enrichment.
const DefaultQueueCapacity = 1000

// enrichmentQueue is a de-duplicated FIFO of catalog keys waiting for
// tier-3 enrichment, plus a one-slot signal channel that wakes the worker.
type enrichmentQueue struct {
	mu       sync.Mutex
	keys     []string
	pending  map[string]struct{}
	capacity int
	signal   chan struct{}
}

func newEnrichmentQueue(capacity int) *enrichmentQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &enrichmentQueue{
		pending:  make(map[string]struct{}),
		capacity: capacity,
		signal:   make(chan struct{}, 1),
	}
}

// add queues key unless it is already pending or the queue is full.
// It never blocks.
func (q *enrichmentQueue) add(key string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[key]; ok {
		return false
	}
	if len(q.keys) >= q.capacity {
		return false
	}
	q.pending[key] = struct{}{}
	q.keys = append(q.keys, key)
	metrics.EnrichmentQueueDepth.Set(float64(len(q.keys)))
	return true
}

// peek returns up to n keys from the front without removing them.
func (q *enrichmentQueue) peek(n int) []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	n = min(n, len(q.keys))
	out := make([]string, n)
	copy(out, q.keys[:n])
	return out
}

func (q *enrichmentQueue) remove(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.pending[key]; !ok {
		return
	}
	delete(q.pending, key)
	for i, k := range q.keys {
		if k == key {
			q.keys = append(q.keys[:i], q.keys[i+1:]...)
			break
		}
	}
	metrics.EnrichmentQueueDepth.Set(float64(len(q.keys)))
}

func (q *enrichmentQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.keys)
}

// notify wakes the worker. Signals coalesce while one is pending.
func (q *enrichmentQueue) notify() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}
