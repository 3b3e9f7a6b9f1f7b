package dispatch

import (
	"sync"

	"gitlab.com/scenecast.net/internal/domain"
)

// StatusNotifier fans committed records out to watchers of a job.
type StatusNotifier struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan domain.JobRecord]struct{}
}

func NewStatusNotifier() *StatusNotifier {
	return &StatusNotifier{
		subscribers: make(map[string]map[chan domain.JobRecord]struct{}),
	}
}

// Subscribe registers a watcher for jobID. The returned func removes it.
func (n *StatusNotifier) Subscribe(jobID string) (<-chan domain.JobRecord, func()) {
	ch := make(chan domain.JobRecord, 2)

	n.mu.Lock()
	if n.subscribers[jobID] == nil {
		n.subscribers[jobID] = make(map[chan domain.JobRecord]struct{})
	}
	n.subscribers[jobID][ch] = struct{}{}
	n.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			n.mu.Lock()
			defer n.mu.Unlock()
			delete(n.subscribers[jobID], ch)
			if len(n.subscribers[jobID]) == 0 {
				delete(n.subscribers, jobID)
			}
		})
	}
}

// Publish never blocks; a watcher with a full buffer misses the record.
func (n *StatusNotifier) Publish(jobID string, rec domain.JobRecord) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.subscribers[jobID] {
		select {
		case ch <- rec:
		default:
		}
	}
}

func (n *StatusNotifier) watchers(jobID string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers[jobID])
}
