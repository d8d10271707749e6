// Package diag keeps the most recent log output in memory so it can be
// served over the local bridge.
package diag

import (
	"bytes"
	"sync"
)

const DefaultCapacity = 64 * 1024

// Ring is a bounded byte buffer that keeps the newest bytes.
type Ring struct {
	mu       sync.RWMutex
	data     []byte
	capacity int
	dropped  bool
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{capacity: capacity}
}

// Write never fails. It satisfies io.Writer so the ring can sit behind a
// log handler.
func (r *Ring) Write(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data = append(r.data, p...)
	if len(r.data) > r.capacity {
		r.data = append([]byte(nil), r.data[len(r.data)-r.capacity:]...)
		r.dropped = true
	}
	return len(p), nil
}

func (r *Ring) Snapshot() []byte {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.data) == 0 {
		return nil
	}
	return append([]byte(nil), r.data...)
}

// Lines returns up to n complete trailing lines. A partial first line left
// over from trimming is skipped.
func (r *Ring) Lines(n int) []string {
	if n <= 0 {
		return nil
	}
	r.mu.RLock()
	snap := r.data
	dropped := r.dropped
	r.mu.RUnlock()

	if dropped {
		i := bytes.IndexByte(snap, '\n')
		if i < 0 {
			return nil
		}
		snap = snap[i+1:]
	}
	snap = bytes.TrimRight(snap, "\n")
	if len(snap) == 0 {
		return nil
	}
	parts := bytes.Split(snap, []byte{'\n'})
	if len(parts) > n {
		parts = parts[len(parts)-n:]
	}
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}
