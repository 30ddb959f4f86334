package state

import (
	"fmt"
	"sync"
	"time"
)

// Namer hands out unique annotation names: kind, wall clock milliseconds
// and a per-kind counter.
type Namer struct {
	mu       sync.Mutex
	counters map[string]uint64
	now      func() time.Time
}

func NewNamer() *Namer {
	return &Namer{counters: make(map[string]uint64), now: time.Now}
}

// Next returns a fresh name for kind.
func (n *Namer) Next(kind string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.counters[kind]++
	return fmt.Sprintf("%s_%d_%d", kind, n.now().UnixMilli(), n.counters[kind])
}
