package testutil

import (
	"fmt"
	"sync"
)

// SequenceIDGenerator generates predictable job ids: "<prefix>-1",
// "<prefix>-2", and so on.
//
// Implements engine.IDGenerator. Golden snapshots stay byte-identical
// across runs because ids no longer carry timestamps.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequenceIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceIDGenerator creates a generator. An empty prefix becomes "test".
func NewSequenceIDGenerator(prefix string) *SequenceIDGenerator {
	if prefix == "" {
		prefix = "test"
	}
	return &SequenceIDGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}
