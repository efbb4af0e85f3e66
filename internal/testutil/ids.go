// Package testutil holds helpers shared by tests and the scenario harness.
package testutil

import (
	"fmt"
	"sync"
)

// SequentialIDGenerator generates call IDs "<prefix>-0001", "<prefix>-0002",
// and so on.
//
// The same scenario run with the same prefix produces byte-identical call
// logs, which golden files rely on. Unlike engine.FixedGenerator it never
// runs out.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialIDGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialIDGenerator creates a generator. An empty prefix becomes
// "call".
func NewSequentialIDGenerator(prefix string) *SequentialIDGenerator {
	if prefix == "" {
		prefix = "call"
	}
	return &SequentialIDGenerator{prefix: prefix}
}

// Generate returns the next ID.
//
// Implements engine.IDGenerator.
func (g *SequentialIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%04d", g.prefix, g.n)
}
