package engine

import (
	"fmt"
	"hash/fnv"
	"math/rand"
)

// Stream is the seeded pseudo-random source threaded through friction,
// governance and the walker. One stream is built per decision bar from the
// run seed and the bar's identity, so a run is reproducible bar by bar no
// matter how instruments are scheduled across workers. There is no global
// generator anywhere in the engine.
type Stream struct {
	*rand.Rand
}

// NewStream returns a stream positioned at the start of its sequence.
func NewStream(seed int64) *Stream {
	return &Stream{Rand: rand.New(rand.NewSource(seed))}
}

// SeedFor derives the deterministic seed for one decision bar. The same
// derivation feeds both the per-bar stream and the friction jitter, keyed by
// everything that identifies the bar across runs.
func SeedFor(base int64, instrument, variant, agent string, barIndex int) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d|%s|%s|%s|%d", base, instrument, variant, agent, barIndex)
	return int64(h.Sum64())
}
