// Package random is the deterministic randomness source for battles.
//
// An Engine is an explicit value owned by whoever is authoritative for the
// outcome (the battle host). It is never a package global: every caller that
// needs a draw receives the engine it should consume.
package random

import (
	"fmt"
	"math/rand/v2"
)

// DefaultIncrement is used by Seeded when callers only have a single seed.
const DefaultIncrement uint64 = 0xda3e39cb94b95bdb

// Engine wraps a PCG generator and counts the draws taken from it.
type Engine struct {
	pcg   *rand.PCG
	seed  uint64
	inc   uint64
	draws uint64
}

func New(seed, increment uint64) *Engine {
	return &Engine{pcg: rand.NewPCG(seed, increment), seed: seed, inc: increment}
}

func Seeded(seed uint64) *Engine {
	return New(seed, DefaultIncrement)
}

// Seed resets the stream, keeping the current increment.
func (e *Engine) Seed(seed uint64) {
	e.pcg.Seed(seed, e.inc)
	e.seed = seed
	e.draws = 0
}

func (e *Engine) SeedPair() (seed, increment uint64) {
	return e.seed, e.inc
}

// Draws reports how many 32-bit values have been consumed since seeding.
func (e *Engine) Draws() uint64 {
	return e.draws
}

func (e *Engine) NextU32() uint32 {
	e.draws++
	return uint32(e.pcg.Uint64() >> 32)
}

// Range returns a uniform value in [min, max). Values of the raw draw that
// would bias the modulo are rejected and redrawn. An empty range returns min
// without consuming the stream.
func (e *Engine) Range(min, max int) int {
	if max <= min {
		return min
	}
	span := uint32(max - min)
	threshold := -span % span
	for {
		r := e.NextU32()
		if r >= threshold {
			return min + int(r%span)
		}
	}
}

// Chance is true with probability numerator/denominator.
func (e *Engine) Chance(numerator, denominator int) bool {
	if denominator <= 0 {
		return false
	}
	return e.Range(0, denominator) < numerator
}

// State captures the generator so a battle can be snapshotted and resumed.
func (e *Engine) State() ([]byte, error) {
	b, err := e.pcg.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal rng state: %w", err)
	}
	return b, nil
}

func (e *Engine) Restore(state []byte) error {
	if err := e.pcg.UnmarshalBinary(state); err != nil {
		return fmt.Errorf("restore rng state: %w", err)
	}
	return nil
}

// Clone returns an independent engine positioned at the same point in the
// stream.
func (e *Engine) Clone() *Engine {
	cp := *e.pcg
	return &Engine{pcg: &cp, seed: e.seed, inc: e.inc, draws: e.draws}
}
