package sstable

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/twmb/murmur3"
)

// bloomFilter is a probabilistic "definitely not present" guard in front of
// an SSTable's in-memory map: a negative answer is certain, a positive
// answer only means "go check the map." This lets the engine's
// newest-first SSTable scan skip tables that provably don't hold a key
// instead of paying for a map lookup on every table.
type bloomFilter struct {
	bits *bitset.BitSet
	k    uint
	m    uint
}

const bloomBitsPerKey = 10

func newBloomFilter(expectedKeys int) *bloomFilter {
	if expectedKeys < 1 {
		expectedKeys = 1
	}
	m := uint(expectedKeys) * bloomBitsPerKey
	if m < 64 {
		m = 64
	}
	return &bloomFilter{
		bits: bitset.New(m),
		k:    7,
		m:    m,
	}
}

func (b *bloomFilter) hashes(key string) (uint64, uint64) {
	h1 := murmur3.Sum64([]byte(key))
	h2 := murmur3.SeedSum64(uint32(h1), []byte(key))
	return h1, h2
}

func (b *bloomFilter) Add(key string) {
	h1, h2 := b.hashes(key)
	for i := uint(0); i < b.k; i++ {
		idx := (h1 + uint64(i)*h2) % uint64(b.m)
		b.bits.Set(uint(idx))
	}
}

// MightContain returns false only when key is certainly absent.
func (b *bloomFilter) MightContain(key string) bool {
	h1, h2 := b.hashes(key)
	for i := uint(0); i < b.k; i++ {
		idx := (h1 + uint64(i)*h2) % uint64(b.m)
		if !b.bits.Test(uint(idx)) {
			return false
		}
	}
	return true
}

// buildBloomFilter populates a filter from a set of live keys.
func buildBloomFilter(keys []string) *bloomFilter {
	bf := newBloomFilter(len(keys))
	for _, k := range keys {
		bf.Add(k)
	}
	return bf
}
