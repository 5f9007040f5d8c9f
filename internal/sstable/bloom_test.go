package sstable

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBloomFilterNoFalseNegatives(t *testing.T) {
	keys := make([]string, 0, 200)
	for i := 0; i < 200; i++ {
		keys = append(keys, fmt.Sprintf("key-%d", i))
	}
	bf := buildBloomFilter(keys)
	for _, k := range keys {
		assert.True(t, bf.MightContain(k), "bloom filter must never false-negative on an inserted key")
	}
}

func TestBloomFilterRejectsSomeAbsentKeys(t *testing.T) {
	bf := buildBloomFilter([]string{"present"})
	assert.False(t, bf.MightContain("definitely-not-here-xyz"))
}
