package raster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReclassifyChunk(t *testing.T) {
	data := []byte{0, 24, 1, 24, 255, 24}
	reclassifyChunk(data, 24)
	assert.Equal(t, []byte{0, 1, 0, 1, 0, 1}, data)
}

func TestReclassifyChunkSentinelOne(t *testing.T) {
	data := []byte{0, 1, 2, 1, 0}
	reclassifyChunk(data, 1)
	assert.Equal(t, []byte{0, 1, 0, 1, 0}, data)

	// Output values are a fixed point under the same rule.
	reclassifyChunk(data, 1)
	assert.Equal(t, []byte{0, 1, 0, 1, 0}, data)
}

func TestReclassifyChunkWindowEquivalence(t *testing.T) {
	// Classifying per window gives the same result as classifying the whole
	// grid at once, because the rule is element-wise.
	grid := make([]byte, 100)
	for i := range grid {
		grid[i] = byte(i % 5)
	}
	whole := append([]byte(nil), grid...)
	reclassifyChunk(whole, 3)

	chunked := append([]byte(nil), grid...)
	for start := 0; start < len(chunked); start += 7 {
		end := start + 7
		if end > len(chunked) {
			end = len(chunked)
		}
		reclassifyChunk(chunked[start:end], 3)
	}
	assert.Equal(t, whole, chunked)
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{}
	opts.applyDefaults()
	assert.Equal(t, 25000, opts.ChunkSize)
	assert.Equal(t, byte(1), opts.Sentinel)
	assert.InDelta(t, 0.3, opts.CompressionRatio, 0.001)
	assert.NotNil(t, opts.Confirm)
}
