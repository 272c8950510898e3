// Package cachestore provides durable backends for the embedding cache.
// Every store implements ports.EmbeddingStore: Load reports a missing entry
// as entities.ErrCacheMiss and an unreadable one as entities.ErrCacheCorrupt,
// and Save replaces an entry in one step.
package cachestore

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encodeVector packs a vector as little-endian IEEE 754 float32 values with
// no length prefix.
func encodeVector(vec []float32) []byte {
	b := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(v))
	}
	return b
}

// decodeVector reverses encodeVector.
func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length %d", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return vec, nil
}
