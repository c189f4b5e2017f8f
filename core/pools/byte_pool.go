// Package pools provides tiered buffer reuse for connection read and write paths.
package pools

import (
	"sync"
	"sync/atomic"
)

// BytePool is a multi-tiered byte slice pool for different size classes
type BytePool struct {
	pools []*sync.Pool
	sizes []int

	gets   atomic.Uint64
	puts   atomic.Uint64
	misses atomic.Uint64
}

// BytePoolStats reports pool usage.
type BytePoolStats struct {
	Gets   uint64 // buffers handed out
	Puts   uint64 // buffers returned to a tier
	Misses uint64 // requests larger than the biggest tier
}

// Common buffer sizes for response serialization
var defaultSizes = []int{
	512,   // status line and CORS headers only
	4096,  // typical JSON reply
	16384, // larger echoes
	65536, // passthrough payloads
}

// NewBytePool creates a new byte pool with standard size tiers
func NewBytePool() *BytePool {
	return NewBytePoolWithSizes(defaultSizes)
}

// NewBytePoolWithSizes creates a byte pool with custom size tiers, given in
// ascending order.
func NewBytePoolWithSizes(sizes []int) *BytePool {
	bp := &BytePool{
		pools: make([]*sync.Pool, len(sizes)),
		sizes: sizes,
	}

	for i, size := range sizes {
		sz := size
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, 0, sz)
				return &buf
			},
		}
	}

	return bp
}

// Get returns an empty buffer with capacity of at least size. The pointer
// form avoids an allocation on Put.
func (bp *BytePool) Get(size int) *[]byte {
	bp.gets.Add(1)
	for i, poolSize := range bp.sizes {
		if size <= poolSize {
			buf := bp.pools[i].Get().(*[]byte)
			*buf = (*buf)[:0]
			return buf
		}
	}

	bp.misses.Add(1)
	buf := make([]byte, 0, size)
	return &buf
}

// Put returns a buffer to the tier matching its capacity. Buffers that grew
// past their tier or never came from the pool are left to the GC.
func (bp *BytePool) Put(buf *[]byte) {
	if buf == nil {
		return
	}

	capacity := cap(*buf)
	for i, poolSize := range bp.sizes {
		if capacity == poolSize {
			*buf = (*buf)[:0]
			bp.pools[i].Put(buf)
			bp.puts.Add(1)
			return
		}
	}
}

// Stats returns pool statistics
func (bp *BytePool) Stats() BytePoolStats {
	return BytePoolStats{
		Gets:   bp.gets.Load(),
		Puts:   bp.puts.Load(),
		Misses: bp.misses.Load(),
	}
}
