package kawa

import (
	"sync"
	"sync/atomic"
)

// Buffer size classes. A proxy typically parks one buffer per connection
// direction; powers of two keep the pool arithmetic trivial.
const (
	BufferSize4KB  = 4 * 1024
	BufferSize16KB = 16 * 1024
	BufferSize64KB = 64 * 1024
)

// BufferPool hands out Buffers backed by size-classed pooled memory.
//
// Design:
// - Three size classes (4KB, 16KB, 64KB), automatic selection
// - Hit/miss/discard counters per class, exportable to Prometheus
//   (see NewPoolCollector)
// - Thread-safe with sync.Pool
//
// Allocation behavior: 0 allocs/op on pool hit.
type BufferPool struct {
	pool4KB  sizedBufferPool
	pool16KB sizedBufferPool
	pool64KB sizedBufferPool

	totalGets atomic.Uint64
	totalPuts atomic.Uint64
}

// sizedBufferPool manages a single size class.
type sizedBufferPool struct {
	size int
	pool sync.Pool

	gets     atomic.Uint64
	puts     atomic.Uint64
	misses   atomic.Uint64 // New() calls, i.e. fresh allocations
	discards atomic.Uint64 // buffers refused on Put (wrong size)
}

func (p *sizedBufferPool) init(size int) {
	p.size = size
	p.pool.New = func() interface{} {
		p.misses.Add(1)
		return NewBuffer(size)
	}
}

func (p *sizedBufferPool) get() *Buffer {
	p.gets.Add(1)
	return p.pool.Get().(*Buffer)
}

func (p *sizedBufferPool) put(b *Buffer) {
	p.puts.Add(1)
	if b.Capacity() != p.size {
		p.discards.Add(1)
		return
	}
	b.Clear()
	p.pool.Put(b)
}

// NewBufferPool creates a pool with all size classes initialized.
func NewBufferPool() *BufferPool {
	bp := &BufferPool{}
	bp.pool4KB.init(BufferSize4KB)
	bp.pool16KB.init(BufferSize16KB)
	bp.pool64KB.init(BufferSize64KB)
	return bp
}

// Get returns a cleared Buffer of at least the requested capacity, from the
// smallest class that satisfies it. Requests beyond the largest class are
// allocated directly and will not be pooled on Put.
func (bp *BufferPool) Get(capacity int) *Buffer {
	bp.totalGets.Add(1)
	switch {
	case capacity <= BufferSize4KB:
		return bp.pool4KB.get()
	case capacity <= BufferSize16KB:
		return bp.pool16KB.get()
	case capacity <= BufferSize64KB:
		return bp.pool64KB.get()
	default:
		return NewBuffer(capacity)
	}
}

// Put returns a Buffer to its size class. The caller must not hold any view
// into the buffer afterwards; a Kawa parked on it must be Cleared first.
func (bp *BufferPool) Put(b *Buffer) {
	if b == nil {
		return
	}
	bp.totalPuts.Add(1)
	switch b.Capacity() {
	case BufferSize4KB:
		bp.pool4KB.put(b)
	case BufferSize16KB:
		bp.pool16KB.put(b)
	case BufferSize64KB:
		bp.pool64KB.put(b)
	}
}

// Warmup pre-allocates count buffers per size class, avoiding cold-start
// allocations on the first connections.
func (bp *BufferPool) Warmup(count int) {
	for _, p := range [...]*sizedBufferPool{&bp.pool4KB, &bp.pool16KB, &bp.pool64KB} {
		bufs := make([]*Buffer, 0, count)
		for i := 0; i < count; i++ {
			bufs = append(bufs, p.get())
		}
		for _, b := range bufs {
			p.put(b)
		}
	}
}

// SizedPoolMetrics is a snapshot of one size class.
type SizedPoolMetrics struct {
	Size     int
	Gets     uint64
	Puts     uint64
	Hits     uint64
	Misses   uint64
	Discards uint64
}

// PoolMetrics is a snapshot of the whole pool.
type PoolMetrics struct {
	Pool4KB  SizedPoolMetrics
	Pool16KB SizedPoolMetrics
	Pool64KB SizedPoolMetrics

	TotalGets uint64
	TotalPuts uint64
}

func (p *sizedBufferPool) metrics() SizedPoolMetrics {
	gets := p.gets.Load()
	misses := p.misses.Load()
	var hits uint64
	if gets >= misses {
		hits = gets - misses
	}
	return SizedPoolMetrics{
		Size:     p.size,
		Gets:     gets,
		Puts:     p.puts.Load(),
		Hits:     hits,
		Misses:   misses,
		Discards: p.discards.Load(),
	}
}

// Metrics returns a consistent-enough snapshot of the pool counters.
func (bp *BufferPool) Metrics() PoolMetrics {
	return PoolMetrics{
		Pool4KB:   bp.pool4KB.metrics(),
		Pool16KB:  bp.pool16KB.metrics(),
		Pool64KB:  bp.pool64KB.metrics(),
		TotalGets: bp.totalGets.Load(),
		TotalPuts: bp.totalPuts.Load(),
	}
}
