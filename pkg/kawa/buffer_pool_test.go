package kawa

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestBufferPoolSizeClasses(t *testing.T) {
	pool := NewBufferPool()
	cases := []struct {
		request int
		want    int
	}{
		{100, BufferSize4KB},
		{BufferSize4KB, BufferSize4KB},
		{BufferSize4KB + 1, BufferSize16KB},
		{BufferSize16KB + 1, BufferSize64KB},
		{BufferSize64KB + 1, BufferSize64KB + 1},
	}
	for _, c := range cases {
		b := pool.Get(c.request)
		if b.Capacity() != c.want {
			t.Errorf("Get(%d) capacity = %d, want %d", c.request, b.Capacity(), c.want)
		}
		pool.Put(b)
	}
}

func TestBufferPoolReuse(t *testing.T) {
	pool := NewBufferPool()
	b := pool.Get(1024)
	b.Append([]byte("dirty"))
	pool.Put(b)

	b2 := pool.Get(1024)
	if !b2.IsEmpty() || b2.Head != 0 {
		t.Error("pooled buffer must come back cleared")
	}

	m := pool.Metrics()
	if m.Pool4KB.Gets != 2 {
		t.Errorf("Gets = %d, want 2", m.Pool4KB.Gets)
	}
	if m.Pool4KB.Puts != 1 {
		t.Errorf("Puts = %d, want 1", m.Pool4KB.Puts)
	}
	if m.TotalGets != 2 || m.TotalPuts != 1 {
		t.Errorf("totals = (%d, %d), want (2, 1)", m.TotalGets, m.TotalPuts)
	}
}

func TestBufferPoolDiscardsForeignBuffer(t *testing.T) {
	pool := NewBufferPool()
	pool.Put(NewBuffer(BufferSize64KB + 1))
	m := pool.Metrics()
	if m.Pool4KB.Discards+m.Pool16KB.Discards+m.Pool64KB.Discards != 0 {
		t.Error("oversized buffers are dropped without touching a class")
	}
	if m.TotalPuts != 1 {
		t.Errorf("TotalPuts = %d, want 1", m.TotalPuts)
	}
}

func TestBufferPoolWarmup(t *testing.T) {
	pool := NewBufferPool()
	pool.Warmup(4)
	m := pool.Metrics()
	if m.Pool4KB.Gets != 4 || m.Pool4KB.Puts != 4 {
		t.Errorf("warmup counters = (%d, %d), want (4, 4)", m.Pool4KB.Gets, m.Pool4KB.Puts)
	}
}

func TestPoolCollector(t *testing.T) {
	pool := NewBufferPool()
	pool.Put(pool.Get(2048))

	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(NewPoolCollector(pool)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := make(map[string]bool)
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, name := range []string{
		"kawa_buffer_pool_gets_total",
		"kawa_buffer_pool_puts_total",
		"kawa_buffer_pool_hits_total",
		"kawa_buffer_pool_misses_total",
		"kawa_buffer_pool_discards_total",
	} {
		if !found[name] {
			t.Errorf("metric family %s missing from scrape", name)
		}
	}
}
