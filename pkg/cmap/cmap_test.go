package cmap

import (
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
)

func TestNewWithShards_RoundsUp(t *testing.T) {
	tests := map[int]int{0: 1, 1: 1, 3: 4, 16: 16, 17: 32}
	for in, want := range tests {
		if got := NewWithShards[string, int](in).ShardCount(); got != want {
			t.Errorf("NewWithShards(%d).ShardCount() = %d, want %d", in, got, want)
		}
	}
}

func TestMap_Basic(t *testing.T) {
	m := New[string, int]()

	if _, ok := m.Get("a"); ok {
		t.Fatal("Get on empty map reported a value")
	}
	m.Set("a", 1)
	m.Set("b", 2)
	if v, ok := m.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, ok)
	}
	if m.Count() != 2 {
		t.Errorf("Count() = %d, want 2", m.Count())
	}

	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Error("Delete did not remove a")
	}

	seen := 0
	m.Range(func(string, int) bool {
		seen++
		return true
	})
	if seen != 1 {
		t.Errorf("Range visited %d entries, want 1", seen)
	}
}

func TestMap_GetOrCompute(t *testing.T) {
	m := New[string, *int]()
	var calls atomic.Int32

	var wg sync.WaitGroup
	results := make([]*int, 32)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.GetOrCompute("ip", func() *int {
				calls.Add(1)
				v := 7
				return &v
			})
		}(i)
	}
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("fn called %d times, want 1", calls.Load())
	}
	for i, r := range results {
		if r != results[0] {
			t.Fatalf("result %d differs", i)
		}
	}
	if _, loaded := m.GetOrCompute("ip", func() *int { return nil }); !loaded {
		t.Error("second GetOrCompute should report loaded")
	}
}

func TestMap_DeleteFunc(t *testing.T) {
	m := NewWithShards[string, int](4)
	for i := 0; i < 100; i++ {
		m.Set(strconv.Itoa(i), i)
	}
	removed := m.DeleteFunc(func(_ string, v int) bool { return v%2 == 0 })
	if removed != 50 || m.Count() != 50 {
		t.Errorf("removed = %d, count = %d", removed, m.Count())
	}
}

func TestMap_RangeStops(t *testing.T) {
	m := New[string, int]()
	for i := 0; i < 10; i++ {
		m.Set(strconv.Itoa(i), i)
	}
	n := 0
	m.Range(func(string, int) bool {
		n++
		return n < 3
	})
	if n != 3 {
		t.Errorf("Range visited %d, want 3", n)
	}
}

func BenchmarkMap_GetOrCompute(b *testing.B) {
	m := New[string, int]()
	keys := make([]string, 256)
	for i := range keys {
		keys[i] = "10.0.0." + strconv.Itoa(i)
	}
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			m.GetOrCompute(keys[i&255], func() int { return i })
			i++
		}
	})
}
