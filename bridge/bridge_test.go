package bridge_test

import (
	"runtime"
	"sync"
	"testing"

	"github.com/clktmr/socsim/bridge"
)

func TestQueue(t *testing.T) {
	q := bridge.NewQueue[byte](4)
	for i := range 4 {
		if !q.Push(byte(i)) {
			t.Fatalf("push %d failed", i)
		}
	}
	if q.Push(4) {
		t.Fatal("push into full queue")
	}
	if q.Len() != 4 {
		t.Fatalf("expected 4 queued, got %d", q.Len())
	}
	if v, ok := q.Peek(); !ok || v != 0 {
		t.Fatalf("peek: %v %v", v, ok)
	}
	for i := range 4 {
		v, ok := q.Pop()
		if !ok || v != byte(i) {
			t.Fatalf("pop %d: got %v %v", i, v, ok)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("pop from empty queue")
	}
	for lap := range 10 {
		if !q.Push(byte(lap)) || q.Len() != 1 {
			t.Fatalf("lap %d: queue unusable after wrap", lap)
		}
		if v, ok := q.Pop(); !ok || v != byte(lap) {
			t.Fatalf("lap %d: got %v %v", lap, v, ok)
		}
	}
}

func TestQueueSize(t *testing.T) {
	for _, size := range []int{0, 1, 3, 12} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("size %d accepted", size)
				}
			}()
			bridge.NewQueue[int](size)
		}()
	}
}

func TestQueueWriters(t *testing.T) {
	tests := map[string]struct {
		size, writers, n int
	}{
		"single": {size: 4, writers: 1, n: 10000},
		"small":  {size: 4, writers: 4, n: 5000},
		"large":  {size: 64, writers: 8, n: 5000},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			q := bridge.NewQueue[[2]int](tc.size)
			var wg sync.WaitGroup
			for w := range tc.writers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < tc.n; {
						if q.Push([2]int{w, i}) {
							i++
						} else {
							runtime.Gosched()
						}
					}
				}()
			}

			next := make([]int, tc.writers)
			for total := 0; total < tc.writers*tc.n; {
				v, ok := q.Pop()
				if !ok {
					runtime.Gosched()
					continue
				}
				if v[1] != next[v[0]] {
					t.Fatalf("writer %d: expected %d, got %d", v[0], next[v[0]], v[1])
				}
				next[v[0]]++
				total++
			}
			wg.Wait()
			if _, ok := q.Pop(); ok {
				t.Fatal("extra value in queue")
			}
		})
	}
}

func TestLatest(t *testing.T) {
	p := bridge.NewLatest[int]()
	if _, updated := p.Load(); updated {
		t.Fatal("update without store")
	}
	p.Store(1)
	p.Store(2)
	if v, updated := p.Load(); !updated || v != 2 {
		t.Fatalf("expected 2, got %d %v", v, updated)
	}
	if v, updated := p.Load(); updated || v != 2 {
		t.Fatalf("expected stale 2, got %d %v", v, updated)
	}
	for i := range 10 {
		p.Store(i)
	}
	if v, _ := p.Load(); v != 9 {
		t.Fatalf("expected 9, got %d", v)
	}
}

func TestLatestConcurrent(t *testing.T) {
	p := bridge.NewLatest[[4]int]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := range 100000 {
			p.Store([4]int{i, i, i, i})
		}
	}()
	last := -1
	for {
		v, updated := p.Load()
		if updated {
			if v[0] != v[1] || v[1] != v[2] || v[2] != v[3] {
				t.Fatalf("torn value %v", v)
			}
			if v[0] < last {
				t.Fatalf("went back from %d to %d", last, v[0])
			}
			last = v[0]
		}
		select {
		case <-done:
			if v, _ := p.Load(); v[0] != 99999 && last != 99999 {
				t.Fatalf("lost final value, got %v", v)
			}
			return
		default:
		}
	}
}
