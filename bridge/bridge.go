// Package bridge passes values between host goroutines and the goroutine
// running a simulation without blocking either side.
package bridge

import (
	"sync/atomic"
)

// Latest passes the most recent value of a single writer goroutine to a
// single reader goroutine. Values stored between two loads are lost except
// for the last one. Writer and reader never touch the same buffer.
type Latest[T any] struct {
	bufs   [3]T
	back   int32 // owned by writer
	front  int32 // owned by reader
	middle atomic.Int32
}

const dirty = 1 << 2

func NewLatest[T any]() *Latest[T] {
	p := &Latest[T]{back: 0, front: 2}
	p.middle.Store(1)
	return p
}

// Store publishes v.
func (p *Latest[T]) Store(v T) {
	p.bufs[p.back] = v
	p.back = p.middle.Swap(p.back|dirty) &^ dirty
}

// Load returns the latest value and whether it was stored since the previous
// Load.
func (p *Latest[T]) Load() (v T, updated bool) {
	if p.middle.Load()&dirty == 0 {
		return p.bufs[p.front], false
	}
	p.front = p.middle.Swap(p.front) &^ dirty
	return p.bufs[p.front], true
}

// Queue passes values from any number of writer goroutines to a single
// reader goroutine in order. Every slot carries a sequence number telling
// whether it waits for a writer or for the reader, so a writer delayed
// between claiming and filling a slot never exposes it early.
type Queue[T any] struct {
	slots []slot[T]
	mask  uint32
	head  atomic.Uint32 // next position to claim by a writer
	tail  atomic.Uint32 // next position to read, advanced by the reader only
}

type slot[T any] struct {
	seq atomic.Uint32
	v   T
}

// NewQueue returns a queue holding up to size values. size must be a power
// of two.
func NewQueue[T any](size int) *Queue[T] {
	if size < 2 || size&(size-1) != 0 || size > 1<<30 {
		panic("bridge: queue size must be a power of two")
	}
	p := &Queue[T]{slots: make([]slot[T], size), mask: uint32(size - 1)}
	for i := range p.slots {
		p.slots[i].seq.Store(uint32(i))
	}
	return p
}

// Push appends v and reports whether there was room for it.
func (p *Queue[T]) Push(v T) bool {
	pos := p.head.Load()
	for {
		s := &p.slots[pos&p.mask]
		switch dif := int32(s.seq.Load() - pos); {
		case dif == 0:
			if p.head.CompareAndSwap(pos, pos+1) {
				s.v = v
				s.seq.Store(pos + 1)
				return true
			}
			pos = p.head.Load()
		case dif < 0:
			return false
		default:
			pos = p.head.Load()
		}
	}
}

// Peek returns the oldest value without removing it.
func (p *Queue[T]) Peek() (v T, ok bool) {
	tail := p.tail.Load()
	s := &p.slots[tail&p.mask]
	if s.seq.Load() != tail+1 {
		return v, false
	}
	return s.v, true
}

// Pop removes and returns the oldest value.
func (p *Queue[T]) Pop() (v T, ok bool) {
	tail := p.tail.Load()
	s := &p.slots[tail&p.mask]
	if s.seq.Load() != tail+1 {
		return v, false
	}
	v = s.v
	var zero T
	s.v = zero
	if !p.tail.CompareAndSwap(tail, tail+1) {
		panic("bridge: multiple readers")
	}
	s.seq.Store(tail + p.mask + 1)
	return v, true
}

// Len returns the number of queued values, including values writers are
// still storing.
func (p *Queue[T]) Len() int {
	n := int32(p.head.Load() - p.tail.Load())
	return int(min(max(n, 0), int32(len(p.slots))))
}
