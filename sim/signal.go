package sim

import (
	"fmt"

	"github.com/clktmr/socsim/debug"
)

type kind uint8

const (
	kindComb kind = iota // driven by one comb process or from outside
	kindReg              // owned by a domain, updated on its tick
)

// external is the driver of combinational signals set from outside any
// process. Such signals hold their value instead of reverting.
var external = &process{name: "external"}

// Signal is a named value of up to 64 bits.
type Signal struct {
	d     *Design
	dom   *Domain
	kind  kind
	name  string
	width int
	mask  uint64
	reset uint64

	cur  uint64
	next uint64 // registers only

	// comb bookkeeping
	stamp   uint64 // settle pass of the last drive
	settled uint64 // value at the end of the previous pass
	driver  *process

	lanes *Lanes // set if the signal is one byte lane of a wider value
}

func newSignal(d *Design, dom *Domain, k kind, name string, width int) *Signal {
	if width < 1 || width > 64 {
		panic(fmt.Sprintf("sim: signal %s: invalid width %d", name, width))
	}
	s := &Signal{d: d, dom: dom, kind: k, name: name, width: width}
	s.mask = ^uint64(0) >> (64 - width)
	d.add(s)
	return s
}

func (s *Signal) Name() string    { return s.name }
func (s *Signal) Width() int      { return s.width }
func (s *Signal) Domain() *Domain { return s.dom }

// Rename changes the name of s. Only possible before the first tick.
func (s *Signal) Rename(name string) {
	s.d.checkOpen()
	s.name = name
}

// IsReg reports whether s is a register.
func (s *Signal) IsReg() bool { return s.kind == kindReg }

// WithReset sets the value s takes before the first tick and, for
// combinational signals, whenever no process drives it.
func (s *Signal) WithReset(v uint64) *Signal {
	if s.d.sealed {
		panic("sim: reset value changed after first tick: " + s.name)
	}
	v &= s.mask
	s.reset, s.cur, s.next, s.settled = v, v, v, v
	return s
}

// Reset returns the reset value of s.
func (s *Signal) Reset() uint64 { return s.reset }

// Get returns the current value. Outside of processes, pending testbench
// changes are settled first so the result is always consistent.
func (s *Signal) Get() uint64 {
	if s.d.active == nil && s.d.unsettled {
		s.d.Settle()
	}
	return s.cur
}

// Bool reports whether s is non-zero.
func (s *Signal) Bool() bool { return s.Get() != 0 }

// Set drives s.
//
// Inside a comb process it drives the combinational value for this settle
// pass. Inside a sync process it stages the next register value. Outside of
// any process it forces the value immediately; a combinational signal set
// this way becomes an input and may not be driven by a process anymore.
func (s *Signal) Set(v uint64) {
	v &= s.mask
	d := s.d
	p := d.active
	switch s.kind {
	case kindReg:
		if p == nil {
			s.cur, s.next = v, v
			d.unsettled = true
			return
		}
		if p.dom != s.dom {
			panic(fmt.Sprintf("sim: register %s (%s) written from %s", s.name, s.dom.name, p))
		}
		s.next = v
	case kindComb:
		if p == nil {
			p = external
		} else if p.dom != nil {
			panic(fmt.Sprintf("sim: combinational signal %s driven outside a comb process", s.name))
		}
		if s.driver == nil {
			s.driver = p
		} else if s.driver != p {
			panic(fmt.Sprintf("sim: signal %s has multiple drivers", s.name))
		}
		if p == external {
			if s.cur != v {
				s.cur = v
				d.unsettled = true
			}
			return
		}
		s.stamp = d.pass
		s.cur = v
	}
}

// Driven reports whether a combinational signal is driven: set from outside
// any process, or set by its comb process in the latest settle pass.
// Registers are always driven.
func (s *Signal) Driven() bool {
	if s.kind == kindReg || s.driver == external {
		return true
	}
	if s.d.active == nil && s.d.unsettled {
		s.d.Settle()
	}
	return s.driver != nil && s.stamp == s.d.pass
}

// SetBool drives s to 1 if b is true, 0 otherwise.
func (s *Signal) SetBool(b bool) {
	if b {
		s.Set(1)
	} else {
		s.Set(0)
	}
}

// SetBits stages a write of the n bits starting at offset, leaving the other
// bits of the staged value untouched. Several SetBits on one register within
// a tick compose.
func (s *Signal) SetBits(offset, n int, v uint64) {
	debug.Assertf(offset >= 0 && n > 0 && offset+n <= s.width, "sim: %s[%d:%d] out of range", s.name, offset, offset+n)
	m := (^uint64(0) >> (64 - n)) << offset
	base := s.cur
	switch {
	case s.kind == kindReg && s.d.active != nil:
		base = s.next
	case s.kind == kindComb && s.driver != external && s.stamp != s.d.pass:
		base = s.reset
	}
	s.Set(base&^m | (v<<offset)&m)
}

// Bits returns the n bits of s starting at offset.
func (s *Signal) Bits(offset, n int) uint64 {
	return (s.Get() >> offset) & (^uint64(0) >> (64 - n))
}

func (s *Signal) String() string {
	return fmt.Sprintf("%s=%#x", s.name, s.cur)
}
