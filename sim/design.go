package sim

import (
	"fmt"
)

// maxPasses bounds the number of settle passes before the combinational logic
// is considered to oscillate.
const maxPasses = 256

type process struct {
	name string
	dom  *Domain // nil for comb processes
	fn   func()
}

func (p *process) String() string {
	if p.dom == nil {
		return "comb process " + p.name
	}
	return p.dom.name + " process " + p.name
}

// Domain is a clock domain. All registers of a domain update together when
// it ticks.
type Domain struct {
	d     *Design
	name  string
	regs  []*Signal
	sync  []*process
	cycle uint64
}

func (dom *Domain) Name() string { return dom.name }

// Cycle returns the number of ticks the domain has completed.
func (dom *Domain) Cycle() uint64 { return dom.cycle }

// Reg creates a register clocked by dom.
func (dom *Domain) Reg(name string, width int) *Signal {
	return newSignal(dom.d, dom, kindReg, name, width)
}

// Sync adds a process that runs on every tick of dom. It may read any signal
// and stage writes to registers of dom.
func (dom *Domain) Sync(name string, fn func()) {
	dom.d.checkOpen()
	dom.sync = append(dom.sync, &process{name: name, dom: dom, fn: fn})
}

// Tick advances dom by one cycle.
func (dom *Domain) Tick() { dom.d.Tick(dom) }

// Design is the container of all signals, processes and domains of one
// simulation.
type Design struct {
	domains []*Domain
	comb    []*process
	signals []*Signal
	combs   []*Signal

	active    *process
	pass      uint64
	unsettled bool
	sealed    bool
	now       uint64

	observers []func(*Domain)
}

func NewDesign() *Design {
	return &Design{unsettled: true}
}

func (d *Design) checkOpen() {
	if d.sealed {
		panic("sim: design modified after first tick")
	}
}

func (d *Design) add(s *Signal) {
	d.checkOpen()
	d.signals = append(d.signals, s)
	switch s.kind {
	case kindReg:
		s.dom.regs = append(s.dom.regs, s)
	case kindComb:
		d.combs = append(d.combs, s)
	}
	d.unsettled = true
}

// Domain returns the clock domain called name, creating it if needed.
func (d *Design) Domain(name string) *Domain {
	for _, dom := range d.domains {
		if dom.name == name {
			return dom
		}
	}
	d.checkOpen()
	dom := &Domain{d: d, name: name}
	d.domains = append(d.domains, dom)
	return dom
}

func (d *Design) Domains() []*Domain { return d.domains }

// Signals returns all signals in creation order.
func (d *Design) Signals() []*Signal { return d.signals }

// Signal creates a combinational signal. It must be driven by a single comb
// process and holds its reset value in every settle pass it isn't driven.
func (d *Design) Signal(name string, width int) *Signal {
	return newSignal(d, nil, kindComb, name, width)
}

// Input creates a signal driven from outside the design, e.g. a testbench or
// a host bridge. It keeps the last value set.
func (d *Design) Input(name string, width int) *Signal {
	s := newSignal(d, nil, kindComb, name, width)
	s.driver = external
	return s
}

// Comb adds a combinational process.
func (d *Design) Comb(name string, fn func()) {
	d.checkOpen()
	d.comb = append(d.comb, &process{name: name, fn: fn})
}

// Observe registers fn to be called after every tick, e.g. for tracing.
func (d *Design) Observe(fn func(*Domain)) {
	d.observers = append(d.observers, fn)
}

// Now returns the simulated time as maintained by the scheduler.
func (d *Design) Now() uint64 { return d.now }

// Sealed reports whether the design has started simulating.
func (d *Design) Sealed() bool { return d.sealed }

// Settle re-evaluates all comb processes until no combinational signal
// changes.
func (d *Design) Settle() {
	if d.active != nil {
		panic("sim: Settle called from " + d.active.String())
	}
	for i := 0; ; i++ {
		if i == maxPasses {
			panic(fmt.Sprintf("sim: combinational logic does not settle after %d passes", maxPasses))
		}
		d.pass++
		for _, p := range d.comb {
			d.active = p
			p.fn()
		}
		d.active = nil

		changed := false
		for _, s := range d.combs {
			if s.driver != external && s.stamp != d.pass {
				s.cur = s.reset
			}
			if s.cur != s.settled {
				s.settled = s.cur
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	d.unsettled = false
}

// Tick advances dom by one cycle: settle, run the domain's sync processes,
// commit its registers and settle again.
func (d *Design) Tick(dom *Domain) {
	if dom.d != d {
		panic("sim: domain " + dom.name + " belongs to another design")
	}
	d.sealed = true
	d.Settle()

	for _, p := range dom.sync {
		d.active = p
		p.fn()
	}
	d.active = nil

	for _, r := range dom.regs {
		r.cur = r.next
	}
	dom.cycle++
	d.Settle()

	for _, fn := range d.observers {
		fn(dom)
	}
}
