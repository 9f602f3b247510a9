// Package event implements sticky interrupt sources aggregated by a manager
// into one interrupt line with status, pending and enable registers.
package event

import (
	"github.com/pkg/errors"

	"github.com/clktmr/socsim/csr"
	"github.com/clktmr/socsim/sim"
)

var (
	ErrLocked    = errors.New("event manager finalized")
	ErrFinalized = errors.New("event manager already finalized")
	ErrDuplicate = errors.New("duplicate event source")
	ErrEmpty     = errors.New("event manager without sources")
)

// Mode selects the trigger condition of a source.
type Mode uint8

const (
	Level   Mode = iota // pending while trigger is high
	Rising              // pending on a low to high transition of trigger
	Falling             // pending on a high to low transition of trigger
)

func (m Mode) String() string {
	switch m {
	case Level:
		return "level"
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	}
	return "invalid"
}

// State is the tagged state of a source.
//
//	Idle    -- fire -->  Pending
//	Pending -- clear --> Cleared
//	Cleared -- fire -->  Pending
//	Cleared ---------->  Idle
//
// A source firing in the same step it is cleared stays Pending.
type State uint8

const (
	Idle State = iota
	Pending
	Cleared
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Cleared:
		return "cleared"
	}
	return "invalid"
}

// Source is one interrupt condition. The owner drives Trigger and may drive
// Ack to clear the source from logic. The manager drives Clear when software
// writes the source's pending bit or Ack is asserted.
type Source struct {
	name  string
	mode  Mode
	index int

	Trigger *sim.Signal
	Ack     *sim.Signal
	Clear   *sim.Signal
	Pending *sim.Signal

	state *sim.Signal
	prev  *sim.Signal
}

func (s *Source) Name() string { return s.name }
func (s *Source) Mode() Mode   { return s.mode }

// Index returns the bit of the source in the manager's registers.
func (s *Source) Index() int { return s.index }

// State returns the current tagged state.
func (s *Source) State() State { return State(s.state.Get()) }

func (s *Source) fire() bool {
	trig := s.Trigger.Bool()
	switch s.mode {
	case Rising:
		return trig && !s.prev.Bool()
	case Falling:
		return !trig && s.prev.Bool()
	}
	return trig
}

func (s *Source) next() State {
	st := State(s.state.Get())
	switch {
	case s.fire():
		return Pending
	case st == Pending && s.Clear.Bool():
		return Cleared
	case st == Cleared:
		return Idle
	}
	return st
}

// Manager aggregates sources into the interrupt line Irq.
//
// On Finalize it adds three registers to the owner's collector: <prefix>_status
// holds the trigger levels, <prefix>_pending reads the pending bits and clears
// every source whose bit is written as 1, <prefix>_enable masks sources from
// Irq. Pending latches regardless of enable.
type Manager struct {
	c      *csr.Collector
	prefix string

	sources   []*Source
	finalized bool

	Irq *sim.Signal

	StatusReg  *csr.Status
	PendingReg *csr.CSR
	EnableReg  *csr.Storage
}

// NewManager returns a manager whose registers will be collected by c.
func NewManager(c *csr.Collector, prefix string) *Manager {
	return &Manager{c: c, prefix: prefix}
}

// Add registers a new source. Sources can only be added before Finalize.
func (m *Manager) Add(name string, mode Mode) (*Source, error) {
	if m.finalized {
		return nil, errors.Wrapf(ErrLocked, "add %s", name)
	}
	for _, s := range m.sources {
		if s.name == name {
			return nil, errors.Wrapf(ErrDuplicate, "%s", name)
		}
	}
	d, sys := m.c.Design(), m.c.Sys()
	q := m.c.Owner() + "_" + m.prefix + "_" + name
	s := &Source{
		name:    name,
		mode:    mode,
		index:   len(m.sources),
		Trigger: d.Signal(q+"_trigger", 1),
		Ack:     d.Signal(q+"_ack", 1),
		Clear:   d.Signal(q+"_clear", 1),
		Pending: d.Signal(q+"_pending", 1),
		state:   sys.Reg(q+"_state", 2),
		prev:    sys.Reg(q+"_trigger_d", 1),
	}
	m.sources = append(m.sources, s)
	return s, nil
}

// Source returns the named source or nil.
func (m *Manager) Source(name string) *Source {
	for _, s := range m.sources {
		if s.name == name {
			return s
		}
	}
	return nil
}

func (m *Manager) Sources() []*Source { return m.sources }

// Name returns the bank name of one of the manager's registers, i.e.
// "status", "pending" or "enable".
func (m *Manager) Name(reg string) string {
	return m.c.Owner() + "_" + m.prefix + "_" + reg
}

// Finalize locks the set of sources and creates the registers and the
// interrupt logic.
func (m *Manager) Finalize() error {
	if m.finalized {
		return ErrFinalized
	}
	if len(m.sources) == 0 {
		return ErrEmpty
	}
	if m.c.Consumed() {
		return errors.Wrapf(csr.ErrConsumed, "finalize %s", m.prefix)
	}
	m.finalized = true

	n := len(m.sources)
	fields := make([]csr.Field, n)
	for i, s := range m.sources {
		fields[i] = csr.Field{Name: s.name, Offset: i, Size: 1}
	}
	m.StatusReg = m.c.Status(m.prefix+"_status", n, fields...)
	m.PendingReg = m.c.CSR(m.prefix+"_pending", n)
	m.EnableReg = m.c.Storage(m.prefix+"_enable", n, fields...)

	d, sys := m.c.Design(), m.c.Sys()
	m.Irq = d.Signal(m.c.Owner()+"_"+m.prefix+"_irq", 1)
	d.Comb(m.prefix, m.comb)
	sys.Sync(m.prefix, m.sync)
	return nil
}

func (m *Manager) comb() {
	pendingW := m.PendingReg.W
	ack := m.PendingReg.RE.Bool()
	wr := m.PendingReg.R.Get()
	enable := m.EnableReg.Storage.Get()
	var irq bool
	for i, s := range m.sources {
		pending := State(s.state.Get()) == Pending
		s.Pending.SetBool(pending)
		s.Clear.SetBool(ack && wr&(1<<i) != 0 || s.Ack.Bool())
		m.StatusReg.Status.SetBits(i, 1, s.Trigger.Get())
		pendingW.SetBits(i, 1, s.Pending.Get())
		irq = irq || pending && enable&(1<<i) != 0
	}
	m.Irq.SetBool(irq)
}

func (m *Manager) sync() {
	for _, s := range m.sources {
		s.state.Set(uint64(s.next()))
		s.prev.Set(s.Trigger.Get())
	}
}
