// Package csr implements control/status registers: raw command registers,
// status registers and storage registers with optional named fields, the
// one-shot binder that turns a collected register set into an owner's
// addressable namespace, and a name-addressed bus master.
package csr

import (
	"github.com/clktmr/socsim/sim"
)

// Kind distinguishes the register flavours.
type Kind uint8

const (
	KindCSR     Kind = iota // raw command register, no storage
	KindStatus              // read-only value driven by logic
	KindStorage             // read/write value held in a register
)

func (k Kind) String() string {
	switch k {
	case KindCSR:
		return "csr"
	case KindStatus:
		return "status"
	case KindStorage:
		return "storage"
	}
	return "invalid"
}

// Field is a named bit range of a register.
type Field struct {
	Name   string
	Offset int
	Size   int
	Reset  uint64
}

func (f Field) mask() uint64 {
	return (^uint64(0) >> (64 - f.Size)) << f.Offset
}

// Register is implemented by *CSR, *Status and *Storage.
type Register interface {
	Name() string
	Width() int
	Kind() Kind
	Fields() []Field

	// Value returns what a bus read observes.
	Value() uint64
}

type reg struct {
	name      string
	width     int
	fields    []Field
	finalized bool
}

func (r *reg) Name() string    { return r.name }
func (r *reg) Width() int      { return r.width }
func (r *reg) Fields() []Field { return r.fields }
func (r *reg) Finalized() bool { return r.finalized }
func (r *reg) field(name string) (Field, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Finalize closes the register against further structural changes. A
// register can only be finalized once.
func (r *reg) Finalize() error {
	if r.finalized {
		return wrapf(ErrFinalized, "%s", r.name)
	}
	r.finalized = true
	return nil
}

// CSR is a raw command register. A bus write presents the value on R with RE
// asserted for one step, a bus read samples W and asserts WE for one step.
type CSR struct {
	reg
	R  *sim.Signal
	RE *sim.Signal
	W  *sim.Signal
	WE *sim.Signal
}

func (c *CSR) Kind() Kind    { return KindCSR }
func (c *CSR) Value() uint64 { return c.W.Get() }

// Status is a read-only register whose value is driven by the owner.
type Status struct {
	reg
	Status *sim.Signal
}

func (s *Status) Kind() Kind    { return KindStatus }
func (s *Status) Value() uint64 { return s.Status.Get() }

// Field returns the current value of the named field.
func (s *Status) Field(name string) uint64 {
	f, ok := s.field(name)
	if !ok {
		panic("csr: " + s.name + " has no field " + name)
	}
	return s.Status.Bits(f.Offset, f.Size)
}

// Storage is a read/write register held in the system domain.
//
// Before binding, RE pulses in the step after a bus write, i.e. aligned with
// Storage already holding the written value. Binding installs Commit, which
// lets the owner write the register itself.
type Storage struct {
	reg
	Storage *sim.Signal
	RE      *sim.Signal

	// Commit is nil until the register is bound.
	Commit *Commit
}

func (s *Storage) Kind() Kind    { return KindStorage }
func (s *Storage) Value() uint64 { return s.Storage.Get() }

// Field returns the current value of the named field.
func (s *Storage) Field(name string) uint64 {
	f, ok := s.field(name)
	if !ok {
		panic("csr: " + s.name + " has no field " + name)
	}
	return s.Storage.Bits(f.Offset, f.Size)
}

// busWrite performs a bus write from the system domain.
func (s *Storage) busWrite(v uint64) {
	s.Storage.Set(v)
	s.RE.Set(1)
}

func (s *Storage) tick() {
	now := s.Commit != nil && s.Commit.Now.Bool()
	s.RE.SetBool(now)
	if !now {
		return
	}
	if s.Commit.Data != nil {
		s.Storage.Set(s.Commit.Data.Get())
		return
	}
	for _, f := range s.fields {
		if l := s.Commit.Latches[f.Name]; l.Driven() {
			s.Storage.SetBits(f.Offset, f.Size, l.Get())
		}
	}
}

// Commit is the write interface a bound storage register offers its owner.
//
// The owner asserts Now for one step together with the staged value on Data
// (registers without fields) or on the per-field Latches. Storage takes the
// staged value on that step's tick; fields whose latch isn't driven keep their
// bits. Applied is Now delayed by one step,
// marking that Storage reflects the write. Bus writes pulse Applied as well.
type Commit struct {
	Now     *sim.Signal
	Applied *sim.Signal
	Data    *sim.Signal
	Latches map[string]*sim.Signal
}

// Latch returns the staging signal of the named field.
func (c *Commit) Latch(field string) *sim.Signal {
	l, ok := c.Latches[field]
	if !ok {
		panic("csr: no latch for field " + field)
	}
	return l
}
