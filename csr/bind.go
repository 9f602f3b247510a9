package csr

import (
	"github.com/pkg/errors"

	"github.com/clktmr/socsim/sim"
)

// Map is the addressable namespace of one owner's bound registers.
type Map struct {
	owner string
	regs  []Register
	index map[string]Register
}

func (m *Map) Owner() string { return m.owner }

// Registers returns the registers in the order they were collected.
func (m *Map) Registers() []Register { return m.regs }

// Lookup finds a register by its plain or owner-qualified name.
func (m *Map) Lookup(name string) (Register, bool) {
	r, ok := m.index[name]
	if !ok {
		r, ok = m.index[m.owner+"_"+name]
	}
	return r, ok
}

// Name returns the owner-qualified name of r.
func (m *Map) Name(r Register) string {
	return m.owner + "_" + r.Name()
}

// Bind consumes c and returns the bound registers of its owner.
//
// Raw registers are left untouched. Status and storage registers are
// finalized. Storage registers additionally get a Commit: the bus write pulse
// RE is renamed to <name>_re0 and becomes Commit.Applied, while the new
// <name>_re input Commit.Now lets the owner write the register from Data or,
// if it has fields, from one latch per field named <name>_<field>0.
//
// Binding the same collector again fails with ErrConsumed.
func Bind(c *Collector) (*Map, error) {
	if c.consumed {
		return nil, wrapf(ErrConsumed, "%s", c.owner)
	}
	c.consumed = true
	if c.d.Sealed() {
		return nil, wrapf(ErrSealed, "bind %s", c.owner)
	}
	if err := c.errs.Err(); err != nil {
		return nil, errors.Wrapf(err, "bind %s", c.owner)
	}

	m := &Map{owner: c.owner, index: make(map[string]Register, len(c.regs))}
	var errs ErrorList
	for _, r := range c.regs {
		switch r := r.(type) {
		case *Storage:
			errs.appendIfNotNil(r.Finalize())
			installCommit(c, r)
		case *Status:
			errs.appendIfNotNil(r.Finalize())
		}
		m.regs = append(m.regs, r)
		m.index[m.Name(r)] = r
	}
	if err := errs.Err(); err != nil {
		return nil, errors.Wrapf(err, "bind %s", c.owner)
	}
	return m, nil
}

func installCommit(c *Collector, s *Storage) {
	q := c.qualified(s.name)
	s.RE.Rename(q + "_re0")
	cm := &Commit{
		Now:     c.d.Signal(q+"_re", 1),
		Applied: s.RE,
	}
	if len(s.fields) == 0 {
		cm.Data = c.d.Signal(q+"_dat0", s.width)
	} else {
		cm.Latches = make(map[string]*sim.Signal, len(s.fields))
		for _, f := range s.fields {
			cm.Latches[f.Name] = c.d.Signal(q+"_"+f.Name+"0", f.Size)
		}
	}
	s.Commit = cm
}
