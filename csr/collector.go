package csr

import (
	"github.com/clktmr/socsim/sim"
)

// Collector gathers the registers of one owner until they are handed to
// Bind. It can be bound only once; afterwards it refuses new registers.
type Collector struct {
	d     *sim.Design
	sys   *sim.Domain
	owner string

	regs     []Register
	names    map[string]bool
	errs     ErrorList
	consumed bool
}

// NewCollector returns an empty register set for owner. Storage registers
// are clocked by sys.
func NewCollector(d *sim.Design, sys *sim.Domain, owner string) *Collector {
	return &Collector{d: d, sys: sys, owner: owner, names: make(map[string]bool)}
}

func (c *Collector) Owner() string { return c.owner }

// Design returns the design the registers are created in.
func (c *Collector) Design() *sim.Design { return c.d }

// Sys returns the domain storage registers are clocked by.
func (c *Collector) Sys() *sim.Domain { return c.sys }

// Consumed reports whether the collector was already bound.
func (c *Collector) Consumed() bool { return c.consumed }

func (c *Collector) qualified(name string) string {
	return c.owner + "_" + name
}

func (c *Collector) add(name string, width int, fields []Field) reg {
	if c.consumed {
		panic(wrapf(ErrConsumed, "%s: register %s", c.owner, name))
	}
	if c.names[name] {
		c.errs.appendIfNotNil(wrapf(ErrDuplicate, "%s", c.qualified(name)))
	}
	c.names[name] = true
	if width < 1 || width > 64 {
		c.errs.appendIfNotNil(wrapf(ErrRange, "%s: width %d", c.qualified(name), width))
		width = 1
	}
	c.errs.appendIfNotNil(checkFields(c.qualified(name), width, fields))
	return reg{name: name, width: width, fields: fields}
}

// checkFields validates a field layout against the register width.
func checkFields(name string, width int, fields []Field) error {
	var errs ErrorList
	var used uint64
	seen := make(map[string]bool)
	for _, f := range fields {
		if seen[f.Name] {
			errs.appendIfNotNil(wrapf(ErrDuplicate, "%s: field %s", name, f.Name))
		}
		seen[f.Name] = true
		if f.Size < 1 || f.Offset < 0 || f.Offset+f.Size > width {
			errs.appendIfNotNil(wrapf(ErrRange, "%s: field %s [%d:%d] in %d bits",
				name, f.Name, f.Offset, f.Offset+f.Size, width))
			continue
		}
		if used&f.mask() != 0 {
			errs.appendIfNotNil(wrapf(ErrOverlap, "%s: field %s", name, f.Name))
		}
		used |= f.mask()
	}
	return errs.Err()
}

// fieldReset returns the register value holding all field reset values.
func fieldReset(fields []Field) uint64 {
	var v uint64
	for _, f := range fields {
		if f.Size < 1 || f.Offset < 0 || f.Offset+f.Size > 64 {
			continue
		}
		v |= (f.Reset << f.Offset) & f.mask()
	}
	return v
}

// CSR adds a raw command register. The owner drives W; the bus drives R, RE
// and WE.
func (c *Collector) CSR(name string, width int) *CSR {
	r := &CSR{reg: c.add(name, width, nil)}
	q := c.qualified(name)
	r.R = c.d.Signal(q+"_r", r.width)
	r.RE = c.d.Signal(q+"_re", 1)
	r.W = c.d.Signal(q+"_w", r.width)
	r.WE = c.d.Signal(q+"_we", 1)
	c.regs = append(c.regs, r)
	return r
}

// Status adds a read-only register. The owner drives Status.
func (c *Collector) Status(name string, width int, fields ...Field) *Status {
	r := &Status{reg: c.add(name, width, fields)}
	r.Status = c.d.Signal(c.qualified(name)+"_status", r.width).WithReset(fieldReset(fields))
	c.regs = append(c.regs, r)
	return r
}

// Storage adds a read/write register held in the sys domain. Its reset value
// is composed of the field resets.
func (c *Collector) Storage(name string, width int, fields ...Field) *Storage {
	r := &Storage{reg: c.add(name, width, fields)}
	q := c.qualified(name)
	r.Storage = c.sys.Reg(q+"_storage", r.width).WithReset(fieldReset(fields))
	r.RE = c.sys.Reg(q+"_re", 1)
	c.sys.Sync(q, r.tick)
	c.regs = append(c.regs, r)
	return r
}
