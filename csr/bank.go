package csr

import (
	"github.com/clktmr/socsim/debug"
	"github.com/clktmr/socsim/sim"
)

// Stride is the address distance between two registers of a bank.
const Stride = 4

// Region describes where a register of a bank is mapped.
type Region struct {
	Name   string
	Offset uint32
	Width  int
	Kind   Kind
	Fields []Field
}

type access struct {
	idx   int
	reg   Register
	write bool
	val   uint64
	done  func(uint64)
}

// Bank is a bus master for the registers of one or more bound maps. Accesses
// are queued and performed one per tick of the sys domain, the way driver
// software would issue them.
//
// A write to a raw register presents the value on R with RE asserted, a read
// asserts WE and samples W. A write to a storage register updates Storage and
// pulses RE (Commit.Applied once bound) in the following step.
type Bank struct {
	regions []Region
	regs    []Register
	index   map[string]int

	queue []access
	adr   *sim.Signal // index of the current access plus one, 0 if idle
	datW  *sim.Signal
	we    *sim.Signal
}

// NewBank maps the registers of maps in order and attaches the bus to sys.
// Must be called before the first tick.
func NewBank(d *sim.Design, sys *sim.Domain, maps ...*Map) *Bank {
	b := &Bank{index: make(map[string]int)}
	for _, m := range maps {
		for _, r := range m.Registers() {
			name := m.Name(r)
			if _, ok := b.index[name]; ok {
				panic(wrapf(ErrDuplicate, "bank: %s", name))
			}
			b.index[name] = len(b.regs)
			b.regions = append(b.regions, Region{
				Name:   name,
				Offset: uint32(len(b.regs)) * Stride,
				Width:  r.Width(),
				Kind:   r.Kind(),
				Fields: r.Fields(),
			})
			b.regs = append(b.regs, r)
		}
	}
	b.adr = sys.Reg("bank_adr", 16)
	b.datW = sys.Reg("bank_dat_w", 64)
	b.we = sys.Reg("bank_we", 1)
	d.Comb("bank", b.strobe)
	sys.Sync("bank", b.cycle)
	return b
}

// Regions lists the mapped registers in address order.
func (b *Bank) Regions() []Region { return b.regions }

func (b *Bank) lookup(name string) (int, Register, error) {
	i, ok := b.index[name]
	if !ok {
		return 0, nil, wrapf(ErrNoReg, "%s", name)
	}
	return i, b.regs[i], nil
}

// Write queues a bus write of v to the register called name.
func (b *Bank) Write(name string, v uint64) error {
	i, r, err := b.lookup(name)
	if err != nil {
		return err
	}
	if r.Kind() == KindStatus {
		return wrapf(ErrReadOnly, "%s", name)
	}
	b.push(access{idx: i, reg: r, write: true, val: v})
	return nil
}

// Read queues a bus read of the register called name. done is called with
// the value once the access was performed.
func (b *Bank) Read(name string, done func(uint64)) error {
	i, r, err := b.lookup(name)
	if err != nil {
		return err
	}
	b.push(access{idx: i, reg: r, done: done})
	return nil
}

// Peek returns the value a read would return without performing a bus cycle.
func (b *Bank) Peek(name string) (uint64, error) {
	_, r, err := b.lookup(name)
	if err != nil {
		return 0, err
	}
	return r.Value(), nil
}

// Idle reports whether all queued accesses were performed.
func (b *Bank) Idle() bool { return len(b.queue) == 0 }

func (b *Bank) push(a access) {
	b.queue = append(b.queue, a)
	if len(b.queue) == 1 {
		b.load()
	}
}

// load presents the head of the queue on the bus registers.
func (b *Bank) load() {
	if len(b.queue) == 0 {
		b.adr.Set(0)
		b.datW.Set(0)
		b.we.Set(0)
		return
	}
	a := b.queue[0]
	b.adr.Set(uint64(a.idx) + 1)
	b.datW.Set(a.val)
	b.we.SetBool(a.write)
}

func (b *Bank) current() (Register, bool) {
	adr := b.adr.Get()
	if adr == 0 {
		return nil, false
	}
	return b.regs[adr-1], true
}

func (b *Bank) strobe() {
	r, ok := b.current()
	if !ok {
		return
	}
	c, ok := r.(*CSR)
	if !ok {
		return
	}
	if b.we.Bool() {
		c.R.Set(b.datW.Get())
		c.RE.Set(1)
	} else {
		c.WE.Set(1)
	}
}

func (b *Bank) cycle() {
	r, ok := b.current()
	if !ok {
		return
	}
	a := b.queue[0]
	debug.Assert(a.reg == r, "csr: bank address does not match queued access")
	if s, ok := r.(*Storage); ok && a.write {
		s.busWrite(a.val)
	}
	if !a.write && a.done != nil {
		a.done(r.Value())
	}
	b.queue = b.queue[1:]
	b.load()
}
