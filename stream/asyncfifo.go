package stream

import (
	"fmt"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/clktmr/socsim/sim"
)

var ErrDepth = errors.New("fifo depth must be a power of two and at least 2")

// Default geometry of an AsyncFIFO.
const (
	DefaultDepth = 4
	DefaultWidth = 8
)

// AsyncFIFO moves items from a write domain to a read domain that run at
// unrelated rates.
//
// Each side keeps its pointer as a gray coded counter one bit wider than
// needed to address the storage. The pointer crosses to the other domain
// through two registers clocked by that domain, so the other side only ever
// compares against a pointer that lags behind. The lag makes Sink.Ready and
// Source.Valid pessimistic but never wrong. The output is not registered:
// Source.Data shows the head entry as soon as Source.Valid is asserted.
type AsyncFIFO struct {
	Sink   *Endpoint // write domain
	Source *Endpoint // read domain

	depth int
	bits  int
	mask  uint64
	mem   []*sim.Signal

	produce, produceBin *sim.Signal // write domain
	consume, consumeBin *sim.Signal // read domain

	produceR [2]*sim.Signal // produce synchronised to the read domain
	consumeW [2]*sim.Signal // consume synchronised to the write domain
}

// NewAsyncFIFO creates a FIFO of depth items of width bits each.
func NewAsyncFIFO(d *sim.Design, name string, wdom, rdom *sim.Domain, width, depth int) (*AsyncFIFO, error) {
	if depth < 2 || depth&(depth-1) != 0 {
		return nil, errors.Wrapf(ErrDepth, "%s: %d", name, depth)
	}
	n := bits.Len(uint(depth)) - 1
	f := &AsyncFIFO{
		Sink:   NewEndpoint(d, name+"_sink", width),
		Source: NewEndpoint(d, name+"_source", width),
		depth:  depth,
		bits:   n,
		mask:   1<<(n+1) - 1,
		mem:    make([]*sim.Signal, depth),

		produce:    wdom.Reg(name+"_produce", n+1),
		produceBin: wdom.Reg(name+"_produce_bin", n+1),
		consume:    rdom.Reg(name+"_consume", n+1),
		consumeBin: rdom.Reg(name+"_consume_bin", n+1),
	}
	for i := range f.mem {
		f.mem[i] = wdom.Reg(fmt.Sprintf("%s_mem%d", name, i), width)
	}
	for i := range 2 {
		f.produceR[i] = rdom.Reg(fmt.Sprintf("%s_produce_r%d", name, i), n+1)
		f.consumeW[i] = wdom.Reg(fmt.Sprintf("%s_consume_w%d", name, i), n+1)
	}

	d.Comb(name, f.comb)
	wdom.Sync(name+"_write", f.write)
	rdom.Sync(name+"_read", f.read)
	return f, nil
}

func (f *AsyncFIFO) Depth() int { return f.depth }

// Writable reports whether the write side sees room for another item.
func (f *AsyncFIFO) Writable() bool {
	full := uint64(3) << (f.bits - 1)
	return f.produce.Get() != f.consumeW[1].Get()^full
}

// Readable reports whether the read side sees an item.
func (f *AsyncFIFO) Readable() bool {
	return f.consume.Get() != f.produceR[1].Get()
}

func (f *AsyncFIFO) index(bin *sim.Signal) int {
	return int(bin.Get()) & (f.depth - 1)
}

func (f *AsyncFIFO) comb() {
	f.Sink.Ready.SetBool(f.Writable())
	f.Source.Valid.SetBool(f.Readable())
	f.Source.Data.Set(f.mem[f.index(f.consumeBin)].Get())
}

func (f *AsyncFIFO) write() {
	if f.Sink.Fire() {
		f.mem[f.index(f.produceBin)].Set(f.Sink.Data.Get())
		next := (f.produceBin.Get() + 1) & f.mask
		f.produceBin.Set(next)
		f.produce.Set(ToGray(next))
	}
	f.consumeW[0].Set(f.consume.Get())
	f.consumeW[1].Set(f.consumeW[0].Get())
}

func (f *AsyncFIFO) read() {
	if f.Source.Fire() {
		next := (f.consumeBin.Get() + 1) & f.mask
		f.consumeBin.Set(next)
		f.consume.Set(ToGray(next))
	}
	f.produceR[0].Set(f.produce.Get())
	f.produceR[1].Set(f.produceR[0].Get())
}
