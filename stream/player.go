package stream

import (
	"math/rand"

	"github.com/sigurn/crc8"

	"github.com/clktmr/socsim/sim"
)

var crcTable = crc8.MakeTable(crc8.CRC8)

// Player feeds a fixed sequence of items into an endpoint. With a non-nil rng
// it withholds Valid in randomly chosen steps.
type Player struct {
	ep    *Endpoint
	items []uint64
	rng   *rand.Rand
	idx   *sim.Signal
	stall *sim.Signal
}

// NewPlayer drives ep from dom. ep.Valid and ep.Data must not have another
// driver.
func NewPlayer(d *sim.Design, dom *sim.Domain, name string, ep *Endpoint, items []uint64, rng *rand.Rand) *Player {
	p := &Player{
		ep:    ep,
		items: items,
		rng:   rng,
		idx:   dom.Reg(name+"_idx", 32),
		stall: dom.Reg(name+"_stall", 1),
	}
	d.Comb(name, func() {
		i := int(p.idx.Get())
		if i < len(p.items) && !p.stall.Bool() {
			p.ep.Valid.Set(1)
			p.ep.Data.Set(p.items[i])
		}
	})
	dom.Sync(name, func() {
		if p.ep.Fire() {
			p.idx.Set(p.idx.Get() + 1)
		}
		if p.rng != nil {
			p.stall.SetBool(p.rng.Intn(2) == 0)
		}
	})
	return p
}

// PlayBytes is NewPlayer for a byte sequence.
func PlayBytes(d *sim.Design, dom *sim.Domain, name string, ep *Endpoint, b []byte, rng *rand.Rand) *Player {
	items := make([]uint64, len(b))
	for i, c := range b {
		items[i] = uint64(c)
	}
	return NewPlayer(d, dom, name, ep, items, rng)
}

// Done reports whether all items were accepted.
func (p *Player) Done() bool {
	return int(p.idx.Get()) >= len(p.items)
}

// Sent returns the number of accepted items.
func (p *Player) Sent() int { return int(p.idx.Get()) }

// Recorder accepts items from an endpoint and keeps them. With a non-nil rng
// it withholds Ready in randomly chosen steps.
type Recorder struct {
	ep    *Endpoint
	rng   *rand.Rand
	stall *sim.Signal
	items []uint64
	csum  uint8
}

// NewRecorder drives ep.Ready from dom.
func NewRecorder(d *sim.Design, dom *sim.Domain, name string, ep *Endpoint, rng *rand.Rand) *Recorder {
	r := &Recorder{ep: ep, rng: rng, stall: dom.Reg(name+"_stall", 1)}
	r.csum = crc8.Init(crcTable)
	d.Comb(name, func() {
		r.ep.Ready.SetBool(!r.stall.Bool())
	})
	dom.Sync(name, func() {
		if r.ep.Fire() {
			v := r.ep.Data.Get()
			r.items = append(r.items, v)
			r.csum = crc8.Update(r.csum, []byte{byte(v)}, crcTable)
		}
		if r.rng != nil {
			r.stall.SetBool(r.rng.Intn(2) == 0)
		}
	})
	return r
}

// Items returns the accepted items in order.
func (r *Recorder) Items() []uint64 { return r.items }

// Bytes returns the low byte of every accepted item.
func (r *Recorder) Bytes() []byte {
	b := make([]byte, len(r.items))
	for i, v := range r.items {
		b[i] = byte(v)
	}
	return b
}

// Sum8 returns the CRC-8 of Bytes.
func (r *Recorder) Sum8() uint8 {
	return crc8.Complete(r.csum, crcTable)
}

// Sum8 returns the CRC-8 of b as computed by Recorder.Sum8.
func Sum8(b []byte) uint8 {
	return crc8.Checksum(b, crcTable)
}
