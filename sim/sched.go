package sim

import (
	"math/rand"
)

// Scheduler decides which domain ticks next and at what time.
type Scheduler interface {
	Next() (dom *Domain, now uint64)
}

// Clock describes a periodic domain. Times are in picoseconds.
type Clock struct {
	Domain *Domain
	Period uint64
	Phase  uint64
}

// Periodic ticks domains at their clock edges. Edges falling on the same
// instant are taken in the order the clocks were given.
type Periodic struct {
	clocks []Clock
	edges  []uint64
}

func NewPeriodic(clocks ...Clock) *Periodic {
	p := &Periodic{clocks: clocks, edges: make([]uint64, len(clocks))}
	for i, c := range clocks {
		if c.Period == 0 {
			panic("sim: clock " + c.Domain.name + " has zero period")
		}
		p.edges[i] = c.Phase + c.Period
	}
	return p
}

func (p *Periodic) Next() (*Domain, uint64) {
	n := 0
	for i := range p.edges {
		if p.edges[i] < p.edges[n] {
			n = i
		}
	}
	t := p.edges[n]
	p.edges[n] += p.clocks[n].Period
	return p.clocks[n].Domain, t
}

// Random ticks a uniformly chosen domain at each step. It models domains
// without any fixed rate relationship.
type Random struct {
	rng  *rand.Rand
	doms []*Domain
	now  uint64
}

func NewRandom(seed int64, doms ...*Domain) *Random {
	if len(doms) == 0 {
		panic("sim: random scheduler without domains")
	}
	return &Random{rng: rand.New(rand.NewSource(seed)), doms: doms}
}

func (r *Random) Next() (*Domain, uint64) {
	r.now++
	return r.doms[r.rng.Intn(len(r.doms))], r.now
}

// Run performs n ticks as chosen by s.
func (d *Design) Run(s Scheduler, n int) {
	for range n {
		dom, now := s.Next()
		d.now = now
		d.Tick(dom)
	}
}

// RunUntil ticks as chosen by s until done returns true or max ticks have
// passed. It reports whether done was reached.
func (d *Design) RunUntil(s Scheduler, max int, done func() bool) bool {
	for range max {
		if done() {
			return true
		}
		dom, now := s.Next()
		d.now = now
		d.Tick(dom)
	}
	return done()
}
