// Package streamgen implements a generator that emits a fixed byte sequence
// on a stream endpoint each time it is started.
package streamgen

import (
	"github.com/pkg/errors"

	"github.com/clktmr/socsim/fsm"
	"github.com/clktmr/socsim/sim"
	"github.com/clktmr/socsim/stream"
)

const (
	DefaultPayload = "root\n"
	DefaultReload  = 20
)

var ErrPayload = errors.New("payload must not be empty")

type Config struct {
	Payload []byte
	// Reload is the number of steps the generator waits after each
	// accepted byte before presenting the next one.
	Reload uint64
}

func (c *Config) Defaults() {
	if c.Payload == nil {
		c.Payload = []byte(DefaultPayload)
	}
	if c.Reload == 0 {
		c.Reload = DefaultReload
	}
}

// StreamGenerator emits Payload on Source, one byte per Reload steps, after
// a rising edge of Start.
//
// It waits in INIT for the edge and emits the payload in EMIT, advancing only
// on accepted bytes. A rising edge seen during EMIT is remembered and starts
// the next pass as soon as the current one is complete.
type StreamGenerator struct {
	Source *stream.Endpoint
	Start  *sim.Signal
	FSM    *fsm.FSM

	payload []byte
	reload  uint64

	idx      *sim.Signal
	counter  *sim.Signal
	startReg *sim.Signal
	armed    *sim.Signal
	rising   *sim.Signal
	reloadCE *sim.Signal
}

// New creates a generator clocked by dom and triggered by start. Options are
// passed to the underlying state machine.
func New(d *sim.Design, dom *sim.Domain, name string, start *sim.Signal, cfg Config, opts ...fsm.Option) (*StreamGenerator, error) {
	cfg.Defaults()
	if len(cfg.Payload) == 0 {
		return nil, errors.Wrap(ErrPayload, name)
	}
	g := &StreamGenerator{
		Source:   stream.NewEndpoint(d, name+"_source", 8),
		Start:    start,
		FSM:      fsm.New(d, dom, name+"_fsm", opts...),
		payload:  cfg.Payload,
		reload:   cfg.Reload,
		idx:      dom.Reg(name+"_idx", 32),
		counter:  dom.Reg(name+"_counter", 32),
		startReg: dom.Reg(name+"_start_reg", 1),
		armed:    dom.Reg(name+"_armed", 1),
		rising:   d.Signal(name+"_start_rising", 1),
		reloadCE: d.Signal(name+"_counter_ce", 1),
	}

	d.Comb(name+"_start", func() {
		g.rising.SetBool(g.Start.Bool() && !g.startReg.Bool())
	})
	dom.Sync(name, func() {
		g.startReg.Set(g.Start.Get())
		if g.reloadCE.Bool() {
			g.counter.Set(g.reload)
		} else if c := g.counter.Get(); c > 0 {
			g.counter.Set(c - 1)
		}
	})

	g.FSM.Act("INIT", func(a *fsm.Action) {
		a.NextValue(g.idx, 0)
		if g.rising.Bool() || g.armed.Bool() {
			a.NextValue(g.armed, 0)
			a.NextState("EMIT")
		}
	})
	g.FSM.Act("EMIT", func(a *fsm.Action) {
		if g.rising.Bool() {
			a.NextValue(g.armed, 1)
		}
		if g.counter.Get() != 0 {
			return
		}
		idx := g.idx.Get()
		g.Source.Valid.Set(1)
		g.Source.Data.Set(uint64(g.payload[idx]))
		if g.Source.Ready.Bool() {
			g.reloadCE.Set(1)
			a.NextValue(g.idx, idx+1)
			if idx == uint64(len(g.payload)-1) {
				a.NextState("INIT")
			}
		}
	})
	if err := g.FSM.Finalize(); err != nil {
		return nil, err
	}
	return g, nil
}

// Payload returns the emitted byte sequence.
func (g *StreamGenerator) Payload() []byte { return g.payload }

// Idle reports whether the generator waits for a start and none is pending.
func (g *StreamGenerator) Idle() bool {
	return g.FSM.Ongoing("INIT") && !g.armed.Bool()
}

// Index returns the position of the next byte to emit.
func (g *StreamGenerator) Index() int { return int(g.idx.Get()) }
