package soc

import (
	"github.com/pkg/errors"

	"github.com/clktmr/socsim/cores/streamgen"
	"github.com/clktmr/socsim/cores/uartstream"
	"github.com/clktmr/socsim/csr"
	"github.com/clktmr/socsim/event"
	"github.com/clktmr/socsim/fsm"
	"github.com/clktmr/socsim/sim"
	"github.com/clktmr/socsim/stream"
)

var ErrTimeout = errors.New("timeout")

// MaxWait bounds the number of ticks a host access waits for the design.
const MaxWait = 1 << 20

// SoC is a complete design with a UARTStream in its register space.
type SoC struct {
	Config Config

	Design *sim.Design
	Sys    *sim.Domain
	Pix    *sim.Domain

	UART   *uartstream.UARTStream
	Bank   *csr.Bank
	Events *event.Dispatcher

	// Only set for the generator design.
	Generator *streamgen.StreamGenerator
	Start     *sim.Signal

	sched    sim.Scheduler
	rx       []byte
	txEvents int
	err      error
}

func newSoC(cfg Config) (*SoC, error) {
	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := sim.NewDesign()
	s := &SoC{Config: cfg, Design: d, Sys: d.Domain("sys"), Pix: d.Domain("pix")}
	var err error
	s.UART, err = uartstream.New(d, s.Sys, s.Pix, "uart", cfg.FIFODepth)
	if err != nil {
		return nil, errors.Wrap(err, "uart")
	}
	return s, nil
}

func (s *SoC) finish() (*SoC, error) {
	s.Bank = csr.NewBank(s.Design, s.Sys, s.UART.Map)
	s.Events = event.NewDispatcher(s.UART.Ev, s.Bank)
	if s.Config.Random {
		s.sched = sim.NewRandom(s.Config.Seed, s.Sys, s.Pix)
	} else {
		s.sched = sim.NewPeriodic(
			sim.Clock{Domain: s.Sys, Period: s.Config.SysPeriod},
			sim.Clock{Domain: s.Pix, Period: s.Config.PixPeriod},
		)
	}
	if err := s.Events.SetHandler("rx", s.rxHandler); err != nil {
		return nil, err
	}
	if err := s.Events.SetHandler("tx", func() { s.txEvents++ }); err != nil {
		return nil, err
	}
	return s, nil
}

// NewGenerator returns a design in which a StreamGenerator in the pix domain
// feeds the UARTStream. The generator emits its payload once per rising edge
// of Start.
func NewGenerator(cfg Config) (*SoC, error) {
	s, err := newSoC(cfg)
	if err != nil {
		return nil, err
	}
	var opts []fsm.Option
	if s.Config.StateNames {
		opts = append(opts, fsm.WithStateNames())
	}
	s.Start = s.Design.Input("start", 1)
	s.Generator, err = streamgen.New(s.Design, s.Pix, "gen", s.Start, streamgen.Config{
		Payload: []byte(s.Config.Payload),
		Reload:  s.Config.Reload,
	}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "generator")
	}
	stream.Connect(s.Design, "gen_uart", s.Generator.Source, s.UART.Sink)
	return s.finish()
}

// NewLoopback returns a design in which every byte written to the UARTStream
// is received by it again.
func NewLoopback(cfg Config) (*SoC, error) {
	s, err := newSoC(cfg)
	if err != nil {
		return nil, err
	}
	stream.Connect(s.Design, "loopback", s.UART.Source, s.UART.Sink)
	return s.finish()
}

// Step advances the design by n ticks.
func (s *SoC) Step(n int) {
	s.Design.Run(s.sched, n)
}

// Now returns the simulated time in picoseconds.
func (s *SoC) Now() uint64 { return s.Design.Now() }

func (s *SoC) wait(done func() bool) error {
	if !s.Design.RunUntil(s.sched, MaxWait, done) {
		return ErrTimeout
	}
	return nil
}

func (s *SoC) peek(name string) uint64 {
	v, err := s.Bank.Peek(s.reg(name))
	if err != nil {
		panic(err)
	}
	return v
}

func (s *SoC) reg(name string) string {
	return s.UART.Map.Owner() + "_" + name
}

// Peek returns the current bus value of the named register without a bus
// cycle. Names may omit the owner prefix.
func (s *SoC) Peek(name string) (uint64, error) {
	if v, err := s.Bank.Peek(name); err == nil {
		return v, nil
	}
	return s.Bank.Peek(s.reg(name))
}

// Poke writes v to the named register and waits for the bus cycle.
func (s *SoC) Poke(name string, v uint64) error {
	if _, err := s.Bank.Peek(name); err != nil {
		name = s.reg(name)
	}
	if err := s.Bank.Write(name, v); err != nil {
		return err
	}
	return s.wait(s.Bank.Idle)
}

// Status is a snapshot of the simulation progress.
type Status struct {
	Now      uint64
	SysCycle uint64
	PixCycle uint64
	State    string // generator state, empty for the loopback design
	Irq      bool
}

func (s *SoC) Status() Status {
	st := Status{
		Now:      s.Design.Now(),
		SysCycle: s.Sys.Cycle(),
		PixCycle: s.Pix.Cycle(),
		Irq:      s.UART.Ev.Irq.Bool(),
	}
	if s.Generator != nil {
		st.State = s.Generator.FSM.Current()
	}
	return st
}

// PulseStart raises Start for one pix cycle. Only valid for the generator
// design.
func (s *SoC) PulseStart() error {
	if s.Start == nil {
		return errors.New("design has no generator")
	}
	s.Start.Set(1)
	cycle := s.Pix.Cycle()
	err := s.wait(func() bool { return s.Pix.Cycle() > cycle })
	s.Start.Set(0)
	return err
}

// WriteByte writes b to rxtx once the transmit FIFO has room.
func (s *SoC) WriteByte(b byte) error {
	if err := s.wait(func() bool { return s.peek("txfull") == 0 }); err != nil {
		return errors.Wrap(err, "tx fifo full")
	}
	if err := s.Bank.Write(s.reg("rxtx"), uint64(b)); err != nil {
		return err
	}
	return s.wait(s.Bank.Idle)
}

// ReceiveByte takes the oldest received byte. It reports false if none is
// available.
func (s *SoC) ReceiveByte() (byte, bool, error) {
	if s.peek("rxempty") != 0 {
		return 0, false, nil
	}
	var b byte
	err := s.Bank.Read(s.reg("rxtx"), func(v uint64) { b = byte(v) })
	if err != nil {
		return 0, false, err
	}
	// clearing the rx event dequeues the byte
	err = s.Bank.Write(s.reg("ev_pending"), 1<<s.UART.Rx.Index())
	if err != nil {
		return 0, false, err
	}
	return b, true, s.wait(s.Bank.Idle)
}

// rxHandler reads the head byte. The dispatcher's acknowledge dequeues it.
func (s *SoC) rxHandler() {
	if s.peek("rxempty") != 0 {
		return
	}
	var b byte
	if err := s.Bank.Read(s.reg("rxtx"), func(v uint64) { b = byte(v) }); err != nil {
		s.err = err
		return
	}
	if err := s.wait(s.Bank.Idle); err != nil {
		s.err = err
		return
	}
	s.rx = append(s.rx, b)
}

// Service handles pending interrupts and returns all received bytes.
func (s *SoC) Service() ([]byte, error) {
	if _, err := s.Events.Service(); err != nil {
		return nil, err
	}
	if err := s.wait(s.Bank.Idle); err != nil {
		return nil, err
	}
	for s.err == nil {
		b, ok, err := s.ReceiveByte()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		s.rx = append(s.rx, b)
	}
	rx, err := s.rx, s.err
	s.rx, s.err = nil, nil
	return rx, err
}

// TxEvents returns the number of handled tx events.
func (s *SoC) TxEvents() int { return s.txEvents }

// Receive services the design until n bytes arrived or MaxWait ticks passed.
func (s *SoC) Receive(n int) ([]byte, error) {
	var got []byte
	for ticks := 0; len(got) < n; ticks += receiveStep {
		if ticks >= MaxWait {
			return got, ErrTimeout
		}
		rx, err := s.Service()
		got = append(got, rx...)
		if err != nil {
			return got, err
		}
		if len(got) < n {
			s.Step(receiveStep)
		}
	}
	return got, nil
}

const receiveStep = 16
