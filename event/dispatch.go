package event

import (
	"github.com/pkg/errors"

	"github.com/clktmr/socsim/csr"
)

var ErrUnhandled = errors.New("unhandled interrupt")

// Dispatcher is the driver side of a manager: it runs the handler of every
// pending and enabled source and acknowledges it through the bank.
type Dispatcher struct {
	m        *Manager
	bank     *csr.Bank
	handlers []func()
}

func NewDispatcher(m *Manager, bank *csr.Bank) *Dispatcher {
	return &Dispatcher{m: m, bank: bank, handlers: make([]func(), len(m.sources))}
}

// SetHandler installs handler for the named source and enables it.
func (p *Dispatcher) SetHandler(name string, handler func()) error {
	s := p.m.Source(name)
	if s == nil {
		return errors.Errorf("no event source %s", name)
	}
	p.handlers[s.index] = handler
	return p.bank.Write(p.m.Name("enable"), p.mask())
}

func (p *Dispatcher) Handler(name string) func() {
	if s := p.m.Source(name); s != nil {
		return p.handlers[s.index]
	}
	return nil
}

func (p *Dispatcher) mask() uint64 {
	var mask uint64
	for i, h := range p.handlers {
		if h != nil {
			mask |= 1 << i
		}
	}
	return mask
}

// Service handles all pending and enabled sources and reports how many were
// handled. A source its handler left pending is acknowledged by queueing a
// write to the pending register.
func (p *Dispatcher) Service() (int, error) {
	if !p.m.Irq.Bool() {
		return 0, nil
	}
	pending, err := p.bank.Peek(p.m.Name("pending"))
	if err != nil {
		return 0, err
	}
	enable, err := p.bank.Peek(p.m.Name("enable"))
	if err != nil {
		return 0, err
	}
	n := 0
	for i, s := range p.m.sources {
		flag := uint64(1) << i
		if pending&enable&flag == 0 {
			continue
		}
		handler := p.handlers[i]
		if handler == nil {
			return n, errors.Wrapf(ErrUnhandled, "%s", s.name)
		}
		handler()
		n++
		if !s.Pending.Bool() {
			continue
		}
		if err := p.bank.Write(p.m.Name("pending"), flag); err != nil {
			return n, err
		}
	}
	return n, nil
}
