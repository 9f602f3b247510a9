// Package fsm implements synchronous finite state machines on top of sim.
//
// A machine is built by registering one action per state with Act. In every
// step the action of the current state runs inside the machine's comb
// process: it drives outputs, picks the next state with NextState and stages
// register writes with NextValue. The state register and the staged writes
// are committed together on the domain's tick.
package fsm

import (
	"math/bits"

	"github.com/pkg/errors"

	"github.com/clktmr/socsim/sim"
)

var (
	ErrUnknownState = errors.New("unknown state")
	ErrDuplicate    = errors.New("duplicate state")
	ErrEmpty        = errors.New("state machine without states")
	ErrFinalized    = errors.New("state machine already finalized")
	ErrSealed       = errors.New("design already simulating")
)

type Option func(*FSM)

// WithStateNames adds the observables StateName and NextStateName holding
// the ASCII encoded name of the current and next state.
func WithStateNames() Option {
	return func(f *FSM) { f.names = true }
}

// WithReset selects the state the machine starts in. Defaults to the first
// state passed to Act.
func WithReset(state string) Option {
	return func(f *FSM) { f.reset = state }
}

// FSM is a state machine clocked by one domain.
type FSM struct {
	d    *sim.Design
	dom  *sim.Domain
	name string

	states  []string
	index   map[string]int
	actions []func(*Action)
	reset   string
	names   bool
	encoded [][]byte

	act       Action
	finalized bool

	State *sim.Signal // register
	Next  *sim.Signal // combinational

	// Only with WithStateNames.
	StateName     *sim.Lanes // register
	NextStateName *sim.Lanes // combinational
}

func New(d *sim.Design, dom *sim.Domain, name string, opts ...Option) *FSM {
	f := &FSM{d: d, dom: dom, name: name, index: make(map[string]int)}
	f.act.f = f
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Act sets the action run while the machine is in state, declaring the state
// if needed. Actions of a state compose in the order they were added.
func (f *FSM) Act(state string, fn func(a *Action)) {
	if f.finalized {
		panic(errors.Wrapf(ErrFinalized, "%s: act %s", f.name, state))
	}
	i, ok := f.index[state]
	if !ok {
		i = len(f.states)
		f.index[state] = i
		f.states = append(f.states, state)
		f.actions = append(f.actions, nil)
	}
	if prev := f.actions[i]; prev != nil {
		f.actions[i] = func(a *Action) { prev(a); fn(a) }
	} else {
		f.actions[i] = fn
	}
}

// States returns the declared states, indexed by their encoding.
func (f *FSM) States() []string { return f.states }

// Encoding returns the numeric encoding of state.
func (f *FSM) Encoding(state string) (uint64, error) {
	i, ok := f.index[state]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownState, "%s: %s", f.name, state)
	}
	return uint64(i), nil
}

// Finalize creates the state registers and processes. No state can be
// added afterwards.
func (f *FSM) Finalize() error {
	if f.finalized {
		return errors.Wrap(ErrFinalized, f.name)
	}
	if f.d.Sealed() {
		return errors.Wrap(ErrSealed, f.name)
	}
	if len(f.states) == 0 {
		return errors.Wrap(ErrEmpty, f.name)
	}
	reset := 0
	if f.reset != "" {
		i, ok := f.index[f.reset]
		if !ok {
			return errors.Wrapf(ErrUnknownState, "%s: reset state %s", f.name, f.reset)
		}
		reset = i
	}
	f.finalized = true

	width := max(1, bits.Len(uint(len(f.states)-1)))
	f.State = f.dom.Reg(f.name+"_state", width).WithReset(uint64(reset))
	f.Next = f.d.Signal(f.name+"_next_state", width)

	if f.names {
		longest := 0
		f.encoded = make([][]byte, len(f.states))
		for i, s := range f.states {
			b, err := ASCII.NewEncoder().Bytes([]byte(s))
			if err != nil {
				return errors.Wrapf(err, "%s: encode %s", f.name, s)
			}
			f.encoded[i] = b
			longest = max(longest, len(b))
		}
		f.StateName = f.dom.RegLanes(f.name+"_state_name", longest).WithReset(f.encoded[reset])
		f.NextStateName = f.d.Lanes(f.name+"_next_state_name", longest)
	}

	f.d.Comb(f.name, f.comb)
	f.dom.Sync(f.name, f.sync)
	return nil
}

// Ongoing reports whether the machine is in state.
func (f *FSM) Ongoing(state string) bool {
	return f.State.Get() == f.mustIndex(state)
}

// Entering reports whether the machine moves to state at the next tick.
func (f *FSM) Entering(state string) bool {
	i := f.mustIndex(state)
	return f.Next.Get() == i && f.State.Get() != i
}

// Leaving reports whether the machine leaves state at the next tick.
func (f *FSM) Leaving(state string) bool {
	i := f.mustIndex(state)
	return f.State.Get() == i && f.Next.Get() != i
}

// Current returns the name of the current state.
func (f *FSM) Current() string {
	return f.states[f.State.Get()]
}

// DecodeName returns the state name held by one of the name observables.
func DecodeName(l *sim.Lanes) string {
	b, err := ASCII.NewDecoder().Bytes(l.Bytes())
	if err != nil {
		return ""
	}
	return string(b)
}

func (f *FSM) mustIndex(state string) uint64 {
	i, ok := f.index[state]
	if !ok {
		panic(errors.Wrapf(ErrUnknownState, "%s: %s", f.name, state))
	}
	return uint64(i)
}

func (f *FSM) comb() {
	cur := int(f.State.Get())
	a := &f.act
	a.cur, a.next = cur, cur
	a.values = a.values[:0]
	if fn := f.actions[cur]; fn != nil {
		fn(a)
	}
	f.Next.Set(uint64(a.next))
	if f.NextStateName != nil {
		f.NextStateName.SetBytes(f.encoded[a.next])
	}
}

func (f *FSM) sync() {
	for _, v := range f.act.values {
		v.target.Set(v.value)
	}
	f.State.Set(uint64(f.act.next))
	if f.StateName != nil {
		f.StateName.SetBytes(f.encoded[f.act.next])
	}
}

type intent struct {
	target *sim.Signal
	value  uint64
}

// Action is handed to the action of the current state.
type Action struct {
	f      *FSM
	cur    int
	next   int
	values []intent
}

// State returns the name of the current state.
func (a *Action) State() string { return a.f.states[a.cur] }

// NextState selects the state of the next step. The last call wins.
func (a *Action) NextState(state string) {
	a.next = int(a.f.mustIndex(state))
}

// NextValue stages a write of v to the register target, committed with the
// next state. Writes to the same target coalesce, the last one wins.
func (a *Action) NextValue(target *sim.Signal, v uint64) {
	if !target.IsReg() || target.Domain() != a.f.dom {
		panic("fsm: " + a.f.name + ": NextValue target " + target.Name() + " is not a register of " + a.f.dom.Name())
	}
	for i := range a.values {
		if a.values[i].target == target {
			a.values[i].value = v
			return
		}
	}
	a.values = append(a.values, intent{target, v})
}
