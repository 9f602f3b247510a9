package sim

import "fmt"

// Lanes is a value wider than 64 bits, stored as big-endian byte lanes. Lane
// 0 holds the most significant byte.
type Lanes struct {
	name  string
	lanes []*Signal
}

func newLanes(name string, n int, mk func(string) *Signal) *Lanes {
	if n < 1 {
		panic(fmt.Sprintf("sim: lanes %s: invalid length %d", name, n))
	}
	l := &Lanes{name: name, lanes: make([]*Signal, n)}
	for i := range l.lanes {
		l.lanes[i] = mk(fmt.Sprintf("%s[%d]", name, i))
		l.lanes[i].lanes = l
	}
	return l
}

// Lanes creates a combinational n byte wide value.
func (d *Design) Lanes(name string, n int) *Lanes {
	return newLanes(name, n, func(s string) *Signal { return d.Signal(s, 8) })
}

// RegLanes creates an n byte wide register clocked by dom.
func (dom *Domain) RegLanes(name string, n int) *Lanes {
	return newLanes(name, n, func(s string) *Signal { return dom.Reg(s, 8) })
}

func (l *Lanes) Name() string { return l.name }

// Len returns the width in bytes.
func (l *Lanes) Len() int { return len(l.lanes) }

// Lane returns the signal holding byte i.
func (l *Lanes) Lane(i int) *Signal { return l.lanes[i] }

// Bytes returns the current value.
func (l *Lanes) Bytes() []byte {
	b := make([]byte, len(l.lanes))
	for i, s := range l.lanes {
		b[i] = byte(s.Get())
	}
	return b
}

// SetBytes drives the lanes with b, right aligned. Missing leading bytes are
// zero, excess leading bytes of b are dropped.
func (l *Lanes) SetBytes(b []byte) {
	if len(b) > len(l.lanes) {
		b = b[len(b)-len(l.lanes):]
	}
	pad := len(l.lanes) - len(b)
	for i, s := range l.lanes {
		if i < pad {
			s.Set(0)
		} else {
			s.Set(uint64(b[i-pad]))
		}
	}
}

// WithReset sets the reset value of all lanes, right aligned like SetBytes.
func (l *Lanes) WithReset(b []byte) *Lanes {
	if len(b) > len(l.lanes) {
		b = b[len(b)-len(l.lanes):]
	}
	pad := len(l.lanes) - len(b)
	for i := pad; i < len(l.lanes); i++ {
		l.lanes[i].WithReset(uint64(b[i-pad]))
	}
	return l
}
