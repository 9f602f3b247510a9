package sim

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type vcdVar struct {
	id    string
	width int
	sig   *Signal
	lanes *Lanes
	last  string
}

func (v *vcdVar) value() string {
	if v.lanes != nil {
		var sb strings.Builder
		for _, b := range v.lanes.Bytes() {
			fmt.Fprintf(&sb, "%08b", b)
		}
		return sb.String()
	}
	return strconv.FormatUint(v.sig.cur, 2)
}

// VCD writes a value change dump of all signals of a design. Samples are
// taken after every tick with the scheduler's time.
type VCD struct {
	w      *bufio.Writer
	vars   []*vcdVar
	header bool
	err    error
}

// NewVCD traces all signals of d to w. Call it before the first tick.
func NewVCD(w io.Writer, d *Design, timescale string) *VCD {
	v := &VCD{w: bufio.NewWriter(w)}
	seen := make(map[*Lanes]bool)
	for _, s := range d.signals {
		if s.lanes != nil {
			if seen[s.lanes] {
				continue
			}
			seen[s.lanes] = true
			v.vars = append(v.vars, &vcdVar{id: vcdID(len(v.vars)), width: 8 * s.lanes.Len(), lanes: s.lanes})
			continue
		}
		v.vars = append(v.vars, &vcdVar{id: vcdID(len(v.vars)), width: s.width, sig: s})
	}
	v.printf("$timescale %s $end\n$scope module socsim $end\n", timescale)
	for _, x := range v.vars {
		var name string
		if x.sig != nil {
			name = x.sig.name
		} else {
			name = x.lanes.Name()
		}
		v.printf("$var wire %d %s %s $end\n", x.width, x.id, vcdName(name))
	}
	v.printf("$upscope $end\n$enddefinitions $end\n")
	d.Observe(func(*Domain) { v.Sample(d.now) })
	return v
}

// Sample writes all values that changed since the previous sample.
func (v *VCD) Sample(now uint64) {
	stamped := false
	if !v.header {
		v.printf("#%d\n$dumpvars\n", now)
		stamped = true
	}
	for _, x := range v.vars {
		val := x.value()
		if v.header && val == x.last {
			continue
		}
		if !stamped {
			v.printf("#%d\n", now)
			stamped = true
		}
		x.last = val
		if x.width == 1 {
			v.printf("%s%s\n", val, x.id)
		} else {
			v.printf("b%s %s\n", val, x.id)
		}
	}
	if !v.header {
		v.printf("$end\n")
		v.header = true
	}
}

// Flush writes buffered data and returns the first write error.
func (v *VCD) Flush() error {
	if err := v.w.Flush(); err != nil && v.err == nil {
		v.err = err
	}
	return v.err
}

func (v *VCD) printf(format string, args ...any) {
	if v.err != nil {
		return
	}
	_, v.err = fmt.Fprintf(v.w, format, args...)
}

// vcdID encodes n with the printable ASCII characters allowed as identifiers.
func vcdID(n int) string {
	const first, count = '!', '~' - '!' + 1
	var b []byte
	for {
		b = append(b, byte(first+n%count))
		n /= count
		if n == 0 {
			break
		}
		n--
	}
	return string(b)
}

func vcdName(name string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r > '~' {
			return '_'
		}
		return r
	}, name)
}
