package script

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/tebeka/atexit"
	lua "github.com/yuin/gopher-lua"

	"github.com/clktmr/socsim/sim"
	"github.com/clktmr/socsim/soc"
)

const usageString = `Drive a design from a Lua script.

Usage: %s [flags] <script.lua>

The script sees the functions

	start()              pulse the generator's start input
	step(n)              advance the design by n ticks
	send(s)              write the bytes of s to rxtx
	receive(n)           wait for n bytes and return them
	service()            return all bytes received so far
	peek(reg)            read a register
	poke(reg, v)         write a register
	now()                simulated time in ps
	state()              current generator state
	payload()            the generator's payload

`

var (
	flags = flag.NewFlagSet("script", flag.ExitOnError)

	loopback = flags.Bool("loopback", false, "use the loopback design")
	vcdfile  = flags.String("vcd", "", "write a value change dump to file")
	cfg      soc.Config
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "script")
	flags.PrintDefaults()
}

func Main(args []string) {
	cfg.RegisterFlags(flags)
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 1 {
		flags.Usage()
		os.Exit(1)
	}

	newSoC := soc.NewGenerator
	if *loopback {
		newSoC = soc.NewLoopback
	}
	s, err := newSoC(cfg)
	if err != nil {
		log.Fatalln(err)
	}
	if *vcdfile != "" {
		f, err := os.Create(*vcdfile)
		if err != nil {
			log.Fatalln(err)
		}
		vcd := sim.NewVCD(f, s.Design, "1ps")
		atexit.Register(func() {
			if err := vcd.Flush(); err != nil {
				log.Println("vcd:", err)
			}
			f.Close()
		})
	}

	L := NewState(s)
	defer L.Close()
	if err := L.DoFile(flags.Arg(0)); err != nil {
		log.Println(err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// NewState returns a Lua state with the design's functions registered as
// globals.
func NewState(s *soc.SoC) *lua.LState {
	L := lua.NewState()
	check := func(L *lua.LState, err error) {
		if err != nil {
			L.RaiseError("%v", err)
		}
	}
	fns := map[string]lua.LGFunction{
		"start": func(L *lua.LState) int {
			check(L, s.PulseStart())
			return 0
		},
		"step": func(L *lua.LState) int {
			s.Step(L.CheckInt(1))
			return 0
		},
		"send": func(L *lua.LState) int {
			for _, b := range []byte(L.CheckString(1)) {
				check(L, s.WriteByte(b))
			}
			return 0
		},
		"receive": func(L *lua.LState) int {
			rx, err := s.Receive(L.CheckInt(1))
			check(L, err)
			L.Push(lua.LString(rx))
			return 1
		},
		"service": func(L *lua.LState) int {
			rx, err := s.Service()
			check(L, err)
			L.Push(lua.LString(rx))
			return 1
		},
		"peek": func(L *lua.LState) int {
			v, err := s.Peek(L.CheckString(1))
			check(L, err)
			L.Push(lua.LNumber(v))
			return 1
		},
		"poke": func(L *lua.LState) int {
			check(L, s.Poke(L.CheckString(1), uint64(L.CheckInt64(2))))
			return 0
		},
		"now": func(L *lua.LState) int {
			L.Push(lua.LNumber(s.Now()))
			return 1
		},
		"state": func(L *lua.LState) int {
			L.Push(lua.LString(s.Status().State))
			return 1
		},
		"payload": func(L *lua.LState) int {
			L.Push(lua.LString(s.Config.Payload))
			return 1
		},
	}
	for name, fn := range fns {
		L.SetGlobal(name, L.NewFunction(fn))
	}
	return L
}
