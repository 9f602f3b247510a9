package term

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/buildkite/shellwords"
	"github.com/mattn/go-tty"
	"github.com/pkg/errors"
	"github.com/tebeka/atexit"
	"golang.org/x/term"

	"github.com/clktmr/socsim/bridge"
	"github.com/clktmr/socsim/soc"
)

const usageString = `Interactive console attached to a running design.

Usage: %s [flags]

Type 'help' for the console commands.

`

const helpString = `start              pulse the generator's start input
step <n>           advance the design by n ticks
send <text>...     write text to rxtx
peek <reg>         print a register
poke <reg> <val>   write a register
regs               print all registers
status             print simulation progress
quit               leave the console
`

var (
	flags = flag.NewFlagSet("term", flag.ExitOnError)

	loopback = flags.Bool("loopback", false, "use the loopback design")
	batch    = flags.Int("batch", 64, "ticks simulated between two console polls")
	cfg      soc.Config
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "term")
	flags.PrintDefaults()
}

// console serializes output of the simulation and the line editor.
type console struct {
	mu sync.Mutex
	w  *os.File
}

func (c *console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	// raw mode, no output processing
	s := strings.ReplaceAll(string(p), "\n", "\r\n")
	if _, err := c.w.WriteString(s); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *console) Printf(format string, args ...any) {
	fmt.Fprintf(c, format, args...)
}

func Main(args []string) {
	cfg.RegisterFlags(flags)
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 0 || *batch < 1 {
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

	t, err := tty.Open()
	if err != nil {
		log.Fatalln(err)
	}
	atexit.Register(func() { t.Close() })
	fd := int(t.Input().Fd())
	state, err := term.MakeRaw(fd)
	if err != nil {
		log.Println("raw mode:", err)
		atexit.Exit(1)
	}
	atexit.Register(func() { term.Restore(fd, state) })

	c := &console{w: t.Output()}
	cmds := bridge.NewQueue[[]string](16)
	status := bridge.NewLatest[soc.Status]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		simulate(s, c, cmds, status)
	}()

	c.Printf("socsim console, type 'help' for commands\n> ")
	var line []rune
	for {
		r, err := t.ReadRune()
		if err != nil {
			c.Printf("\n%v\n", err)
			break
		}
		switch r {
		case 0x03, 0x04: // ^C, ^D
			line = []rune("quit")
			fallthrough
		case '\r', '\n':
			c.Printf("\n")
			words, err := shellwords.Split(string(line))
			line = line[:0]
			if err != nil {
				c.Printf("%v\n> ", err)
				continue
			}
			if len(words) == 0 {
				c.Printf("> ")
				continue
			}
			switch words[0] {
			case "help":
				c.Printf("%s> ", helpString)
				continue
			case "status":
				st, _ := status.Load()
				c.Printf("%dps sys %d pix %d irq %v %s\n> ", st.Now, st.SysCycle, st.PixCycle, st.Irq, st.State)
				continue
			}
			for !cmds.Push(words) {
				time.Sleep(time.Millisecond)
			}
			if words[0] == "quit" {
				<-done
				atexit.Exit(0)
			}
		case 0x7f, 0x08:
			if len(line) > 0 {
				line = line[:len(line)-1]
				c.Printf("\b \b")
			}
		default:
			if r >= ' ' {
				line = append(line, r)
				c.Printf("%c", r)
			}
		}
	}
	atexit.Exit(1)
}

// simulate owns the design. It runs it continuously and executes console
// commands in between.
func simulate(s *soc.SoC, c *console, cmds *bridge.Queue[[]string], status *bridge.Latest[soc.Status]) {
	for {
		words, ok := cmds.Pop()
		if ok {
			if words[0] == "quit" {
				return
			}
			if err := execute(s, c, words); err != nil {
				c.Printf("%s: %v\n", words[0], err)
			}
			c.Printf("> ")
		}
		s.Step(*batch)
		rx, err := s.Service()
		if err != nil {
			c.Printf("\nservice: %v\n> ", err)
		}
		if len(rx) > 0 {
			c.Printf("%s", rx)
		}
		status.Store(s.Status())
		if !ok && len(rx) == 0 {
			time.Sleep(time.Millisecond)
		}
	}
}

func execute(s *soc.SoC, c *console, words []string) error {
	arg := func(i int) (uint64, error) {
		if len(words) <= i {
			return 0, errors.New("missing argument")
		}
		return strconv.ParseUint(words[i], 0, 64)
	}
	switch words[0] {
	case "start":
		return s.PulseStart()
	case "step":
		n, err := arg(1)
		if err != nil {
			return err
		}
		s.Step(int(n))
	case "send":
		for _, b := range []byte(strings.Join(words[1:], " ") + "\n") {
			if err := s.WriteByte(b); err != nil {
				return err
			}
		}
	case "peek":
		if len(words) != 2 {
			return errors.New("usage: peek <reg>")
		}
		v, err := s.Peek(words[1])
		if err != nil {
			return err
		}
		c.Printf("%#x\n", v)
	case "poke":
		v, err := arg(2)
		if err != nil {
			return err
		}
		return s.Poke(words[1], v)
	case "regs":
		for _, r := range s.Bank.Regions() {
			v, err := s.Peek(r.Name)
			if err != nil {
				return err
			}
			c.Printf("%04x %-20s %#x\n", r.Offset, r.Name, v)
		}
	default:
		return errors.New("unknown command, try 'help'")
	}
	return nil
}
