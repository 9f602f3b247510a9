package pty

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"time"

	"github.com/aymanbagabas/go-pty"
	"github.com/tebeka/atexit"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/clktmr/socsim/bridge"
	"github.com/clktmr/socsim/soc"
)

const usageString = `Expose the design's uart on a pseudo terminal.

Usage: %s [flags]

Bytes received by the host are written to the terminal. In the generator
design every byte read from the terminal pulses start, in the loopback design
it is written to rxtx.

`

var (
	flags = flag.NewFlagSet("pty", flag.ExitOnError)

	loopback = flags.Bool("loopback", false, "use the loopback design")
	batch    = flags.Int("batch", 64, "ticks simulated between two polls")
	cfg      soc.Config
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "pty")
	flags.PrintDefaults()
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

	p, err := pty.New()
	if err != nil {
		log.Fatalln(err)
	}
	atexit.Register(func() { p.Close() })
	if state, err := term.MakeRaw(int(p.Fd())); err == nil {
		atexit.Register(func() { term.Restore(int(p.Fd()), state) })
	}
	log.Println("uart on", p.Name())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	input := bridge.NewQueue[byte](256)
	output := bridge.NewQueue[byte](256)

	g.Go(func() error {
		buf := make([]byte, 64)
		for {
			n, err := p.Read(buf)
			for _, b := range buf[:n] {
				for !input.Push(b) {
					if ctx.Err() != nil {
						return nil
					}
					time.Sleep(time.Millisecond)
				}
			}
			if err == io.EOF || ctx.Err() != nil {
				return nil
			} else if err != nil {
				return err
			}
		}
	})
	g.Go(func() error {
		for ctx.Err() == nil {
			b, ok := output.Pop()
			if !ok {
				time.Sleep(time.Millisecond)
				continue
			}
			if _, err := p.Write([]byte{b}); err != nil {
				return err
			}
		}
		return nil
	})
	g.Go(func() error {
		// closing the pty ends the reader
		defer p.Close()
		return simulate(ctx, s, input, output)
	})

	if err := g.Wait(); err != nil {
		log.Println(err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

// simulate owns the design and exchanges bytes with the terminal through the
// queues.
func simulate(ctx context.Context, s *soc.SoC, input, output *bridge.Queue[byte]) error {
	for ctx.Err() == nil {
		b, ok := input.Pop()
		if ok {
			var err error
			if s.Generator != nil {
				err = s.PulseStart()
			} else {
				err = s.WriteByte(b)
			}
			if err != nil {
				return err
			}
		}
		s.Step(*batch)
		rx, err := s.Service()
		if err != nil {
			return err
		}
		for _, b := range rx {
			for !output.Push(b) {
				if ctx.Err() != nil {
					return nil
				}
				time.Sleep(time.Millisecond)
			}
		}
		if !ok && len(rx) == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}
