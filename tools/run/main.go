package run

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"

	"github.com/buildkite/shellwords"
	"github.com/pkg/errors"
	"github.com/tebeka/atexit"

	"github.com/clktmr/socsim/sim"
	"github.com/clktmr/socsim/soc"
	"github.com/clktmr/socsim/stream"
)

const usageString = `Run the generator design and print what the host receives.

Usage: %s [flags]

`

var (
	flags = flag.NewFlagSet("run", flag.ExitOnError)

	passes  = flags.Int("n", 1, "number of start pulses")
	vcdfile = flags.String("vcd", "", "write a value change dump to file")
	execCmd = flags.String("exec", "", "pipe the received bytes into command")
	verbose = flags.Bool("v", false, "print progress")
	cfg     soc.Config
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "run")
	flags.PrintDefaults()
}

func fatal(v ...any) {
	log.Println(v...)
	atexit.Exit(1)
}

func Main(args []string) {
	cfg.RegisterFlags(flags)
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 0 || *passes < 1 {
		flags.Usage()
		os.Exit(1)
	}

	s, err := soc.NewGenerator(cfg)
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

	payload := []byte(s.Config.Payload)
	var got []byte
	for i := range *passes {
		if err := s.PulseStart(); err != nil {
			fatal("start:", err)
		}
		rx, err := s.Receive(len(payload))
		got = append(got, rx...)
		if err != nil {
			fatal(fmt.Sprintf("pass %d:", i), err)
		}
		if *verbose {
			st := s.Status()
			log.Printf("pass %d done at %dps, sys %d, pix %d", i, st.Now, st.SysCycle, st.PixCycle)
		}
	}

	if *execCmd != "" {
		err = pipe(*execCmd, got)
	} else {
		_, err = os.Stdout.Write(got)
	}
	if err != nil {
		fatal(err)
	}

	expected := bytes.Repeat(payload, *passes)
	if sum, want := stream.Sum8(got), stream.Sum8(expected); sum != want {
		fatal(fmt.Sprintf("checksum mismatch: got %#02x, expected %#02x", sum, want))
	}
	atexit.Exit(0)
}

func pipe(cmdline string, data []byte) error {
	args, err := shellwords.SplitPosix(cmdline)
	if err != nil {
		return errors.Wrap(err, "exec")
	}
	if len(args) == 0 {
		return errors.New("exec: empty command")
	}
	cmd := exec.Command(args[0], args[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	if _, err := io.Copy(stdin, bytes.NewReader(data)); err != nil {
		return err
	}
	stdin.Close()
	return cmd.Wait()
}
