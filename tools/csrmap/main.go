package csrmap

import (
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/clktmr/socsim/soc"
)

const usageString = `Print the register map of a design.

Usage: %s [flags]

`

var (
	flags = flag.NewFlagSet("csrmap", flag.ExitOnError)

	base     = flags.Uint64("base", 0xf0000000, "base address of the bank")
	loopback = flags.Bool("loopback", false, "use the loopback design")
	cfg      soc.Config
)

func usage() {
	fmt.Fprintf(flags.Output(), usageString, "csrmap")
	flags.PrintDefaults()
}

func Main(args []string) {
	cfg.RegisterFlags(flags)
	flags.Usage = usage
	flags.Parse(args[1:])

	if flags.NArg() != 0 {
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

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "ADDRESS\tNAME\tKIND\tWIDTH\tFIELDS")
	for _, r := range s.Bank.Regions() {
		fmt.Fprintf(w, "%#08x\t%s\t%s\t%d\t", *base+uint64(r.Offset), r.Name, r.Kind, r.Width)
		for i, f := range r.Fields {
			if i > 0 {
				fmt.Fprint(w, " ")
			}
			fmt.Fprintf(w, "%s[%d:%d]", f.Name, f.Offset+f.Size-1, f.Offset)
		}
		fmt.Fprintln(w)
	}
	if err := w.Flush(); err != nil {
		log.Fatalln(err)
	}
}
