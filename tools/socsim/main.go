package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/clktmr/socsim/tools/csrmap"
	"github.com/clktmr/socsim/tools/pty"
	"github.com/clktmr/socsim/tools/run"
	"github.com/clktmr/socsim/tools/script"
	"github.com/clktmr/socsim/tools/term"
)

const usageString = `socsim simulates a UART with a stream generator across two clock domains.

Usage:

	%s <command> [arguments]

The commands are:

	run      run the generator design and print what the host receives
	term     interactive console attached to a running design
	pty      expose the design's uart on a pseudo terminal
	script   drive a design from a Lua script
	csrmap   print the register map
`

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), usageString, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	log.Default().SetFlags(0)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	switch flag.Arg(0) {
	case "run":
		run.Main(flag.Args())
	case "term":
		term.Main(flag.Args())
	case "pty":
		pty.Main(flag.Args())
	case "script":
		script.Main(flag.Args())
	case "csrmap":
		csrmap.Main(flag.Args())
	default:
		fmt.Fprintf(flag.CommandLine.Output(), "unknown command: %s\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
}
