// Package soc assembles the cores into complete designs and offers the
// register level access driver software would have.
package soc

import (
	"flag"

	"github.com/pkg/errors"

	"github.com/clktmr/socsim/cores/streamgen"
	"github.com/clktmr/socsim/stream"
)

var ErrConfig = errors.New("invalid configuration")

// Config holds the parameters of a design. Zero values are replaced by
// Defaults.
type Config struct {
	// Clock periods in picoseconds.
	SysPeriod uint64
	PixPeriod uint64

	Payload   string
	Reload    uint64
	FIFODepth int

	// Random ticks the domains in a random order seeded by Seed instead of
	// using the clock periods.
	Random bool
	Seed   int64

	// StateNames adds name observables to the state machines.
	StateNames bool
}

const (
	DefaultSysPeriod = 20833 // 48 MHz
	DefaultPixPeriod = 83333 // 12 MHz
)

func (c *Config) Defaults() {
	if c.SysPeriod == 0 {
		c.SysPeriod = DefaultSysPeriod
	}
	if c.PixPeriod == 0 {
		c.PixPeriod = DefaultPixPeriod
	}
	if c.Payload == "" {
		c.Payload = streamgen.DefaultPayload
	}
	if c.Reload == 0 {
		c.Reload = streamgen.DefaultReload
	}
	if c.FIFODepth == 0 {
		c.FIFODepth = stream.DefaultDepth
	}
}

func (c *Config) Validate() error {
	if c.FIFODepth < 2 || c.FIFODepth&(c.FIFODepth-1) != 0 {
		return errors.Wrapf(ErrConfig, "fifo depth %d is not a power of two", c.FIFODepth)
	}
	if c.FIFODepth > 1<<16 {
		return errors.Wrapf(ErrConfig, "fifo depth %d too large", c.FIFODepth)
	}
	if len(c.Payload) > 1<<16 {
		return errors.Wrapf(ErrConfig, "payload of %d bytes too large", len(c.Payload))
	}
	if c.Reload > 1<<32-1 {
		return errors.Wrapf(ErrConfig, "reload %d exceeds 32 bits", c.Reload)
	}
	return nil
}

// RegisterFlags binds the configuration to flags of fs.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.Uint64Var(&c.SysPeriod, "sys", DefaultSysPeriod, "sys clock period in ps")
	fs.Uint64Var(&c.PixPeriod, "pix", DefaultPixPeriod, "pix clock period in ps")
	fs.StringVar(&c.Payload, "payload", streamgen.DefaultPayload, "generator payload")
	fs.Uint64Var(&c.Reload, "reload", streamgen.DefaultReload, "pix cycles between two payload bytes")
	fs.IntVar(&c.FIFODepth, "depth", stream.DefaultDepth, "depth of the uart fifos")
	fs.BoolVar(&c.Random, "random", false, "tick the clock domains in random order")
	fs.Int64Var(&c.Seed, "seed", 1, "seed for -random")
	fs.BoolVar(&c.StateNames, "names", false, "add state name observables")
}
