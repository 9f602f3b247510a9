// Package stream implements ready/valid stream endpoints and an asynchronous
// FIFO crossing between two clock domains.
package stream

import (
	"github.com/clktmr/socsim/sim"
)

// Endpoint is one side of a ready/valid handshake. Data is meaningful only
// while Valid is asserted. A transfer happens in every step in which Valid
// and Ready are both asserted. The producer drives Valid and Data, the
// consumer drives Ready.
type Endpoint struct {
	Valid *sim.Signal
	Ready *sim.Signal
	Data  *sim.Signal
}

// NewEndpoint creates the handshake signals of an endpoint carrying width
// bits of payload.
func NewEndpoint(d *sim.Design, name string, width int) *Endpoint {
	return &Endpoint{
		Valid: d.Signal(name+"_valid", 1),
		Ready: d.Signal(name+"_ready", 1),
		Data:  d.Signal(name+"_data", width),
	}
}

// Fire reports whether a transfer happens in the current step.
func (e *Endpoint) Fire() bool {
	return e.Valid.Bool() && e.Ready.Bool()
}

// Connect forwards valid and data from a producer endpoint to a consumer
// endpoint and ready back.
func Connect(d *sim.Design, name string, from, to *Endpoint) {
	d.Comb(name, func() {
		to.Valid.Set(from.Valid.Get())
		to.Data.Set(from.Data.Get())
		from.Ready.Set(to.Ready.Get())
	})
}
