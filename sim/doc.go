// Package sim is a cycle-level simulator for synchronous designs with several
// independently clocked domains.
//
// A Design owns signals and processes. Combinational processes (Comb) compute
// outputs from the current state and are re-run until all combinational
// signals settle. Sync processes belong to a Domain and may only stage writes
// to registers of that same domain; the staged values become visible when the
// domain ticks. Domains never tick together, a Scheduler decides their
// interleaving.
//
// Structural mistakes (two comb drivers, writes across domains, combinational
// loops, adding signals after the first tick) are programming errors and
// panic.
package sim
