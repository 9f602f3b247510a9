//go:build !debug

// Package debug provides invariant checks for the simulator internals. They
// are enabled with the debug build tag and compile to no-ops otherwise, so
// they may be sprinkled into per-tick code paths.
package debug

// Enabled reports whether assertions are compiled in. Wrap expensive checks in
// `if debug.Enabled {...}` so release builds drop them entirely.
const Enabled = false

// Assert panics with message if b is false.
func Assert(b bool, message string) {}

// Assertf is like Assert with a formatted message.
func Assertf(b bool, format string, args ...any) {}
