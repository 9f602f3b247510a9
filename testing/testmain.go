// Package testing provides utilities shared by the socsim package tests.
package testing

import (
	"flag"
	"fmt"
	"os"
	"testing"
	"time"
)

var seed = flag.Int64("socsim.seed", 0, "seed for random schedules (0 picks one)")

// TestMain should be used as TestMain for tests that use Seed.
func TestMain(m *testing.M) {
	flag.Parse()
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	// Printed so a failing interleaving can be replayed with -socsim.seed.
	fmt.Fprintf(os.Stderr, "socsim.seed=%d\n", *seed)
	os.Exit(m.Run())
}

// Seed returns the seed for random schedules, offset by n so several
// schedules in one test differ.
func Seed(n int) int64 {
	return *seed + int64(n)
}

// Seeds returns n seeds, one per test case of a randomized table.
func Seeds(n int) []int64 {
	s := make([]int64, n)
	for i := range s {
		s[i] = Seed(i)
	}
	return s
}
