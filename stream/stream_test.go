package stream_test

import (
	"fmt"
	"math/bits"
	"math/rand"
	"slices"
	"testing"

	"github.com/pkg/errors"

	"github.com/clktmr/socsim/sim"
	"github.com/clktmr/socsim/stream"
	socsimtesting "github.com/clktmr/socsim/testing"
)

func TestMain(m *testing.M) { socsimtesting.TestMain(m) }

func TestGray(t *testing.T) {
	for v := uint8(0); v < 255; v++ {
		if got := stream.FromGray(stream.ToGray(v)); got != v {
			t.Fatalf("decode(encode(%d)) = %d", v, got)
		}
		if d := bits.OnesCount8(stream.ToGray(v) ^ stream.ToGray(v+1)); d != 1 {
			t.Fatalf("gray codes of %d and %d differ in %d bits", v, v+1, d)
		}
	}
}

func TestDepth(t *testing.T) {
	for _, depth := range []int{0, 1, 3, 6} {
		d := sim.NewDesign()
		_, err := stream.NewAsyncFIFO(d, "fifo", d.Domain("w"), d.Domain("r"), 8, depth)
		if !errors.Is(err, stream.ErrDepth) {
			t.Fatalf("depth %d: expected ErrDepth, got %v", depth, err)
		}
	}
}

type fifoBench struct {
	d      *sim.Design
	w, r   *sim.Domain
	fifo   *stream.AsyncFIFO
	player *stream.Player
	rec    *stream.Recorder
	items  []uint64
}

func newFifoBench(t *testing.T, depth, n int, seed int64, stalls bool) *fifoBench {
	t.Helper()
	d := sim.NewDesign()
	w, r := d.Domain("w"), d.Domain("r")
	fifo, err := stream.NewAsyncFIFO(d, "fifo", w, r, 8, depth)
	if err != nil {
		t.Fatal(err)
	}
	rng := rand.New(rand.NewSource(seed))
	items := make([]uint64, n)
	for i := range items {
		items[i] = uint64(rng.Intn(256))
	}
	var prng, rrng *rand.Rand
	if stalls {
		prng = rand.New(rand.NewSource(seed + 1))
		rrng = rand.New(rand.NewSource(seed + 2))
	}
	b := &fifoBench{d: d, w: w, r: r, fifo: fifo, items: items}
	b.player = stream.NewPlayer(d, w, "player", fifo.Sink, items, prng)
	b.rec = stream.NewRecorder(d, r, "recorder", fifo.Source, rrng)

	d.Observe(func(*sim.Domain) {
		held := b.player.Sent() - len(b.rec.Items())
		if held < 0 || held > depth {
			t.Fatalf("fifo holds %d items", held)
		}
		if held == depth && fifo.Sink.Ready.Bool() {
			t.Fatal("ready while full")
		}
		if held == 0 && fifo.Source.Valid.Bool() {
			t.Fatal("valid while empty")
		}
	})
	return b
}

func (b *fifoBench) check(t *testing.T) {
	t.Helper()
	if !slices.Equal(b.rec.Items(), b.items) {
		t.Fatalf("expected %v, got %v", b.items, b.rec.Items())
	}
}

func TestAsyncFIFORandom(t *testing.T) {
	for i, seed := range socsimtesting.Seeds(8) {
		depth := 2 << (i % 3)
		t.Run(fmt.Sprintf("depth%d/%d", depth, i), func(t *testing.T) {
			b := newFifoBench(t, depth, 200, seed, i%2 == 0)
			s := sim.NewRandom(seed, b.w, b.r)
			if !b.d.RunUntil(s, 100000, func() bool { return len(b.rec.Items()) == len(b.items) }) {
				t.Fatalf("stalled after %d items", len(b.rec.Items()))
			}
			b.check(t)
		})
	}
}

func TestAsyncFIFORates(t *testing.T) {
	tests := map[string]struct {
		wPeriod, rPeriod uint64
	}{
		"fastWriter": {wPeriod: 3, rPeriod: 17},
		"fastReader": {wPeriod: 13, rPeriod: 2},
		"sameRate":   {wPeriod: 5, rPeriod: 5},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			b := newFifoBench(t, stream.DefaultDepth, 64, socsimtesting.Seed(0), false)
			s := sim.NewPeriodic(
				sim.Clock{Domain: b.w, Period: tc.wPeriod},
				sim.Clock{Domain: b.r, Period: tc.rPeriod, Phase: 1},
			)
			if !b.d.RunUntil(s, 100000, func() bool { return len(b.rec.Items()) == len(b.items) }) {
				t.Fatalf("stalled after %d items", len(b.rec.Items()))
			}
			b.check(t)
		})
	}
}

func TestRecorderSum8(t *testing.T) {
	payload := []byte("root\n")
	d := sim.NewDesign()
	sys := d.Domain("sys")
	ep := stream.NewEndpoint(d, "ep", 8)
	p := stream.PlayBytes(d, sys, "player", ep, payload, nil)
	rec := stream.NewRecorder(d, sys, "recorder", ep, rand.New(rand.NewSource(socsimtesting.Seed(0))))
	for !p.Done() {
		sys.Tick()
	}
	if string(rec.Bytes()) != string(payload) {
		t.Fatalf("expected %q, got %q", payload, rec.Bytes())
	}
	if rec.Sum8() != stream.Sum8(payload) {
		t.Fatalf("checksum mismatch: %#x != %#x", rec.Sum8(), stream.Sum8(payload))
	}
	if got := stream.Sum8([]byte("123456789")); got != 0xf4 {
		t.Fatalf("unexpected CRC-8 check value %#x", got)
	}
}

func TestConnect(t *testing.T) {
	d := sim.NewDesign()
	sys := d.Domain("sys")
	a := stream.NewEndpoint(d, "a", 8)
	b := stream.NewEndpoint(d, "b", 8)
	stream.Connect(d, "a_b", a, b)
	a.Valid.Set(1)
	a.Data.Set(0x42)
	b.Ready.Set(1)
	if !b.Valid.Bool() || b.Data.Get() != 0x42 || !a.Ready.Bool() {
		t.Fatal("handshake not forwarded")
	}
	if !a.Fire() || !b.Fire() {
		t.Fatal("expected transfer on both sides")
	}
	sys.Tick()
}
