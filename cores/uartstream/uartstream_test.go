package uartstream_test

import (
	"math/rand"
	"testing"

	"github.com/clktmr/socsim/cores/uartstream"
	"github.com/clktmr/socsim/csr"
	"github.com/clktmr/socsim/sim"
	"github.com/clktmr/socsim/stream"
	socsimtesting "github.com/clktmr/socsim/testing"
)

func TestMain(m *testing.M) { socsimtesting.TestMain(m) }

type bench struct {
	d        *sim.Design
	sys, pix *sim.Domain
	u        *uartstream.UARTStream
	bank     *csr.Bank
	sched    sim.Scheduler
}

func newBench(t *testing.T) *bench {
	t.Helper()
	d := sim.NewDesign()
	sys, pix := d.Domain("sys"), d.Domain("pix")
	u, err := uartstream.New(d, sys, pix, "uart", stream.DefaultDepth)
	if err != nil {
		t.Fatal(err)
	}
	return &bench{d: d, sys: sys, pix: pix, u: u, bank: csr.NewBank(d, sys, u.Map)}
}

func (b *bench) start(seed int64) {
	b.sched = sim.NewRandom(seed, b.sys, b.pix)
}

func (b *bench) step() {
	b.d.Run(b.sched, 1)
}

func (b *bench) settle(t *testing.T) {
	t.Helper()
	for i := 0; !b.bank.Idle(); i++ {
		if i == 10000 {
			t.Fatal("bank stuck")
		}
		b.step()
	}
}

func (b *bench) peek(t *testing.T, name string) uint64 {
	t.Helper()
	v, err := b.bank.Peek(name)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestRegisters(t *testing.T) {
	b := newBench(t)
	expected := []string{
		"uart_rxtx", "uart_txfull", "uart_rxempty",
		"uart_ev_status", "uart_ev_pending", "uart_ev_enable",
		"uart_tuning_word", "uart_configured",
	}
	regions := b.bank.Regions()
	if len(regions) != len(expected) {
		t.Fatalf("expected %d registers, got %d", len(expected), len(regions))
	}
	for i, r := range regions {
		if r.Name != expected[i] {
			t.Fatalf("register %d: expected %s, got %s", i, expected[i], r.Name)
		}
	}
	cm := b.u.TuningWord.Commit
	if cm == nil || cm.Data == nil || cm.Applied.Name() != "uart_tuning_word_re0" {
		t.Fatal("tuning_word not bound")
	}
	if b.peek(t, "uart_rxempty") != 1 || b.peek(t, "uart_txfull") != 0 {
		t.Fatal("unexpected reset status")
	}

	b.start(socsimtesting.Seed(0))
	if err := b.bank.Write("uart_tuning_word", 0x12345678); err != nil {
		t.Fatal(err)
	}
	b.settle(t)
	if got := b.peek(t, "uart_tuning_word"); got != 0x12345678 {
		t.Fatalf("tuning_word %#x", got)
	}
}

func TestTx(t *testing.T) {
	for i, seed := range socsimtesting.Seeds(4) {
		b := newBench(t)
		rec := stream.NewRecorder(b.d, b.pix, "rec", b.u.Source, rand.New(rand.NewSource(seed)))
		b.start(seed)

		payload := []byte("hello, world\n")
		for _, c := range payload {
			for b.peek(t, "uart_txfull") != 0 {
				b.step()
			}
			if err := b.bank.Write("uart_rxtx", uint64(c)); err != nil {
				t.Fatal(err)
			}
			b.settle(t)
		}
		for range 1000 {
			b.step()
		}
		if got := string(rec.Bytes()); got != string(payload) {
			t.Fatalf("seed %d: expected %q, got %q", i, payload, got)
		}
	}
}

func TestRx(t *testing.T) {
	for i, seed := range socsimtesting.Seeds(4) {
		b := newBench(t)
		payload := []byte("root\nroot\n")
		p := stream.PlayBytes(b.d, b.pix, "player", b.u.Sink, payload, rand.New(rand.NewSource(seed)))
		b.start(seed)

		var got []byte
		for n := 0; len(got) < len(payload); n++ {
			if n == 100000 {
				t.Fatalf("seed %d: received only %q", i, got)
			}
			if b.peek(t, "uart_rxempty") != 0 {
				b.step()
				continue
			}
			// reading rxtx does not dequeue
			for range 2 {
				if err := b.bank.Read("uart_rxtx", func(v uint64) { got = append(got, byte(v)) }); err != nil {
					t.Fatal(err)
				}
				b.settle(t)
			}
			if got[len(got)-1] != got[len(got)-2] {
				t.Fatal("read changed the head")
			}
			got = got[:len(got)-1]

			if err := b.bank.Write("uart_ev_pending", 1<<b.u.Rx.Index()); err != nil {
				t.Fatal(err)
			}
			b.settle(t)
		}
		if string(got) != string(payload) || !p.Done() {
			t.Fatalf("seed %d: expected %q, got %q", i, payload, got)
		}
	}
}

func TestRxEvent(t *testing.T) {
	b := newBench(t)
	stream.PlayBytes(b.d, b.pix, "player", b.u.Sink, []byte{0x42}, nil)
	b.start(socsimtesting.Seed(0))
	if err := b.bank.Write("uart_ev_enable", 1<<b.u.Rx.Index()); err != nil {
		t.Fatal(err)
	}
	for i := 0; !b.u.Ev.Irq.Bool(); i++ {
		if i == 1000 {
			t.Fatal("no rx interrupt")
		}
		b.step()
	}
	if b.peek(t, "uart_rxempty") != 0 || b.peek(t, "uart_rxtx") != 0x42 {
		t.Fatal("interrupt before data")
	}
	if b.u.Tx.Pending.Bool() {
		t.Fatal("unexpected tx event")
	}
	if err := b.bank.Write("uart_ev_pending", 1<<b.u.Rx.Index()); err != nil {
		t.Fatal(err)
	}
	b.settle(t)
	for range 10 {
		b.step()
	}
	if b.u.Ev.Irq.Bool() || b.peek(t, "uart_rxempty") != 1 {
		t.Fatal("clearing rx must acknowledge and dequeue")
	}
}
