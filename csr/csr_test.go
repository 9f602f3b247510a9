package csr_test

import (
	"testing"

	"github.com/pkg/errors"

	"github.com/clktmr/socsim/csr"
	"github.com/clktmr/socsim/sim"
)

type owner struct {
	d    *sim.Design
	sys  *sim.Domain
	c    *csr.Collector
	cfg  *csr.Storage
	ctrl *csr.CSR
	stat *csr.Status
}

func newOwner() *owner {
	d := sim.NewDesign()
	sys := d.Domain("sys")
	c := csr.NewCollector(d, sys, "dev")
	return &owner{
		d:   d,
		sys: sys,
		c:   c,
		cfg: c.Storage("cfg", 16,
			csr.Field{Name: "a", Offset: 0, Size: 4},
			csr.Field{Name: "b", Offset: 4, Size: 4, Reset: 0xf},
			csr.Field{Name: "c", Offset: 8, Size: 8},
		),
		ctrl: c.CSR("ctrl", 8),
		stat: c.Status("stat", 8),
	}
}

func TestFieldCommit(t *testing.T) {
	o := newOwner()
	if _, err := csr.Bind(o.c); err != nil {
		t.Fatal(err)
	}
	cm := o.cfg.Commit
	if got := cm.Latch("b").Name(); got != "dev_cfg_b0" {
		t.Fatalf("unexpected latch name %q", got)
	}

	var stage map[string]uint64
	o.d.Comb("owner", func() {
		for name, v := range stage {
			cm.Latch(name).Set(v)
		}
		cm.Now.SetBool(stage != nil)
	})

	if got := o.cfg.Storage.Get(); got != 0x00f0 {
		t.Fatalf("expected reset 0x00f0, got %#x", got)
	}
	steps := []struct {
		stage    map[string]uint64
		expected uint64
	}{
		{map[string]uint64{"a": 0x3}, 0x00f3},
		{map[string]uint64{"c": 0xab}, 0xabf3},
		{map[string]uint64{"b": 0x1}, 0xab13},
		{nil, 0xab13},
		{map[string]uint64{"a": 0x0, "c": 0x1}, 0x0110},
	}
	for i, s := range steps {
		stage = s.stage
		o.sys.Tick()
		if got := o.cfg.Storage.Get(); got != s.expected {
			t.Fatalf("step %d: expected %#x, got %#x", i, s.expected, got)
		}
		if got := o.cfg.Field("b"); got != (s.expected>>4)&0xf {
			t.Fatalf("step %d: field b is %#x", i, got)
		}
	}
}

func TestAppliedLagsNow(t *testing.T) {
	d := sim.NewDesign()
	sys := d.Domain("sys")
	c := csr.NewCollector(d, sys, "dev")
	word := c.Storage("word", 32)
	if _, err := csr.Bind(c); err != nil {
		t.Fatal(err)
	}
	cm := word.Commit
	if cm.Data == nil || cm.Latches != nil {
		t.Fatal("expected a single staging value")
	}
	if got := cm.Applied.Name(); got != "dev_word_re0" {
		t.Fatalf("unexpected applied name %q", got)
	}

	pattern := []bool{true, true, false, true, false, false, true, true, true, false}
	var now bool
	var data uint64
	d.Comb("owner", func() {
		cm.Now.SetBool(now)
		cm.Data.Set(data)
	})

	prev := false
	for i, p := range pattern {
		now, data = p, uint64(i)
		if got := cm.Applied.Bool(); got != prev {
			t.Fatalf("step %d: applied %v, expected %v", i, got, prev)
		}
		sys.Tick()
		if p && word.Storage.Get() != uint64(i) {
			t.Fatalf("step %d: storage not updated on commit", i)
		}
		prev = p
	}
}

func TestBindErrors(t *testing.T) {
	tests := map[string]struct {
		build func(c *csr.Collector)
		err   error
	}{
		"overlap": {func(c *csr.Collector) {
			c.Storage("r", 8, csr.Field{Name: "x", Size: 4}, csr.Field{Name: "y", Offset: 2, Size: 4})
		}, csr.ErrOverlap},
		"outOfRange": {func(c *csr.Collector) {
			c.Storage("r", 8, csr.Field{Name: "x", Offset: 6, Size: 4})
		}, csr.ErrRange},
		"zeroSize": {func(c *csr.Collector) {
			c.Status("r", 8, csr.Field{Name: "x", Offset: 1})
		}, csr.ErrRange},
		"badWidth": {func(c *csr.Collector) {
			c.CSR("r", 65)
		}, csr.ErrRange},
		"duplicateField": {func(c *csr.Collector) {
			c.Storage("r", 8, csr.Field{Name: "x", Size: 1}, csr.Field{Name: "x", Offset: 1, Size: 1})
		}, csr.ErrDuplicate},
		"duplicateRegister": {func(c *csr.Collector) {
			c.CSR("r", 8)
			c.Storage("r", 8)
		}, csr.ErrDuplicate},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			d := sim.NewDesign()
			c := csr.NewCollector(d, d.Domain("sys"), "dev")
			tc.build(c)
			m, err := csr.Bind(c)
			if !errors.Is(err, tc.err) {
				t.Fatalf("expected %v, got %v", tc.err, err)
			}
			if m != nil {
				t.Fatal("expected no map on error")
			}
		})
	}
}

func TestBindOnce(t *testing.T) {
	o := newOwner()
	m, err := csr.Bind(o.c)
	if err != nil {
		t.Fatal(err)
	}
	if !o.c.Consumed() {
		t.Fatal("collector not consumed")
	}
	if _, err := csr.Bind(o.c); !errors.Is(err, csr.ErrConsumed) {
		t.Fatalf("expected ErrConsumed, got %v", err)
	}
	if err := o.cfg.Finalize(); !errors.Is(err, csr.ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
	if err := o.stat.Finalize(); !errors.Is(err, csr.ErrFinalized) {
		t.Fatalf("expected ErrFinalized, got %v", err)
	}
	if o.ctrl.Finalized() {
		t.Fatal("raw register must be left untouched")
	}

	func() {
		defer func() {
			err, _ := recover().(error)
			if !errors.Is(err, csr.ErrConsumed) {
				t.Fatalf("expected ErrConsumed panic, got %v", err)
			}
		}()
		o.c.CSR("late", 1)
	}()

	for _, name := range []string{"cfg", "dev_cfg"} {
		if r, ok := m.Lookup(name); !ok || r != csr.Register(o.cfg) {
			t.Fatalf("lookup %s failed", name)
		}
	}
	if _, ok := m.Lookup("late"); ok {
		t.Fatal("unexpected register after consumption")
	}
}

func TestBindSealed(t *testing.T) {
	o := newOwner()
	o.sys.Tick()
	if _, err := csr.Bind(o.c); !errors.Is(err, csr.ErrSealed) {
		t.Fatalf("expected ErrSealed, got %v", err)
	}
}

func TestBank(t *testing.T) {
	o := newOwner()
	m, err := csr.Bind(o.c)
	if err != nil {
		t.Fatal(err)
	}
	b := csr.NewBank(o.d, o.sys, m)

	var written []uint64
	o.sys.Sync("ctrl", func() {
		if o.ctrl.RE.Bool() {
			written = append(written, o.ctrl.R.Get())
		}
	})
	var reads int
	o.d.Comb("owner", func() {
		o.ctrl.W.Set(0x5a)
		o.stat.Status.Set(0x42)
		if o.ctrl.WE.Bool() {
			o.stat.Status.Set(0x43)
		}
	})
	o.sys.Sync("reads", func() {
		if o.ctrl.WE.Bool() {
			reads++
		}
	})

	regions := b.Regions()
	expected := []string{"dev_cfg", "dev_ctrl", "dev_stat"}
	if len(regions) != len(expected) {
		t.Fatalf("expected %d regions, got %d", len(expected), len(regions))
	}
	for i, r := range regions {
		if r.Name != expected[i] || r.Offset != uint32(i)*csr.Stride {
			t.Fatalf("unexpected region %+v", r)
		}
	}

	if err := b.Write("dev_stat", 1); !errors.Is(err, csr.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
	if err := b.Write("dev_nope", 1); !errors.Is(err, csr.ErrNoReg) {
		t.Fatalf("expected ErrNoReg, got %v", err)
	}

	var got []uint64
	read := func(v uint64) { got = append(got, v) }
	for _, err := range []error{
		b.Write("dev_ctrl", 0x11),
		b.Write("dev_cfg", 0x1234),
		b.Write("dev_ctrl", 0x22),
		b.Read("dev_ctrl", read),
		b.Read("dev_cfg", read),
	} {
		if err != nil {
			t.Fatal(err)
		}
	}

	// write ctrl
	o.sys.Tick()
	// write cfg: storage and applied follow in the next step
	if o.cfg.Commit.Applied.Bool() {
		t.Fatal("applied before the write")
	}
	o.sys.Tick()
	if got := o.cfg.Storage.Get(); got != 0x1234 {
		t.Fatalf("expected storage 0x1234, got %#x", got)
	}
	if !o.cfg.Commit.Applied.Bool() {
		t.Fatal("expected applied pulse after bus write")
	}
	o.sys.Tick()
	if o.cfg.Commit.Applied.Bool() {
		t.Fatal("applied must pulse for one step only")
	}
	for !b.Idle() {
		o.sys.Tick()
	}
	o.sys.Tick()

	if len(written) != 2 || written[0] != 0x11 || written[1] != 0x22 {
		t.Fatalf("unexpected raw writes %#x", written)
	}
	if reads != 1 {
		t.Fatalf("expected one read strobe, got %d", reads)
	}
	if len(got) != 2 || got[0] != 0x5a || got[1] != 0x1234 {
		t.Fatalf("unexpected reads %#x", got)
	}
	if v, err := b.Peek("dev_stat"); err != nil || v != 0x42 {
		t.Fatalf("peek: %#x, %v", v, err)
	}
}
