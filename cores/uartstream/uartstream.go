// Package uartstream implements a byte stream device with a UART style
// register interface. Software writes bytes through the rxtx register into a
// FIFO drained by the stream side, and reads bytes the stream side delivered
// through a second FIFO.
package uartstream

import (
	"github.com/clktmr/socsim/csr"
	"github.com/clktmr/socsim/event"
	"github.com/clktmr/socsim/sim"
	"github.com/clktmr/socsim/stream"
)

// UARTStream bridges the sys domain register interface and a pair of stream
// endpoints in the pix domain.
//
// Writing rxtx enqueues a byte towards Source. Reading rxtx returns the oldest
// byte received on Sink without removing it; it is removed by clearing the rx
// event. The tx event fires when the transmit FIFO stops being full, the rx
// event when the receive FIFO stops being empty.
type UARTStream struct {
	RxTx       *csr.CSR
	TxFull     *csr.Status
	RxEmpty    *csr.Status
	TuningWord *csr.Storage
	Configured *csr.CSR

	Ev *event.Manager
	Tx *event.Source
	Rx *event.Source

	Sink   *stream.Endpoint // pix
	Source *stream.Endpoint // pix

	TxFIFO *stream.AsyncFIFO
	RxFIFO *stream.AsyncFIFO

	Map *csr.Map
}

// New creates and binds a UARTStream called name. Its FIFOs hold depth bytes.
func New(d *sim.Design, sys, pix *sim.Domain, name string, depth int) (*UARTStream, error) {
	c := csr.NewCollector(d, sys, name)
	u := &UARTStream{
		RxTx:    c.CSR("rxtx", 8),
		TxFull:  c.Status("txfull", 1),
		RxEmpty: c.Status("rxempty", 1),
		Ev:      event.NewManager(c, "ev"),
	}
	var err error
	if u.Tx, err = u.Ev.Add("tx", event.Falling); err != nil {
		return nil, err
	}
	if u.Rx, err = u.Ev.Add("rx", event.Falling); err != nil {
		return nil, err
	}
	if err = u.Ev.Finalize(); err != nil {
		return nil, err
	}
	u.TuningWord = c.Storage("tuning_word", 32)
	u.Configured = c.CSR("configured", 1)

	u.TxFIFO, err = stream.NewAsyncFIFO(d, name+"_tx_fifo", sys, pix, 8, depth)
	if err != nil {
		return nil, err
	}
	u.RxFIFO, err = stream.NewAsyncFIFO(d, name+"_rx_fifo", pix, sys, 8, depth)
	if err != nil {
		return nil, err
	}
	u.Source = u.TxFIFO.Source
	u.Sink = u.RxFIFO.Sink

	d.Comb(name, u.comb)

	if u.Map, err = csr.Bind(c); err != nil {
		return nil, err
	}
	return u, nil
}

func (u *UARTStream) comb() {
	tx := u.TxFIFO.Sink
	tx.Valid.Set(u.RxTx.RE.Get())
	tx.Data.Set(u.RxTx.R.Get())
	u.TxFull.Status.SetBool(!tx.Ready.Bool())
	u.Tx.Trigger.SetBool(!tx.Ready.Bool())

	rx := u.RxFIFO.Source
	u.RxEmpty.Status.SetBool(!rx.Valid.Bool())
	u.RxTx.W.Set(rx.Data.Get())
	rx.Ready.Set(u.Rx.Clear.Get())
	u.Rx.Trigger.SetBool(!rx.Valid.Bool())
}
