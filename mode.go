package sx127x

import (
	"context"
	"fmt"
)

// OperationMode is the chip operating mode last written to RegOpMode.
type OperationMode uint8

const (
	UnknownMode OperationMode = iota
	SleepMode
	StandbyMode
	ReceiveMode
	TransmitMode
	CADMode
)

var modeNames = [...]string{"unknown", "sleep", "standby", "receive", "transmit", "cad"}

func (m OperationMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("OperationMode(%d)", uint8(m))
}

func (m OperationMode) opMode() byte {
	switch m {
	case StandbyMode:
		return OpModeStandby
	case ReceiveMode:
		return OpModeRxContinuous
	case TransmitMode:
		return OpModeTx
	case CADMode:
		return OpModeCad
	}
	return OpModeSleep
}

// pendingOp decides how the next interrupt is read: a transmit or CAD
// completion, or otherwise a received packet.
type pendingOp uint8

const (
	pendingNone pendingOp = iota
	pendingTransmit
	pendingCAD
)

// completion is closed once when the operation it tracks ends.
type completion struct {
	done chan struct{}
	err  error
	cad  CADResult
}

func newCompletion() *completion {
	return &completion{done: make(chan struct{})}
}

func (c *completion) finish(err error) {
	c.err = err
	close(c.done)
}

func (c *completion) wait(ctx context.Context) error {
	select {
	case <-c.done:
		return c.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Device) setMode(m OperationMode) error {
	if err := d.writeRegister(RegOpMode, OpModeLongRange|m.opMode()); err != nil {
		return err
	}
	if d.mode != m {
		d.log.Debug().Stringer("from", d.mode).Stringer("to", m).Msg("mode")
	}
	d.mode = m
	return nil
}

// abortWaiters ends outstanding transmit and CAD waits with err.
func (d *Device) abortWaiters(err error) {
	if d.txWait != nil {
		d.txWait.finish(err)
		d.txWait = nil
	}
	if d.cadWait != nil {
		d.cadWait.finish(err)
		d.cadWait = nil
	}
}

// Mode returns the operating mode last written to the chip.
func (d *Device) Mode() OperationMode {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode
}

// Sleep puts the chip in sleep mode. Pending transmit and CAD waits are aborted.
func (d *Device) Sleep() error {
	return d.locked(func() error {
		d.pending = pendingNone
		d.abortWaiters(ErrAborted)
		return d.setMode(SleepMode)
	})
}

// Idle puts the chip in standby mode. Pending transmit and CAD waits are aborted.
func (d *Device) Idle() error {
	return d.locked(func() error {
		d.pending = pendingNone
		d.abortWaiters(ErrAborted)
		return d.setMode(StandbyMode)
	})
}

// Receive enters continuous receive. Every packet that passes the CRC check
// is delivered to the registered handlers until another mode is selected.
func (d *Device) Receive() error {
	return d.locked(func() error {
		d.pending = pendingNone
		d.abortWaiters(ErrAborted)
		if d.implicitHeader {
			if err := d.writeRegister(RegPayloadLength, d.payloadLength); err != nil {
				return err
			}
		}
		if err := d.writeRegister(RegIrqFlags, IrqAll); err != nil {
			return err
		}
		if err := d.irq.Enable(d.handleInterrupt); err != nil {
			return err
		}
		if err := d.writeRegister(RegDioMapping1, Dio0RxDone); err != nil {
			return err
		}
		return d.setMode(ReceiveMode)
	})
}

// Transmit loads data into the FIFO and starts sending it. It returns as
// soon as the chip is transmitting; use WaitTransmit to await completion.
func (d *Device) Transmit(data []byte) error {
	return d.locked(func() error {
		_, err := d.transmit(data)
		return err
	})
}

// transmit starts sending data and returns the completion tracking it.
// Called with d.mu held.
func (d *Device) transmit(data []byte) (*completion, error) {
	if len(data) == 0 || len(data) > maxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadSize, len(data))
	}
	if d.implicitHeader && len(data) != int(d.payloadLength) {
		return nil, fmt.Errorf("%w: %d bytes, implicit header length is %d",
			ErrPayloadSize, len(data), d.payloadLength)
	}
	d.abortWaiters(ErrAborted)
	c := newCompletion()
	d.pending = pendingTransmit
	d.txWait, d.lastTx = c, c
	if err := d.setMode(StandbyMode); err != nil {
		return nil, d.failPending(err)
	}
	if err := d.writeRegister(RegFifoAddrPtr, 0); err != nil {
		return nil, d.failPending(err)
	}
	if !d.implicitHeader {
		if err := d.writeRegister(RegPayloadLength, byte(len(data))); err != nil {
			return nil, d.failPending(err)
		}
	}
	if err := d.writeRegister(RegFifo, data...); err != nil {
		return nil, d.failPending(err)
	}
	if err := d.writeRegister(RegDioMapping1, Dio0TxDone); err != nil {
		return nil, d.failPending(err)
	}
	if err := d.irq.Enable(d.handleInterrupt); err != nil {
		return nil, d.failPending(err)
	}
	if err := d.setMode(TransmitMode); err != nil {
		return nil, d.failPending(err)
	}
	d.log.Debug().Int("len", len(data)).Msg("transmit")
	return c, nil
}

// ChannelActivityDetection starts one CAD run. The result is delivered to
// CAD handlers and to DetectActivity.
func (d *Device) ChannelActivityDetection() error {
	return d.locked(d.startCAD)
}

func (d *Device) startCAD() error {
	d.abortWaiters(ErrAborted)
	d.pending = pendingCAD
	d.cadWait = newCompletion()
	if err := d.setMode(StandbyMode); err != nil {
		return d.failPending(err)
	}
	if err := d.writeRegister(RegDioMapping1, Dio0CadDone); err != nil {
		return d.failPending(err)
	}
	if err := d.irq.Enable(d.handleInterrupt); err != nil {
		return d.failPending(err)
	}
	return d.failPending(d.setMode(CADMode))
}

// failPending clears the pending operation if err is non-nil, so a late
// interrupt is not read as the completion of a request that never started.
func (d *Device) failPending(err error) error {
	if err != nil {
		d.pending = pendingNone
		d.abortWaiters(err)
	}
	return err
}

// WaitTransmit blocks until the most recent transmission started by
// Transmit ends or ctx is done. It returns nil once TxDone was seen,
// ErrAborted if the transmission was superseded by another mode change, and
// nil immediately if nothing was ever sent.
func (d *Device) WaitTransmit(ctx context.Context) error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return ErrNotOpen
	}
	c := d.lastTx
	d.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.wait(ctx)
}

// Send transmits data and waits for the chip to report TxDone.
func (d *Device) Send(ctx context.Context, data []byte) error {
	var c *completion
	err := d.locked(func() error {
		var err error
		c, err = d.transmit(data)
		return err
	})
	if err != nil {
		return err
	}
	return c.wait(ctx)
}

// DetectActivity runs channel activity detection and reports whether a LoRa
// preamble was seen.
func (d *Device) DetectActivity(ctx context.Context) (bool, error) {
	var c *completion
	err := d.locked(func() error {
		if err := d.startCAD(); err != nil {
			return err
		}
		c = d.cadWait
		return nil
	})
	if err != nil {
		return false, err
	}
	if err := c.wait(ctx); err != nil {
		return false, err
	}
	return c.cad.Detected, nil
}
