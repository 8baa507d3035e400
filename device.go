// Package sx127x drives a Semtech SX1276/77/78/79 radio in LoRa mode over SPI.
//
// The chip's DIO0 line must be wired to an interrupt capable GPIO and its
// reset line to a GPIO output. A Device owns the bus and both pins from Open
// until Close. Received packets are delivered to callbacks registered with
// Handle; transmit completion and channel activity results arrive through the
// same interrupt and can be awaited with WaitTransmit and DetectActivity.
//
// All register access is serialized on one mutex, so the methods of a Device
// may be called from any goroutine, including from inside a Handle callback.
package sx127x

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
)

// Bus is a full duplex SPI exchange: r receives len(w) bytes clocked in while
// w is clocked out.
type Bus interface {
	Tx(w, r []byte) error
	Close() error
}

// OutputPin drives the chip's reset line.
type OutputPin interface {
	Write(high bool) error
	Close() error
}

// InterruptPin delivers rising edges on DIO0.
type InterruptPin interface {
	// Enable arms delivery of rising edges to fn, which is passed the level
	// observed after the edge. Enabling an armed pin replaces fn.
	Enable(fn func(level bool)) error
	// Disable stops delivery. It must be safe to call from inside fn.
	Disable() error
	Close() error
}

// Device is an open SX127x.
type Device struct {
	mu    sync.Mutex
	bus   Bus
	reset OutputPin
	irq   InterruptPin
	sleep func(time.Duration)
	log   *zerolog.Logger
	open  bool

	frequency       physic.Frequency
	spreadingFactor uint8
	bandwidth       physic.Frequency
	codingRate      CodingRate
	preambleLength  uint16
	syncWord        byte
	txPower         uint8
	crc             bool
	implicitHeader  bool
	payloadLength   byte

	mode    OperationMode
	pending pendingOp
	txWait  *completion
	lastTx  *completion // most recent transmission, kept after it ends
	cadWait *completion
	closed  chan struct{}
	stats   Stats

	hmu         sync.RWMutex
	handlers    []Handle
	cadHandlers []CADHandle
}

// Stats are diagnostic counters kept since Open.
type Stats struct {
	Interrupts    uint64
	Packets       uint64 // delivered to handlers
	CRCErrors     uint64 // received but dropped
	Transmissions uint64 // completed
	CADRuns       uint64
	CADDetections uint64
}

// Open acquires the SPI bus and GPIO lines described by opts and initializes
// the chip. A nil opts uses every default.
func Open(opts *Options) (*Device, error) {
	o := opts.withDefaults()
	bus, err := openBus(o)
	if err != nil {
		return nil, err
	}
	reset, irq, err := openPins(o)
	if err != nil {
		bus.Close()
		return nil, err
	}
	return New(bus, reset, irq, o)
}

// New initializes the chip behind bus and takes ownership of bus and both
// pins. They are closed if initialization fails.
func New(bus Bus, reset OutputPin, irq InterruptPin, opts *Options) (*Device, error) {
	o := opts.withDefaults()
	d := &Device{
		bus:    bus,
		reset:  reset,
		irq:    irq,
		sleep:  o.Sleep,
		log:    o.Logger,
		closed: make(chan struct{}),
	}
	d.mu.Lock()
	err := d.init(o)
	if err == nil {
		d.open = true
	}
	d.mu.Unlock()
	if err != nil {
		if cerr := d.release(); cerr != nil {
			d.log.Warn().Err(cerr).Msg("release after failed init")
		}
		return nil, err
	}
	d.log.Info().
		Str("frequency", d.frequency.String()).
		Uint8("sf", d.spreadingFactor).
		Str("bandwidth", d.bandwidth.String()).
		Msg("sx127x open")
	return d, nil
}

func (d *Device) init(o *Options) error {
	if err := d.pulseReset(); err != nil {
		return err
	}
	version, err := d.readRegister(RegVersion)
	if err != nil {
		return err
	}
	if version != chipVersion {
		return fmt.Errorf("%w: got %#02x, expected %#02x", ErrVersion, version, chipVersion)
	}
	steps := []func() error{
		func() error { return d.setMode(SleepMode) },
		func() error { return d.setFrequency(o.Frequency) },
		func() error { return d.setSpreadingFactor(o.SpreadingFactor) },
		func() error { return d.setSignalBandwidth(o.SignalBandwidth) },
		func() error { return d.setCodingRate(o.CodingRate) },
		func() error { return d.setPreambleLength(o.PreambleLength) },
		func() error { return d.setSyncWord(o.SyncWord) },
		func() error { return d.setCRC(o.CRC) },
		func() error { return d.setImplicitHeader(o.ImplicitHeader, o.PayloadLength) },
		func() error { return d.writeRegister(RegFifoTxBaseAddr, 0) },
		func() error { return d.writeRegister(RegFifoRxBaseAddr, 0) },
		func() error { return d.setLnaBoost(true) },
		func() error { return d.writeRegister(RegModemConfig3, agcAutoOn) },
		func() error { return d.setTxPower(o.TxPower) },
		func() error { return d.setMode(StandbyMode) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return d.irq.Enable(d.handleInterrupt)
}

// pulseReset holds reset low for 100µs then waits 5ms for the chip to boot.
func (d *Device) pulseReset() error {
	if err := d.reset.Write(false); err != nil {
		return err
	}
	d.sleep(100 * time.Microsecond)
	if err := d.reset.Write(true); err != nil {
		return err
	}
	d.sleep(5 * time.Millisecond)
	return nil
}

// Close disables the interrupt and releases the bus and both pins. Pending
// waiters return ErrNotOpen.
func (d *Device) Close() error {
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return ErrNotOpen
	}
	d.open = false
	d.pending = pendingNone
	d.abortWaiters(ErrNotOpen)
	close(d.closed)
	d.mu.Unlock()

	err := d.release()
	d.log.Info().Err(err).Msg("sx127x closed")
	return err
}

func (d *Device) release() error {
	return errors.Join(
		d.irq.Disable(),
		d.irq.Close(),
		d.reset.Close(),
		d.bus.Close(),
	)
}

// locked runs fn holding the device mutex, failing if the device is closed.
func (d *Device) locked(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.open {
		return ErrNotOpen
	}
	return fn()
}

// Stats returns a snapshot of the diagnostic counters.
func (d *Device) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Version reads the silicon revision register.
func (d *Device) Version() (byte, error) {
	var v byte
	err := d.locked(func() (err error) {
		v, err = d.readRegister(RegVersion)
		return err
	})
	return v, err
}

// ReadRandom returns the wideband RSSI register, a weak source of entropy
// while the receiver is running.
func (d *Device) ReadRandom() (byte, error) {
	var v byte
	err := d.locked(func() (err error) {
		v, err = d.readRegister(RegRssiWideband)
		return err
	})
	return v, err
}

// The register access helpers below issue exactly one bus transaction each
// and must be called with d.mu held.

func (d *Device) readRegister(addr byte) (byte, error) {
	var r [2]byte
	if err := d.bus.Tx([]byte{addr &^ spiWriteMask, 0}, r[:]); err != nil {
		return 0, err
	}
	return r[1], nil
}

func (d *Device) readRegisterBytes(addr byte, n int) ([]byte, error) {
	w := make([]byte, n+1)
	r := make([]byte, n+1)
	w[0] = addr &^ spiWriteMask
	if err := d.bus.Tx(w, r); err != nil {
		return nil, err
	}
	return r[1:], nil
}

// writeRegister writes data starting at addr. The chip auto-increments the
// address except on RegFifo, where every byte lands at the FIFO pointer.
func (d *Device) writeRegister(addr byte, data ...byte) error {
	w := make([]byte, len(data)+1)
	w[0] = addr | spiWriteMask
	copy(w[1:], data)
	d.log.Trace().Uint8("reg", addr).Hex("data", data).Msg("write")
	return d.bus.Tx(w, make([]byte, len(w)))
}

// modifyRegister rewrites addr as (old & keep) | set.
func (d *Device) modifyRegister(addr, keep, set byte) error {
	v, err := d.readRegister(addr)
	if err != nil {
		return err
	}
	return d.writeRegister(addr, v&keep|set)
}
