package sx127x

import (
	"errors"
	"sync"
	"testing"
	"time"
)

var errBusClosed = errors.New("bus closed")

// fakeChip simulates the SX127x register file behind the Bus interface:
// address auto-increment, the FIFO pointer and write-one-to-clear IRQ flags.
type fakeChip struct {
	mu     sync.Mutex
	regs   [0x80]byte
	fifo   [256]byte
	frames [][]byte
	closed bool
}

func newFakeChip(version byte) *fakeChip {
	c := &fakeChip{}
	c.regs[RegVersion] = version
	return c
}

func (c *fakeChip) Tx(w, r []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errBusClosed
	}
	frame := make([]byte, len(w))
	copy(frame, w)
	c.frames = append(c.frames, frame)

	addr := w[0] &^ spiWriteMask
	write := w[0]&spiWriteMask != 0
	for i := 1; i < len(w); i++ {
		if write {
			c.store(addr, w[i])
		} else {
			r[i] = c.load(addr)
		}
		if addr != RegFifo {
			addr++
		}
	}
	return nil
}

func (c *fakeChip) store(addr, v byte) {
	switch addr {
	case RegFifo:
		c.fifo[c.regs[RegFifoAddrPtr]] = v
		c.regs[RegFifoAddrPtr]++
	case RegIrqFlags:
		c.regs[addr] &^= v
	default:
		c.regs[addr] = v
	}
}

func (c *fakeChip) load(addr byte) byte {
	if addr == RegFifo {
		v := c.fifo[c.regs[RegFifoAddrPtr]]
		c.regs[RegFifoAddrPtr]++
		return v
	}
	return c.regs[addr]
}

func (c *fakeChip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeChip) reg(addr byte) byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.regs[addr]
}

func (c *fakeChip) set(addr, v byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.regs[addr] = v
}

func (c *fakeChip) loadFifo(at byte, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	copy(c.fifo[at:], data)
}

func (c *fakeChip) resetFrames() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames = nil
}

func (c *fakeChip) writes(addr byte) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out [][]byte
	for _, f := range c.frames {
		if f[0] == addr|spiWriteMask {
			out = append(out, f[1:])
		}
	}
	return out
}

func (c *fakeChip) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeReset struct {
	mu     sync.Mutex
	levels []bool
	closed bool
}

func (p *fakeReset) Write(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.levels = append(p.levels, high)
	return nil
}

func (p *fakeReset) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type fakeIRQ struct {
	mu      sync.Mutex
	fn      func(bool)
	armed   bool
	enables int
	closed  bool
}

func (p *fakeIRQ) Enable(fn func(level bool)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn, p.armed = fn, true
	p.enables++
	return nil
}

func (p *fakeIRQ) Disable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = false
	return nil
}

func (p *fakeIRQ) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakeIRQ) isArmed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.armed
}

// fire delivers an edge the way a backend does: only while armed, outside the lock.
func (p *fakeIRQ) fire(level bool) {
	p.mu.Lock()
	fn, armed := p.fn, p.armed
	p.mu.Unlock()
	if armed && fn != nil {
		fn(level)
	}
}

type rig struct {
	dev    *Device
	chip   *fakeChip
	reset  *fakeReset
	irq    *fakeIRQ
	delays []time.Duration
}

func newRig(t *testing.T, opts *Options) *rig {
	t.Helper()
	r := &rig{chip: newFakeChip(chipVersion), reset: &fakeReset{}, irq: &fakeIRQ{}}
	var o Options
	if opts != nil {
		o = *opts
	}
	o.Sleep = func(d time.Duration) { r.delays = append(r.delays, d) }
	dev, err := New(r.chip, r.reset, r.irq, &o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.dev = dev
	t.Cleanup(func() { dev.Close() })
	return r
}
