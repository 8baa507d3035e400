package sx127x

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"
)

// edgePoll bounds each WaitForEdge so Close is noticed.
const edgePoll = time.Second

func openPins(o *Options) (OutputPin, InterruptPin, error) {
	switch o.GPIO {
	case "periph":
		return openPeriphPins(o)
	case "gpiod":
		return openGpiodPins(o)
	case "sysfs":
		return openSysfsPins(o)
	}
	return nil, nil, fmt.Errorf("%w: gpio %q", ErrBackend, o.GPIO)
}

func openPeriphPins(o *Options) (OutputPin, InterruptPin, error) {
	if _, err := host.Init(); err != nil {
		return nil, nil, err
	}
	reset := gpioreg.ByName(strconv.Itoa(o.ResetPin))
	if reset == nil {
		return nil, nil, fmt.Errorf("sx127x: no gpio %d for reset", o.ResetPin)
	}
	dio0 := gpioreg.ByName(strconv.Itoa(o.InterruptPin))
	if dio0 == nil {
		return nil, nil, fmt.Errorf("sx127x: no gpio %d for dio0", o.InterruptPin)
	}
	return &periphOutput{pin: reset}, newPeriphInterrupt(dio0), nil
}

type periphOutput struct {
	pin gpio.PinOut
}

func (p *periphOutput) Write(high bool) error {
	return p.pin.Out(gpio.Level(high))
}

func (p *periphOutput) Close() error {
	return p.pin.Halt()
}

// periphInterrupt loops on WaitForEdge in one goroutine from the first Enable
// until Close, dropping edges while disarmed.
type periphInterrupt struct {
	pin gpio.PinIn

	mu    sync.Mutex
	fn    func(bool)
	armed bool
	stop  chan struct{}
}

func newPeriphInterrupt(pin gpio.PinIn) *periphInterrupt {
	return &periphInterrupt{pin: pin}
}

func (p *periphInterrupt) Enable(fn func(level bool)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fn = fn
	p.armed = true
	if p.stop != nil {
		return nil
	}
	if err := p.pin.In(gpio.PullDown, gpio.RisingEdge); err != nil {
		return err
	}
	p.stop = make(chan struct{})
	go p.watch(p.stop)
	return nil
}

func (p *periphInterrupt) watch(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !p.pin.WaitForEdge(edgePoll) {
			continue
		}
		p.mu.Lock()
		fn, armed := p.fn, p.armed
		p.mu.Unlock()
		if armed && fn != nil {
			fn(p.pin.Read() == gpio.High)
		}
	}
}

func (p *periphInterrupt) Disable() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.armed = false
	return nil
}

func (p *periphInterrupt) Close() error {
	p.mu.Lock()
	p.armed = false
	if p.stop != nil {
		close(p.stop)
		p.stop = nil
	}
	p.mu.Unlock()
	return p.pin.Halt()
}
