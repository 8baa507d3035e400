//go:build linux

package sx127x

import (
	"errors"
	"sync"

	sysfs "github.com/davecheney/gpio"
	"github.com/warthog618/gpiod"
)

func openGpiodPins(o *Options) (OutputPin, InterruptPin, error) {
	reset, err := gpiod.RequestLine(o.GPIOChip, o.ResetPin, gpiod.AsOutput(1))
	if err != nil {
		return nil, nil, err
	}
	irq := &gpiodInterrupt{}
	line, err := gpiod.RequestLine(o.GPIOChip, o.InterruptPin,
		gpiod.WithPullDown,
		gpiod.WithRisingEdge,
		gpiod.WithEventHandler(irq.onEvent))
	if err != nil {
		reset.Close()
		return nil, nil, err
	}
	irq.line = line
	return &gpiodOutput{line: reset}, irq, nil
}

type gpiodOutput struct {
	line *gpiod.Line
}

func (g *gpiodOutput) Write(high bool) error {
	if high {
		return g.line.SetValue(1)
	}
	return g.line.SetValue(0)
}

func (g *gpiodOutput) Close() error {
	return g.line.Close()
}

// gpiodInterrupt receives edges from the kernel for the lifetime of the line
// request and gates them on armed.
type gpiodInterrupt struct {
	line *gpiod.Line

	mu    sync.Mutex
	fn    func(bool)
	armed bool
}

func (g *gpiodInterrupt) onEvent(evt gpiod.LineEvent) {
	g.mu.Lock()
	fn, armed := g.fn, g.armed
	g.mu.Unlock()
	if armed && fn != nil {
		fn(evt.Type == gpiod.LineEventRisingEdge)
	}
}

func (g *gpiodInterrupt) Enable(fn func(level bool)) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fn, g.armed = fn, true
	return nil
}

func (g *gpiodInterrupt) Disable() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = false
	return nil
}

func (g *gpiodInterrupt) Close() error {
	g.Disable()
	return g.line.Close()
}

func openSysfsPins(o *Options) (OutputPin, InterruptPin, error) {
	reset, err := sysfs.OpenPin(o.ResetPin, sysfs.ModeOutput)
	if err != nil {
		return nil, nil, err
	}
	dio0, err := sysfs.OpenPin(o.InterruptPin, sysfs.ModeInput)
	if err != nil {
		reset.Close()
		return nil, nil, err
	}
	return &sysfsOutput{pin: reset}, &sysfsInterrupt{pin: dio0}, nil
}

type sysfsOutput struct {
	pin sysfs.Pin
}

func (s *sysfsOutput) Write(high bool) error {
	if high {
		s.pin.Set()
	} else {
		s.pin.Clear()
	}
	return s.pin.Err()
}

func (s *sysfsOutput) Close() error {
	return s.pin.Close()
}

// sysfsInterrupt starts the sysfs watcher on first Enable and keeps it until Close.
type sysfsInterrupt struct {
	pin sysfs.Pin

	mu       sync.Mutex
	fn       func(bool)
	armed    bool
	watching bool
}

// onEdge is only called for rising edges, so the line is reported high.
func (s *sysfsInterrupt) onEdge() {
	s.mu.Lock()
	fn, armed := s.fn, s.armed
	s.mu.Unlock()
	if armed && fn != nil {
		fn(true)
	}
}

func (s *sysfsInterrupt) Enable(fn func(level bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fn, s.armed = fn, true
	if s.watching {
		return nil
	}
	if err := s.pin.BeginWatch(sysfs.EdgeRising, s.onEdge); err != nil {
		return err
	}
	s.watching = true
	return nil
}

func (s *sysfsInterrupt) Disable() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.armed = false
	return nil
}

func (s *sysfsInterrupt) Close() error {
	s.mu.Lock()
	watching := s.watching
	s.armed, s.watching = false, false
	s.mu.Unlock()
	var err error
	if watching {
		err = s.pin.EndWatch()
	}
	return errors.Join(err, s.pin.Close())
}
