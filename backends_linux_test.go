//go:build linux

package sx127x

import (
	"testing"

	sysfs "github.com/davecheney/gpio"
	"github.com/warthog618/gpiod"
)

var (
	_ sysfs.IRQEvent     = (&sysfsInterrupt{}).onEdge
	_ gpiod.EventHandler = (&gpiodInterrupt{}).onEvent

	_ OutputPin    = (*sysfsOutput)(nil)
	_ InterruptPin = (*sysfsInterrupt)(nil)
	_ OutputPin    = (*gpiodOutput)(nil)
	_ InterruptPin = (*gpiodInterrupt)(nil)
)

func TestSysfsInterruptGate(t *testing.T) {
	s := &sysfsInterrupt{watching: true}
	var levels []bool
	s.onEdge()
	if err := s.Enable(func(level bool) { levels = append(levels, level) }); err != nil {
		t.Fatal(err)
	}
	s.onEdge()
	s.Disable()
	s.onEdge()
	if len(levels) != 1 || !levels[0] {
		t.Errorf("levels = %v, want one high edge", levels)
	}
}

func TestGpiodInterruptGate(t *testing.T) {
	g := &gpiodInterrupt{}
	var levels []bool
	g.Enable(func(level bool) { levels = append(levels, level) })
	g.onEvent(gpiod.LineEvent{Type: gpiod.LineEventRisingEdge})
	g.onEvent(gpiod.LineEvent{Type: gpiod.LineEventFallingEdge})
	g.Disable()
	g.onEvent(gpiod.LineEvent{Type: gpiod.LineEventRisingEdge})
	if len(levels) != 2 || !levels[0] || levels[1] {
		t.Errorf("levels = %v, want [true false]", levels)
	}
}
