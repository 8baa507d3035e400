package sx127x

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/conntest"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpiotest"
	"periph.io/x/conn/v3/spi/spitest"
)

func TestPeriphBus(t *testing.T) {
	port := &spitest.Playback{
		Playback: conntest.Playback{
			Ops: []conntest.IO{
				{W: []byte{RegVersion, 0x00}, R: []byte{0x00, chipVersion}},
				{W: []byte{RegSyncWord | 0x80, 0x34}, R: []byte{0x00, 0x00}},
			},
		},
	}
	bus, err := newPeriphBus(port)
	if err != nil {
		t.Fatalf("newPeriphBus: %v", err)
	}
	d := &Device{bus: bus, log: (&Options{}).withDefaults().Logger}

	v, err := d.readRegister(RegVersion)
	if err != nil || v != chipVersion {
		t.Fatalf("readRegister = %#02x, %v", v, err)
	}
	if err := d.writeRegister(RegSyncWord, 0x34); err != nil {
		t.Fatalf("writeRegister: %v", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("playback not fully consumed: %v", err)
	}
}

func TestPeriphOutput(t *testing.T) {
	pin := &gpiotest.Pin{N: "RESET", Num: 24}
	out := &periphOutput{pin: pin}
	if err := out.Write(false); err != nil {
		t.Fatal(err)
	}
	if pin.Read() != gpio.Low {
		t.Error("reset not low")
	}
	if err := out.Write(true); err != nil {
		t.Fatal(err)
	}
	if pin.Read() != gpio.High {
		t.Error("reset not high")
	}
}

func TestPeriphInterrupt(t *testing.T) {
	pin := &gpiotest.Pin{N: "DIO0", Num: 25, EdgesChan: make(chan gpio.Level)}
	irq := newPeriphInterrupt(pin)
	levels := make(chan bool, 4)
	if err := irq.Enable(func(level bool) { levels <- level }); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	defer irq.Close()

	pin.EdgesChan <- gpio.High
	select {
	case l := <-levels:
		if !l {
			t.Error("rising edge delivered as low")
		}
	case <-time.After(time.Second):
		t.Fatal("edge not delivered")
	}

	irq.Disable()
	pin.EdgesChan <- gpio.High
	select {
	case <-levels:
		t.Error("edge delivered while disabled")
	case <-time.After(20 * time.Millisecond):
	}

	if err := irq.Enable(func(level bool) { levels <- level }); err != nil {
		t.Fatal(err)
	}
	pin.EdgesChan <- gpio.High
	select {
	case <-levels:
	case <-time.After(time.Second):
		t.Fatal("edge not delivered after re-enable")
	}
}
