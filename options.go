package sx127x

import (
	"time"

	"github.com/rs/zerolog"
	"periph.io/x/conn/v3/physic"
)

// Options configures a Device. Zero fields take the defaults listed below.
type Options struct {
	SPIBus    int    // default 0
	SPIDevice int    // default 0
	Transport string // "periph" (default) or "spidev"

	GPIO         string // "periph" (default), "gpiod" or "sysfs"
	GPIOChip     string // gpiod only, default "gpiochip0"
	ResetPin     int    // default 24
	InterruptPin int    // DIO0, default 25

	Frequency       physic.Frequency // default 915MHz
	SpreadingFactor uint8            // default 12
	SignalBandwidth physic.Frequency // default 125kHz
	CodingRate      CodingRate       // default 4/5
	PreambleLength  uint16           // default 8
	SyncWord        byte             // default 0x12
	TxPower         uint8            // dBm, default 17
	CRC             bool

	// ImplicitHeader fixes every packet to PayloadLength bytes instead of
	// carrying the length in the LoRa header.
	ImplicitHeader bool
	PayloadLength  byte

	Logger *zerolog.Logger
	// Sleep is the delay primitive used while pulsing reset, default time.Sleep.
	Sleep func(time.Duration)
}

const (
	defaultResetPin     = 24
	defaultInterruptPin = 25
	defaultGPIOChip     = "gpiochip0"
	defaultFrequency    = 915 * physic.MegaHertz
	defaultSF           = 12
	defaultBandwidth    = 125 * physic.KiloHertz
	defaultPreamble     = 8
	defaultSyncWord     = 0x12
	defaultTxPower      = 17
)

func (o *Options) withDefaults() *Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.Transport == "" {
		out.Transport = "periph"
	}
	if out.GPIO == "" {
		out.GPIO = "periph"
	}
	if out.GPIOChip == "" {
		out.GPIOChip = defaultGPIOChip
	}
	if out.ResetPin == 0 {
		out.ResetPin = defaultResetPin
	}
	if out.InterruptPin == 0 {
		out.InterruptPin = defaultInterruptPin
	}
	if out.Frequency == 0 {
		out.Frequency = defaultFrequency
	}
	if out.SpreadingFactor == 0 {
		out.SpreadingFactor = defaultSF
	}
	if out.SignalBandwidth == 0 {
		out.SignalBandwidth = defaultBandwidth
	}
	if out.CodingRate == 0 {
		out.CodingRate = CodingRate4_5
	}
	if out.PreambleLength == 0 {
		out.PreambleLength = defaultPreamble
	}
	if out.SyncWord == 0 {
		out.SyncWord = defaultSyncWord
	}
	if out.TxPower == 0 {
		out.TxPower = defaultTxPower
	}
	if out.Logger == nil {
		nop := zerolog.Nop()
		out.Logger = &nop
	}
	if out.Sleep == nil {
		out.Sleep = time.Sleep
	}
	return &out
}
