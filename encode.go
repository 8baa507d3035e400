package sx127x

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
)

// CodingRate is the denominator x of the 4/x forward error correction rate.
type CodingRate uint8

const (
	CodingRate4_5 CodingRate = 5
	CodingRate4_6 CodingRate = 6
	CodingRate4_7 CodingRate = 7
	CodingRate4_8 CodingRate = 8
)

// bandwidthSteps maps a requested bandwidth to its ModemConfig1 code by index:
// the first step the request does not exceed wins, anything wider is code 9.
var bandwidthSteps = [...]physic.Frequency{
	7800 * physic.Hertz,
	10400 * physic.Hertz,
	15600 * physic.Hertz,
	20800 * physic.Hertz,
	31250 * physic.Hertz,
	41700 * physic.Hertz,
	62500 * physic.Hertz,
	125 * physic.KiloHertz,
	250 * physic.KiloHertz,
}

// frequencyRegister returns the Frf value, floor(Hz * 2^19 / Fxosc). Values
// above maxFrf do not fit the register.
func frequencyRegister(f physic.Frequency) uint32 {
	if f <= 0 {
		return 0
	}
	hz := uint64(f / physic.Hertz)
	return uint32(hz << 19 / fxOsc)
}

func clampSpreadingFactor(sf uint8) uint8 {
	switch {
	case sf < 6:
		return 6
	case sf > 12:
		return 12
	}
	return sf
}

// detectionSettings returns the RegDetectionOptimize and RegDetectionThreshold
// values for sf. SF6 needs its own pair.
func detectionSettings(sf uint8) (optimize, threshold byte) {
	if sf == 6 {
		return 0xc5, 0x0c
	}
	return 0xc3, 0x0a
}

func bandwidthCode(bw physic.Frequency) byte {
	for i, step := range bandwidthSteps {
		if bw <= step {
			return byte(i)
		}
	}
	return byte(len(bandwidthSteps))
}

func clampCodingRate(cr CodingRate) CodingRate {
	switch {
	case cr < CodingRate4_5:
		return CodingRate4_5
	case cr > CodingRate4_8:
		return CodingRate4_8
	}
	return cr
}

func clampTxPower(dBm uint8) uint8 {
	switch {
	case dBm < 2:
		return 2
	case dBm > 17:
		return 17
	}
	return dBm
}

func paConfig(dBm uint8) byte {
	return paBoost | (clampTxPower(dBm) - 2)
}

// rssi converts RegPktRssiValue to dBm. The offset depends on which RF port
// the frequency lands on.
func rssi(raw byte, f physic.Frequency) int {
	if f < highBandFloor*physic.Hertz {
		return int(raw) - rssiOffsetLF
	}
	return int(raw) - rssiOffsetHF
}

// snr converts the two's complement quarter-dB RegPktSnrValue to dB.
func snr(raw byte) float64 {
	return float64(int8(raw)) * 0.25
}

func (d *Device) setFrequency(f physic.Frequency) error {
	frf := frequencyRegister(f)
	if f <= 0 || frf > maxFrf {
		return fmt.Errorf("%w: %s", ErrFrequency, f)
	}
	d.frequency = f
	if err := d.writeRegister(RegFrfMsb, byte(frf>>16)); err != nil {
		return err
	}
	if err := d.writeRegister(RegFrfMid, byte(frf>>8)); err != nil {
		return err
	}
	return d.writeRegister(RegFrfLsb, byte(frf))
}

func (d *Device) setSpreadingFactor(sf uint8) error {
	sf = clampSpreadingFactor(sf)
	d.spreadingFactor = sf
	optimize, threshold := detectionSettings(sf)
	if err := d.writeRegister(RegDetectionOptimize, optimize); err != nil {
		return err
	}
	if err := d.writeRegister(RegDetectionThresh, threshold); err != nil {
		return err
	}
	return d.modifyRegister(RegModemConfig2, 0x0f, sf<<4)
}

func (d *Device) setSignalBandwidth(bw physic.Frequency) error {
	d.bandwidth = bw
	return d.modifyRegister(RegModemConfig1, 0x0f, bandwidthCode(bw)<<4)
}

func (d *Device) setCodingRate(cr CodingRate) error {
	cr = clampCodingRate(cr)
	d.codingRate = cr
	return d.modifyRegister(RegModemConfig1, 0xf1, byte(cr-4)<<1)
}

func (d *Device) setPreambleLength(n uint16) error {
	d.preambleLength = n
	if err := d.writeRegister(RegPreambleMsb, byte(n>>8)); err != nil {
		return err
	}
	return d.writeRegister(RegPreambleLsb, byte(n))
}

func (d *Device) setSyncWord(sw byte) error {
	d.syncWord = sw
	return d.writeRegister(RegSyncWord, sw)
}

func (d *Device) setTxPower(dBm uint8) error {
	d.txPower = clampTxPower(dBm)
	return d.writeRegister(RegPaConfig, paConfig(dBm))
}

func (d *Device) setCRC(on bool) error {
	d.crc = on
	if on {
		return d.modifyRegister(RegModemConfig2, ^byte(crcOn), crcOn)
	}
	return d.modifyRegister(RegModemConfig2, ^byte(crcOn), 0)
}

func (d *Device) setLnaBoost(on bool) error {
	if on {
		return d.modifyRegister(RegLna, ^byte(lnaBoostHf), lnaBoostHf)
	}
	return d.modifyRegister(RegLna, ^byte(lnaBoostHf), 0)
}

func (d *Device) setImplicitHeader(on bool, length byte) error {
	d.implicitHeader = on
	d.payloadLength = length
	if !on {
		return d.modifyRegister(RegModemConfig1, ^byte(implicitHeader), 0)
	}
	if err := d.modifyRegister(RegModemConfig1, ^byte(implicitHeader), implicitHeader); err != nil {
		return err
	}
	return d.writeRegister(RegPayloadLength, length)
}

// SetFrequency sets the carrier frequency. Frequencies whose Frf value does
// not fit in 24 bits fail with ErrFrequency and leave the chip unchanged.
func (d *Device) SetFrequency(f physic.Frequency) error {
	return d.locked(func() error { return d.setFrequency(f) })
}

// SetSpreadingFactor sets the spreading factor, clamped to 6..12.
func (d *Device) SetSpreadingFactor(sf uint8) error {
	return d.locked(func() error { return d.setSpreadingFactor(sf) })
}

// SetSignalBandwidth selects the narrowest supported bandwidth that is at
// least bw, or 500kHz for anything above 250kHz.
func (d *Device) SetSignalBandwidth(bw physic.Frequency) error {
	return d.locked(func() error { return d.setSignalBandwidth(bw) })
}

// SetCodingRate sets the 4/x coding rate, x clamped to 5..8.
func (d *Device) SetCodingRate(cr CodingRate) error {
	return d.locked(func() error { return d.setCodingRate(cr) })
}

// SetPreambleLength sets the preamble length in symbols.
func (d *Device) SetPreambleLength(symbols uint16) error {
	return d.locked(func() error { return d.setPreambleLength(symbols) })
}

// SetSyncWord sets the LoRa sync word; 0x34 is the public network value.
func (d *Device) SetSyncWord(sw byte) error {
	return d.locked(func() error { return d.setSyncWord(sw) })
}

// SetTxPower sets PA_BOOST output power in dBm, clamped to 2..17.
func (d *Device) SetTxPower(dBm uint8) error {
	return d.locked(func() error { return d.setTxPower(dBm) })
}

// SetCRC enables or disables the payload CRC.
func (d *Device) SetCRC(on bool) error {
	return d.locked(func() error { return d.setCRC(on) })
}

// SetLnaBoost switches the high frequency LNA boost on or off.
func (d *Device) SetLnaBoost(on bool) error {
	return d.locked(func() error { return d.setLnaBoost(on) })
}

// SetImplicitHeader switches between explicit header mode and implicit mode
// with a fixed payload length.
func (d *Device) SetImplicitHeader(on bool, length byte) error {
	return d.locked(func() error { return d.setImplicitHeader(on, length) })
}

// Frequency returns the configured carrier frequency.
func (d *Device) Frequency() physic.Frequency {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frequency
}

// Config returns the radio parameters as currently applied.
func (d *Device) Config() Options {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Options{
		Frequency:       d.frequency,
		SpreadingFactor: d.spreadingFactor,
		SignalBandwidth: d.bandwidth,
		CodingRate:      d.codingRate,
		PreambleLength:  d.preambleLength,
		SyncWord:        d.syncWord,
		TxPower:         d.txPower,
		CRC:             d.crc,
		ImplicitHeader:  d.implicitHeader,
		PayloadLength:   d.payloadLength,
	}
}
