package sx127x

// Register addresses (LoRa mode page).
const (
	RegFifo              = 0x00
	RegOpMode            = 0x01
	RegFrfMsb            = 0x06
	RegFrfMid            = 0x07
	RegFrfLsb            = 0x08
	RegPaConfig          = 0x09
	RegLna               = 0x0c
	RegFifoAddrPtr       = 0x0d
	RegFifoTxBaseAddr    = 0x0e
	RegFifoRxBaseAddr    = 0x0f
	RegFifoRxCurrentAddr = 0x10
	RegIrqFlags          = 0x12
	RegRxNbBytes         = 0x13
	RegPktSnrValue       = 0x19
	RegPktRssiValue      = 0x1a
	RegModemConfig1      = 0x1d
	RegModemConfig2      = 0x1e
	RegPreambleMsb       = 0x20
	RegPreambleLsb       = 0x21
	RegPayloadLength     = 0x22
	RegModemConfig3      = 0x26
	RegRssiWideband      = 0x2c
	RegDetectionOptimize = 0x31
	RegDetectionThresh   = 0x37
	RegSyncWord          = 0x39
	RegDioMapping1       = 0x40
	RegVersion           = 0x42
)

// RegOpMode values. OpModeLongRange selects LoRa and is or'ed into every mode write.
const (
	OpModeLongRange    = 0x80
	OpModeSleep        = 0x00
	OpModeStandby      = 0x01
	OpModeTx           = 0x03
	OpModeRxContinuous = 0x05
	OpModeCad          = 0x07
)

// RegIrqFlags bits.
const (
	IrqRxTimeout       = 0x80
	IrqRxDone          = 0x40
	IrqPayloadCrcError = 0x20
	IrqValidHeader     = 0x10
	IrqTxDone          = 0x08
	IrqCadDone         = 0x04
	IrqFhssChange      = 0x02
	IrqCadDetected     = 0x01
	IrqAll             = 0xff
)

// RegDioMapping1 DIO0 selections.
const (
	Dio0RxDone  = 0x00
	Dio0TxDone  = 0x40
	Dio0CadDone = 0x80
)

const (
	paBoost        = 0x80
	agcAutoOn      = 0x04
	lnaBoostHf     = 0x03
	crcOn          = 0x04
	implicitHeader = 0x01
	chipVersion    = 0x12
	spiWriteMask   = 0x80
	maxPayloadSize = 255
	maxFrf         = 0xffffff
	fxOsc          = 32000000
	rssiOffsetHF   = 157
	rssiOffsetLF   = 164
	highBandFloor  = 868000000 // Hz; at or above uses the HF port RSSI offset
)
