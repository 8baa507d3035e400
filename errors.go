package sx127x

import "errors"

var (
	// ErrNotOpen is returned by every operation issued before Open or after Close.
	ErrNotOpen = errors.New("sx127x: device not open")
	// ErrVersion is returned by Open when the chip does not identify as an SX127x.
	ErrVersion = errors.New("sx127x: unexpected chip version")
	// ErrPayloadSize is returned by Transmit for empty payloads, payloads over 255
	// bytes, or in implicit header mode payloads not of the configured length.
	ErrPayloadSize = errors.New("sx127x: invalid payload size")
	// ErrAborted is returned to waiters whose operation was superseded by another mode change.
	ErrAborted = errors.New("sx127x: operation aborted")
	// ErrFrequency is returned for carrier frequencies that do not fit the 24-bit Frf register.
	ErrFrequency = errors.New("sx127x: frequency out of range")
	// ErrBackend is returned by Open for unknown or unsupported transport and gpio names.
	ErrBackend = errors.New("sx127x: unsupported backend")
)
