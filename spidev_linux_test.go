//go:build linux && cgo

package sx127x

var _ Bus = (*spidevBus)(nil)
