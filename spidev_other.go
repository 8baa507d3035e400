//go:build !linux || !cgo

package sx127x

import "fmt"

func openSpidev(path string) (Bus, error) {
	return nil, fmt.Errorf("%w: spidev %s requires linux", ErrBackend, path)
}
