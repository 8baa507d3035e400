//go:build !linux

package sx127x

import "fmt"

func openGpiodPins(o *Options) (OutputPin, InterruptPin, error) {
	return nil, nil, fmt.Errorf("%w: gpiod requires linux", ErrBackend)
}

func openSysfsPins(o *Options) (OutputPin, InterruptPin, error) {
	return nil, nil, fmt.Errorf("%w: sysfs gpio requires linux", ErrBackend)
}
