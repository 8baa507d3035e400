//go:build linux && cgo

package sx127x

import (
	"github.com/fulr/spidev"
)

// spidevBus is a Bus on a raw /dev/spidevB.D node using spidev's default
// mode 0 settings.
type spidevBus struct {
	dev *spidev.SPIDevice
}

func openSpidev(path string) (Bus, error) {
	dev, err := spidev.NewSPIDevice(path)
	if err != nil {
		return nil, err
	}
	return &spidevBus{dev: dev}, nil
}

func (s *spidevBus) Tx(w, r []byte) error {
	in, err := s.dev.Xfer(w)
	if err != nil {
		return err
	}
	copy(r, in)
	return nil
}

func (s *spidevBus) Close() error {
	s.dev.Close()
	return nil
}
