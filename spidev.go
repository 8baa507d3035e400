package sx127x

import (
	"fmt"

	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const busSpeed = 12 * physic.MegaHertz

// periphBus is a Bus on a periph SPI port in mode 0, 8 bits per word.
type periphBus struct {
	port spi.PortCloser
	conn spi.Conn
}

func newPeriphBus(port spi.PortCloser) (*periphBus, error) {
	conn, err := port.Connect(busSpeed, spi.Mode0, 8)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("sx127x: connect %s: %w", port, err)
	}
	return &periphBus{port: port, conn: conn}, nil
}

func (b *periphBus) Tx(w, r []byte) error {
	return b.conn.Tx(w, r)
}

func (b *periphBus) Close() error {
	return b.port.Close()
}

func spiDevPath(o *Options) string {
	return fmt.Sprintf("/dev/spidev%d.%d", o.SPIBus, o.SPIDevice)
}

func openBus(o *Options) (Bus, error) {
	switch o.Transport {
	case "periph":
		if _, err := host.Init(); err != nil {
			return nil, err
		}
		port, err := spireg.Open(spiDevPath(o))
		if err != nil {
			return nil, err
		}
		return newPeriphBus(port)
	case "spidev":
		return openSpidev(spiDevPath(o))
	}
	return nil, fmt.Errorf("%w: transport %q", ErrBackend, o.Transport)
}
