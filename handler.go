package sx127x

// Handle is a function that can be registered to receive packets.
type Handle func(Packet)

// CADHandle is a function that can be registered to receive channel activity results.
type CADHandle func(CADResult)

// Handle registers a packet handler. Handlers are called in registration
// order on the interrupt goroutine, without the device lock held.
func (d *Device) Handle(h Handle) {
	d.hmu.Lock()
	defer d.hmu.Unlock()
	d.handlers = append(d.handlers, h)
}

// HandleCAD registers a channel activity detection handler.
func (d *Device) HandleCAD(h CADHandle) {
	d.hmu.Lock()
	defer d.hmu.Unlock()
	d.cadHandlers = append(d.cadHandlers, h)
}

func (d *Device) deliver(ev event) {
	d.hmu.RLock()
	handlers, cadHandlers := d.handlers, d.cadHandlers
	d.hmu.RUnlock()

	if ev.packet != nil {
		for _, h := range handlers {
			h(*ev.packet)
		}
	}
	if ev.cad != nil {
		for _, h := range cadHandlers {
			h(*ev.cad)
		}
	}
}
