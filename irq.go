package sx127x

// Packet is one received LoRa packet.
type Packet struct {
	Data     []byte
	RSSI     int     // dBm
	SNR      float64 // dB
	IRQFlags byte    // RegIrqFlags as read when the packet was taken
}

// CADResult is the outcome of one channel activity detection run.
type CADResult struct {
	Detected bool
	IRQFlags byte
}

// event is what an interrupt produced for the handlers.
type event struct {
	packet *Packet
	cad    *CADResult
}

// handleInterrupt is called by the InterruptPin on every rising edge of DIO0.
func (d *Device) handleInterrupt(level bool) {
	if !level {
		return
	}
	d.mu.Lock()
	if !d.open {
		d.mu.Unlock()
		return
	}
	d.stats.Interrupts++
	ev, err := d.dispatch()
	d.mu.Unlock()
	if err != nil {
		d.log.Error().Err(err).Msg("interrupt")
		return
	}
	d.deliver(ev)
}

// dispatch reads the chip according to the pending operation. Called with d.mu held.
func (d *Device) dispatch() (event, error) {
	switch d.pending {
	case pendingTransmit:
		return event{}, d.transmitDone()
	case pendingCAD:
		res, err := d.cadDone()
		if err != nil {
			return event{}, err
		}
		return event{cad: &res}, nil
	}
	pkt, err := d.readPacket()
	if err != nil || pkt == nil {
		return event{}, err
	}
	return event{packet: pkt}, nil
}

func (d *Device) transmitDone() error {
	d.pending = pendingNone
	d.mode = StandbyMode
	err := d.irq.Disable()
	if werr := d.writeRegister(RegIrqFlags, IrqAll); err == nil {
		err = werr
	}
	d.stats.Transmissions++
	if d.txWait != nil {
		d.txWait.finish(err)
		d.txWait = nil
	}
	return err
}

func (d *Device) cadDone() (CADResult, error) {
	d.pending = pendingNone
	d.mode = StandbyMode
	flags, err := d.readRegister(RegIrqFlags)
	if err == nil {
		err = d.writeRegister(RegIrqFlags, IrqAll)
	}
	res := CADResult{Detected: flags&IrqCadDetected != 0, IRQFlags: flags}
	if d.cadWait != nil {
		d.cadWait.cad = res
		d.cadWait.finish(err)
		d.cadWait = nil
	}
	if err != nil {
		return res, err
	}
	d.stats.CADRuns++
	if res.Detected {
		d.stats.CADDetections++
	}
	d.log.Debug().Bool("detected", res.Detected).Uint8("irq", flags).Msg("cad")
	return res, nil
}

// readPacket drains the FIFO after RxDone. It returns a nil packet when the
// payload failed its CRC.
func (d *Device) readPacket() (*Packet, error) {
	flags, err := d.readRegister(RegIrqFlags)
	if err != nil {
		return nil, err
	}
	if err := d.writeRegister(RegIrqFlags, flags); err != nil {
		return nil, err
	}
	addr, err := d.readRegister(RegFifoRxCurrentAddr)
	if err != nil {
		return nil, err
	}
	if err := d.writeRegister(RegFifoAddrPtr, addr); err != nil {
		return nil, err
	}
	lengthReg := byte(RegRxNbBytes)
	if d.implicitHeader {
		lengthReg = RegPayloadLength
	}
	n, err := d.readRegister(lengthReg)
	if err != nil {
		return nil, err
	}
	data, err := d.readRegisterBytes(RegFifo, int(n))
	if err != nil {
		return nil, err
	}
	rawRSSI, err := d.readRegister(RegPktRssiValue)
	if err != nil {
		return nil, err
	}
	rawSNR, err := d.readRegister(RegPktSnrValue)
	if err != nil {
		return nil, err
	}
	if err := d.writeRegister(RegFifoAddrPtr, 0); err != nil {
		return nil, err
	}

	pkt := &Packet{
		Data:     data,
		RSSI:     rssi(rawRSSI, d.frequency),
		SNR:      snr(rawSNR),
		IRQFlags: flags,
	}
	if flags&IrqPayloadCrcError != 0 {
		d.stats.CRCErrors++
		d.log.Warn().Int("len", len(data)).Int("rssi", pkt.RSSI).Msg("dropped packet with crc error")
		return nil, nil
	}
	d.stats.Packets++
	return pkt, nil
}
