package hci

import (
	"errors"
	"io"
	"math"
)

type AdvertisingEventType uint8

const (
	AdvertisingEventTypeADVInd        AdvertisingEventType = 0x00
	AdvertisingEventTypeADVDirectInd  AdvertisingEventType = 0x01
	AdvertisingEventTypeADVScanInd    AdvertisingEventType = 0x02
	AdvertisingEventTypeADVNonconnInd AdvertisingEventType = 0x03
	AdvertisingEventTypeScanRsp       AdvertisingEventType = 0x04
)

// AdvertisingReport is a single sighting of a broadcasting device.
type AdvertisingReport struct {
	EventType   AdvertisingEventType
	AddressType AddressType
	Address     BDAddr
	Data        []byte
	RSSI        int8
}

// Section 7.7.65.2
type LEAdvertisingReportEventPacket struct {
	Reports []AdvertisingReport
}

func (p *LEAdvertisingReportEventPacket) Unmarshal(buf []byte) error {
	if buf[0] != byte(PacketTypeEvent) || buf[1] != byte(EventCodeLEMeta) {
		return errors.New("incorrect packet")
	}
	if len(buf) < 5 || len(buf) != int(buf[2])+3 {
		return io.ErrShortBuffer
	}
	if buf[3] != byte(LEMetaSubeventCodeAdvertisingReport) {
		return errors.New("incorrect subevent")
	}
	n := int(buf[4])
	p.Reports = make([]AdvertisingReport, 0, n)
	b := buf[5:]
	for i := 0; i < n; i++ {
		if len(b) < 9 {
			return io.ErrShortBuffer
		}
		r := AdvertisingReport{
			EventType:   AdvertisingEventType(b[0]),
			AddressType: AddressType(b[1]),
		}
		copy(r.Address[:], b[2:8])
		s := int(b[8])
		if len(b) < 9+s+1 {
			return io.ErrShortBuffer
		}
		r.Data = b[9 : 9+s]
		r.RSSI = int8(b[9+s])
		p.Reports = append(p.Reports, r)
		b = b[9+s+1:]
	}
	if len(b) != 0 {
		return io.ErrShortBuffer
	}
	return nil
}

func (p *LEAdvertisingReportEventPacket) Marshal() ([]byte, error) {
	if len(p.Reports) > math.MaxUint8 {
		return nil, io.ErrShortWrite
	}
	buf := []byte{byte(PacketTypeEvent), byte(EventCodeLEMeta), 0, byte(LEMetaSubeventCodeAdvertisingReport), byte(len(p.Reports))}
	for _, r := range p.Reports {
		if len(r.Data) > math.MaxUint8 {
			return nil, io.ErrShortWrite
		}
		buf = append(buf, byte(r.EventType), byte(r.AddressType))
		buf = append(buf, r.Address[:]...)
		buf = append(buf, byte(len(r.Data)))
		buf = append(buf, r.Data...)
		buf = append(buf, byte(r.RSSI))
	}
	if len(buf)-3 > math.MaxUint8 {
		return nil, io.ErrShortWrite
	}
	buf[2] = byte(len(buf) - 3)
	return buf, nil
}
