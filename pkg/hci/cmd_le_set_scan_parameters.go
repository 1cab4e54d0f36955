package hci

import (
	"encoding/binary"
	"errors"
	"io"
)

type LEScanType uint8

const (
	LEScanTypePassive LEScanType = 0x00
	LEScanTypeActive  LEScanType = 0x01
)

type ScanningFilterPolicy uint8

const (
	ScanningFilterPolicyAcceptAll                      ScanningFilterPolicy = 0x00
	ScanningFilterPolicyAcceptFilterListOnly           ScanningFilterPolicy = 0x01
	ScanningFilterPolicyAcceptAllAndDirectedRPA        ScanningFilterPolicy = 0x02
	ScanningFilterPolicyAcceptFilterListAndDirectedRPA ScanningFilterPolicy = 0x03
)

type HCILESetScanParametersCommandPacket struct {
	LEScanType           LEScanType
	LEScanInterval       uint16
	LEScanWindow         uint16
	OwnAddressType       OwnAddressType
	ScanningFilterPolicy ScanningFilterPolicy
}

func (p *HCILESetScanParametersCommandPacket) Marshal() ([]byte, error) {
	buf := make([]byte, 11)
	buf[0] = byte(PacketTypeCommand)
	binary.LittleEndian.PutUint16(buf[1:], uint16(OpcodeLESetScanParameters))
	buf[3] = 7
	buf[4] = byte(p.LEScanType)
	binary.LittleEndian.PutUint16(buf[5:], p.LEScanInterval)
	binary.LittleEndian.PutUint16(buf[7:], p.LEScanWindow)
	buf[9] = byte(p.OwnAddressType)
	buf[10] = byte(p.ScanningFilterPolicy)
	return buf, nil
}

func (p *HCILESetScanParametersCommandPacket) Unmarshal(buf []byte) error {
	if len(buf) < 11 {
		return io.ErrUnexpectedEOF
	}
	if buf[0] != byte(PacketTypeCommand) || binary.LittleEndian.Uint16(buf[1:]) != uint16(OpcodeLESetScanParameters) {
		return errors.New("incorrect packet")
	}
	p.LEScanType = LEScanType(buf[4])
	p.LEScanInterval = binary.LittleEndian.Uint16(buf[5:])
	p.LEScanWindow = binary.LittleEndian.Uint16(buf[7:])
	p.OwnAddressType = OwnAddressType(buf[9])
	p.ScanningFilterPolicy = ScanningFilterPolicy(buf[10])
	return nil
}

func (p *HCILESetScanParametersCommandPacket) Opcode() Opcode {
	return OpcodeLESetScanParameters
}

type SetScanParametersRequest struct {
	LEScanType           LEScanType
	LEScanInterval       uint16 // units of 0.625 ms
	LEScanWindow         uint16 // units of 0.625 ms
	OwnAddressType       OwnAddressType
	ScanningFilterPolicy ScanningFilterPolicy
}

func (a *Adapter) LESetScanParameters(request *SetScanParametersRequest) error {
	if request.LEScanInterval == 0 {
		request.LEScanInterval = 0x0010
	}
	if request.LEScanInterval < 0x0004 || request.LEScanInterval > 0x4000 {
		return errors.New("invalid scan interval")
	}
	if request.LEScanWindow == 0 {
		request.LEScanWindow = 0x0010
	}
	if request.LEScanWindow < 0x0004 || request.LEScanWindow > 0x4000 {
		return errors.New("invalid scan window")
	}
	if request.LEScanWindow > request.LEScanInterval {
		return errors.New("scan window exceeds scan interval")
	}

	buf, err := a.op(&HCILESetScanParametersCommandPacket{
		LEScanType:           request.LEScanType,
		LEScanInterval:       request.LEScanInterval,
		LEScanWindow:         request.LEScanWindow,
		OwnAddressType:       request.OwnAddressType,
		ScanningFilterPolicy: request.ScanningFilterPolicy,
	})
	if err != nil {
		return err
	}
	if buf[0] != 0 {
		return errors.New("command failed")
	}
	return nil
}
