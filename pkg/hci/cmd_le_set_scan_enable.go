package hci

import (
	"encoding/binary"
	"errors"
	"io"
)

type HCILESetScanEnableCommandPacket struct {
	LEScanEnable     bool
	FilterDuplicates bool
}

func (p *HCILESetScanEnableCommandPacket) Marshal() ([]byte, error) {
	buf := make([]byte, 6)
	buf[0] = byte(PacketTypeCommand)
	binary.LittleEndian.PutUint16(buf[1:], uint16(OpcodeLESetScanEnable))
	buf[3] = 2
	if p.LEScanEnable {
		buf[4] = 1
	}
	if p.FilterDuplicates {
		buf[5] = 1
	}
	return buf, nil
}

func (p *HCILESetScanEnableCommandPacket) Unmarshal(buf []byte) error {
	if buf[0] != byte(PacketTypeCommand) || binary.LittleEndian.Uint16(buf[1:]) != uint16(OpcodeLESetScanEnable) {
		return errors.New("incorrect packet")
	}
	if buf[3] != 2 || len(buf) != 6 {
		return io.ErrShortBuffer
	}
	p.LEScanEnable = buf[4] == 1
	p.FilterDuplicates = buf[5] == 1
	return nil
}

func (p *HCILESetScanEnableCommandPacket) Opcode() Opcode {
	return OpcodeLESetScanEnable
}

func (a *Adapter) LESetScanEnable(enable, filterDuplicates bool) error {
	buf, err := a.op(&HCILESetScanEnableCommandPacket{LEScanEnable: enable, FilterDuplicates: filterDuplicates})
	if err != nil {
		return err
	}
	if buf[0] != 0 {
		return errors.New("command failed")
	}
	return nil
}
