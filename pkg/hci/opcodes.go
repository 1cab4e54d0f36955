package hci

// Bluetooth Core Specification Vol 4, Part E.

type PacketType uint8

const (
	PacketTypeCommand         PacketType = 0x01
	PacketTypeACLData         PacketType = 0x02
	PacketTypeSynchronousData PacketType = 0x03
	PacketTypeEvent           PacketType = 0x04
	PacketTypeExtendedCommand PacketType = 0x09
)

type Opcode uint16

const (
	OpcodeReset               Opcode = 0x0C03
	OpcodeSetEventMask        Opcode = 0x0C01
	OpcodeReadBDAddr          Opcode = 0x1009
	OpcodeLESetEventMask      Opcode = 0x2001
	OpcodeLESetScanParameters Opcode = 0x200B
	OpcodeLESetScanEnable     Opcode = 0x200C
)

type EventCode uint8

const (
	EventCodeCommandComplete EventCode = 0x0E
	EventCodeCommandStatus   EventCode = 0x0F
	EventCodeHardwareError   EventCode = 0x10
	EventCodeLEMeta          EventCode = 0x3E
)

type LEMetaSubeventCode uint8

const (
	LEMetaSubeventCodeConnectionComplete        LEMetaSubeventCode = 0x01
	LEMetaSubeventCodeAdvertisingReport         LEMetaSubeventCode = 0x02
	LEMetaSubeventCodeExtendedAdvertisingReport LEMetaSubeventCode = 0x0D
)
