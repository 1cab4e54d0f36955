package hci

type OwnAddressType uint8

const (
	OwnAddressTypePublicDeviceAddress         OwnAddressType = 0x00
	OwnAddressTypeRandomDeviceAddress         OwnAddressType = 0x01
	OwnAddressTypeControllerGeneratedOrPublic OwnAddressType = 0x02
	OwnAddressTypeControllerGeneratedOrRandom OwnAddressType = 0x03
)

// AddressType is the peer address type carried in advertising reports.
type AddressType uint8

const (
	AddressTypePublicDevice   AddressType = 0x00
	AddressTypeRandomDevice   AddressType = 0x01
	AddressTypePublicIdentity AddressType = 0x02 // resolvable private address, public identity
	AddressTypeRandomIdentity AddressType = 0x03 // resolvable private address, random identity
)

type BDAddr [6]byte
