// Package gap implements the scan side of the Generic Access Profile for a
// presence counter: it keeps a radio continuously scanning and turns raw
// advertisement events into normalized sightings.
package gap

// AddrKind mirrors the controller's address type for an advertising peer.
type AddrKind uint8

const (
	AddrKindPublic AddrKind = iota
	AddrKindRandom
	AddrKindRPAPublic
	AddrKindRPARandom
)

func (k AddrKind) String() string {
	switch k {
	case AddrKindPublic:
		return "public"
	case AddrKindRandom:
		return "random"
	case AddrKindRPAPublic:
		return "rpa-public"
	case AddrKindRPARandom:
		return "rpa-random"
	}
	return "unknown"
}

// EventKind is the top-level event delivered by the radio stack.
type EventKind uint8

const (
	EventParamSetComplete EventKind = iota
	EventScanResult
)

// SubEvent qualifies a scan result event.
type SubEvent uint8

const (
	SubEventResult SubEvent = iota
	SubEventInquiryComplete
)

// AdvertisementEvent is a single radio stack callback argument. It is consumed
// synchronously by the handler and never retained.
type AdvertisementEvent struct {
	Addr     [6]byte
	AddrKind AddrKind
	RSSI     int8 // dBm
	Payload  []byte
	Sub      SubEvent
}

// SightingKind classifies what a sighting matched.
type SightingKind uint8

const (
	SightingGeneric SightingKind = iota
	SightingSignatureMatched
)

// Sighting is a normalized observation of a nearby device, handed to the sink
// by value.
type Sighting struct {
	Addr [6]byte
	RSSI int8
	Kind SightingKind
}

// Sink receives classified sightings. Offer must not block; it reports false
// when the sighting was dropped under backpressure.
type Sink interface {
	Offer(Sighting) bool
}
