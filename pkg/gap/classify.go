package gap

import "bytes"

// Classify inspects a single advertisement event and produces at most one
// sighting. It is a pure function: forwarding the sighting to a sink is the
// caller's responsibility.
func Classify(ev AdvertisementEvent, cfg *ScanConfig) (Sighting, bool) {
	if ev.Sub != SubEventResult {
		return Sighting{}, false
	}

	// Randomized addresses are not stably attributable to one physical device
	// across the scan window, so they are excluded from counting.
	if cfg.FilterRandomAddrs && (ev.AddrKind == AddrKindRandom || ev.AddrKind == AddrKindRPARandom) {
		return Sighting{}, false
	}

	kind := SightingGeneric
	// A raw byte scan over the whole payload, not an AD-structure parse.
	// Payloads may contain NUL bytes before the signature.
	if cfg.MatchSignature && bytes.Contains(ev.Payload, cfg.Signature) {
		kind = SightingSignatureMatched
	}

	return Sighting{Addr: ev.Addr, RSSI: ev.RSSI, Kind: kind}, true
}
