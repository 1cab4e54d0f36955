package gap

import "time"

// Legacy controllers express scan timing in 0.625 ms ticks.
const tick = 625 * time.Microsecond

// Listening time per interval. The revisit interval itself scales with the
// configured scan time.
const defaultScanWindow = 80 * time.Millisecond

// ENSSignature is the service data prefix of the Exposure Notification
// Service, used as a coarse content filter when signature counting is on.
// https://blog.google/documents/70/Exposure_Notification_-_Bluetooth_Specification_v1.2.2.pdf
var ENSSignature = []byte{0x16, 0x6f, 0xfd}

// ScanConfig carries the immutable parameters of one scan session. It is
// built once at session start and read-only afterwards.
type ScanConfig struct {
	// Window is the duration of one bounded scan; the radio halts after it
	// elapses and the scanner restarts it.
	Window time.Duration

	// IntervalTicks and WindowTicks are the controller duty cycle in native
	// ticks. WindowTicks never exceeds IntervalTicks.
	IntervalTicks uint16
	WindowTicks   uint16

	// FilterRandomAddrs drops sightings with randomized address kinds.
	FilterRandomAddrs bool

	// MatchSignature enables the substring search for Signature in the
	// advertisement payload. Signature is empty when disabled.
	MatchSignature bool
	Signature      []byte
}

// NewScanConfig derives a session config from a scan window duration. A nil
// or empty signature disables signature matching.
func NewScanConfig(window time.Duration, filterRandomAddrs bool, signature []byte) ScanConfig {
	// The advertising channel revisit interval scales with the configured
	// scan time: 10 ms of interval per second of scan time, where the window
	// is twice the scan time. The listening window never exceeds it.
	interval := 10 * time.Millisecond * time.Duration(window/(2*time.Second))
	intervalTicks := DurationToTicks(interval)
	windowTicks := DurationToTicks(defaultScanWindow)
	if windowTicks > intervalTicks {
		windowTicks = intervalTicks
	}
	return ScanConfig{
		Window:            window,
		IntervalTicks:     intervalTicks,
		WindowTicks:       windowTicks,
		FilterRandomAddrs: filterRandomAddrs,
		MatchSignature:    len(signature) > 0,
		Signature:         signature,
	}
}

// DurationToTicks converts a duration to the controller's 0.625 ms unit,
// saturating at the largest value the parameter field can hold.
func DurationToTicks(d time.Duration) uint16 {
	n := d / tick
	if n > 0x4000 {
		n = 0x4000
	}
	if n < 1 {
		n = 1
	}
	return uint16(n)
}
