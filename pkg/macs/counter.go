// Package macs counts unique nearby devices from classified sightings. It
// keeps no addresses: each sighting is reduced to a salted 16-bit hash, and
// the salt is rotated every cycle so hashes are not linkable across cycles.
package macs

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muxable/paxscan/pkg/gap"
)

// Tally is the device count of one cycle.
type Tally struct {
	Devices   int // unique devices seen
	Signature int // subset whose advertisement matched the signature
	Since     time.Time
}

// Counter is a gap.Sink: it accepts sightings through a bounded non-blocking
// queue and deduplicates them on a background goroutine.
type Counter struct {
	log       *zap.Logger
	queue     chan gap.Sighting
	rssiFloor int // dBm, 0 disables

	mu        sync.Mutex
	salt      uint16
	seen      map[uint16]struct{}
	devices   int
	signature int
	since     time.Time
	dropped   uint64
}

func NewCounter(queueSize, rssiFloor int, log *zap.Logger) *Counter {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Counter{
		log:       log,
		queue:     make(chan gap.Sighting, queueSize),
		rssiFloor: rssiFloor,
	}
	c.reset()
	return c
}

// Offer enqueues a sighting without blocking. It is safe to call from the
// radio stack's event delivery context; a full queue drops the sighting.
func (c *Counter) Offer(s gap.Sighting) bool {
	select {
	case c.queue <- s:
		return true
	default:
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		return false
	}
}

// Run consumes queued sightings until the context is canceled.
func (c *Counter) Run(ctx context.Context) {
	for {
		select {
		case s := <-c.queue:
			c.add(s)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Counter) add(s gap.Sighting) {
	if c.rssiFloor != 0 && int(s.RSSI) < c.rssiFloor {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	h := saltedHash(c.salt, s.Addr)
	if _, ok := c.seen[h]; ok {
		return
	}
	c.seen[h] = struct{}{}
	c.devices++
	if s.Kind == gap.SightingSignatureMatched {
		c.signature++
	}
	c.log.Debug("new device", zap.Int("devices", c.devices), zap.Int8("rssi", s.RSSI))
}

// Snapshot returns the running tally without resetting it.
func (c *Counter) Snapshot() Tally {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Tally{Devices: c.devices, Signature: c.signature, Since: c.since}
}

// Reset returns the tally of the cycle that just ended and starts a fresh
// one with an empty set and a new salt.
func (c *Counter) Reset() Tally {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := Tally{Devices: c.devices, Signature: c.signature, Since: c.since}
	if c.dropped > 0 {
		c.log.Warn("sightings dropped this cycle", zap.Uint64("dropped", c.dropped))
	}
	c.reset()
	return t
}

func (c *Counter) reset() {
	var b [2]byte
	if _, err := rand.Read(b[:]); err != nil {
		// counting stays correct without a fresh salt, hashes just remain
		// linkable to the previous cycle.
		c.log.Warn("failed to rotate salt", zap.Error(err))
		binary.LittleEndian.PutUint16(b[:], c.salt^uint16(time.Now().UnixNano()))
	}
	c.salt = binary.LittleEndian.Uint16(b[:])
	c.seen = make(map[uint16]struct{})
	c.devices = 0
	c.signature = 0
	c.since = time.Now()
	c.dropped = 0
}

// saltedHash folds a FNV-1a hash of salt||addr down to 16 bits. Collisions
// slightly undercount, which is acceptable for an estimate and keeps the set
// small on constrained hosts.
func saltedHash(salt uint16, addr [6]byte) uint16 {
	h := fnv.New32a()
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], salt)
	h.Write(b[:])
	h.Write(addr[:])
	v := h.Sum32()
	return uint16(v>>16) ^ uint16(v)
}
