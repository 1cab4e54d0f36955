package hci

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/muxable/paxscan/pkg/gap"
)

// pipeConn is an in-memory controller: every command written is acknowledged
// with a successful command complete event.
type pipeConn struct {
	in chan Packet

	mu    sync.Mutex
	wrote []Packet

	closeOnce sync.Once
}

func newPipeConn() *pipeConn {
	return &pipeConn{in: make(chan Packet, 16)}
}

func (c *pipeConn) ReadPacket() (Packet, error) {
	p, ok := <-c.in
	if !ok {
		return nil, io.EOF
	}
	return p, nil
}

func (c *pipeConn) WritePacket(p Packet) error {
	c.mu.Lock()
	c.wrote = append(c.wrote, p)
	c.mu.Unlock()
	if cp, ok := p.(CommandPacket); ok {
		c.in <- &CommandCompleteEventPacket{
			NumCommandPackets: 1,
			CommandOpcode:     cp.Opcode(),
			ReturnParameters:  []byte{0x00},
		}
	}
	return nil
}

func (c *pipeConn) Close() error {
	c.closeOnce.Do(func() { close(c.in) })
	return nil
}

func (c *pipeConn) written() []Packet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Packet(nil), c.wrote...)
}

type radioEvent struct {
	kind gap.EventKind
	ev   gap.AdvertisementEvent
}

func newTestRadio(t *testing.T) (*Radio, *pipeConn, chan radioEvent) {
	t.Helper()
	conn := newPipeConn()
	t.Cleanup(func() { conn.Close() })
	radio := NewRadio(NewAdapter(conn))
	events := make(chan radioEvent, 16)
	require.NoError(t, radio.RegisterHandler(func(kind gap.EventKind, ev gap.AdvertisementEvent) {
		events <- radioEvent{kind, ev}
	}))
	return radio, conn, events
}

func waitEvent(t *testing.T, events chan radioEvent) radioEvent {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for radio event")
		return radioEvent{}
	}
}

func TestRadioSetScanParametersReportsCompletion(t *testing.T) {
	radio, conn, events := newTestRadio(t)

	require.NoError(t, radio.SetScanParameters(gap.ScanParams{
		IntervalTicks:    160,
		WindowTicks:      128,
		FilterDuplicates: true,
	}))

	e := waitEvent(t, events)
	assert.Equal(t, gap.EventParamSetComplete, e.kind)

	var params *HCILESetScanParametersCommandPacket
	for _, p := range conn.written() {
		if q, ok := p.(*HCILESetScanParametersCommandPacket); ok {
			params = q
		}
	}
	require.NotNil(t, params)
	assert.Equal(t, LEScanTypePassive, params.LEScanType)
	assert.Equal(t, uint16(160), params.LEScanInterval)
	assert.Equal(t, uint16(128), params.LEScanWindow)
	assert.Equal(t, ScanningFilterPolicyAcceptAll, params.ScanningFilterPolicy)
}

func TestRadioWindowElapsesIntoInquiryComplete(t *testing.T) {
	radio, conn, events := newTestRadio(t)

	require.NoError(t, radio.StartScanning(20*time.Millisecond))

	e := waitEvent(t, events)
	assert.Equal(t, gap.EventScanResult, e.kind)
	assert.Equal(t, gap.SubEventInquiryComplete, e.ev.Sub)

	// the controller was enabled and then disabled at window end.
	var enables []bool
	for _, p := range conn.written() {
		if q, ok := p.(*HCILESetScanEnableCommandPacket); ok {
			enables = append(enables, q.LEScanEnable)
		}
	}
	assert.Equal(t, []bool{true, false}, enables)
}

func TestRadioDeliversAdvertisingReports(t *testing.T) {
	_, conn, events := newTestRadio(t)

	conn.in <- &LEAdvertisingReportEventPacket{Reports: []AdvertisingReport{{
		EventType:   AdvertisingEventTypeADVInd,
		AddressType: AddressTypeRandomIdentity,
		Address:     BDAddr{1, 2, 3, 4, 5, 6},
		Data:        []byte{0x02, 0x01, 0x06},
		RSSI:        -55,
	}}}

	e := waitEvent(t, events)
	assert.Equal(t, gap.EventScanResult, e.kind)
	assert.Equal(t, gap.SubEventResult, e.ev.Sub)
	assert.Equal(t, gap.AddrKindRPARandom, e.ev.AddrKind)
	assert.Equal(t, [6]byte{1, 2, 3, 4, 5, 6}, e.ev.Addr)
	assert.Equal(t, int8(-55), e.ev.RSSI)
	assert.Equal(t, []byte{0x02, 0x01, 0x06}, e.ev.Payload)
}

func TestRadioStopScanningCancelsWindow(t *testing.T) {
	radio, _, events := newTestRadio(t)

	require.NoError(t, radio.StartScanning(30*time.Millisecond))
	require.NoError(t, radio.StopScanning())

	select {
	case e := <-events:
		t.Fatalf("unexpected event after stop: %+v", e)
	case <-time.After(60 * time.Millisecond):
	}
}

func TestRadioUnregisterSilencesHandler(t *testing.T) {
	radio, conn, events := newTestRadio(t)
	require.NoError(t, radio.UnregisterHandler())

	conn.in <- &LEAdvertisingReportEventPacket{Reports: []AdvertisingReport{{
		Address: BDAddr{1, 2, 3, 4, 5, 6},
	}}}

	select {
	case e := <-events:
		t.Fatalf("unexpected event after unregister: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}

	// re-registering is allowed once unregistered.
	assert.NoError(t, radio.RegisterHandler(func(gap.EventKind, gap.AdvertisementEvent) {}))
}
