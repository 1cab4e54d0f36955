package gap

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRadio struct {
	handler Handler

	params []ScanParams
	starts []time.Duration
	stops  int

	registerErr  error
	setParamsErr error
	stopErr      error
}

func (r *fakeRadio) RegisterHandler(h Handler) error {
	if r.registerErr != nil {
		return r.registerErr
	}
	r.handler = h
	return nil
}

func (r *fakeRadio) UnregisterHandler() error {
	r.handler = nil
	return nil
}

func (r *fakeRadio) SetScanParameters(p ScanParams) error {
	if r.setParamsErr != nil {
		return r.setParamsErr
	}
	r.params = append(r.params, p)
	return nil
}

func (r *fakeRadio) StartScanning(window time.Duration) error {
	r.starts = append(r.starts, window)
	return nil
}

func (r *fakeRadio) StopScanning() error {
	if r.stopErr != nil {
		return r.stopErr
	}
	r.stops++
	return nil
}

func (r *fakeRadio) deliver(kind EventKind, ev AdvertisementEvent) {
	r.handler(kind, ev)
}

type fakeSink struct {
	sightings []Sighting
	full      bool
}

func (s *fakeSink) Offer(sighting Sighting) bool {
	if s.full {
		return false
	}
	s.sightings = append(s.sightings, sighting)
	return true
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		kind     EventKind
		sub      SubEvent
		want     State
		wantCmds []Command
	}{
		{"params pending completes", StateParamsPending, EventParamSetComplete, 0, StateScanning, []Command{CommandStartScan}},
		{"inquiry complete restarts", StateScanning, EventScanResult, SubEventInquiryComplete, StateScanning, []Command{CommandStartScan}},
		{"result keeps scanning", StateScanning, EventScanResult, SubEventResult, StateScanning, nil},
		{"param set complete while scanning ignored", StateScanning, EventParamSetComplete, 0, StateScanning, nil},
		{"events while idle ignored", StateIdle, EventScanResult, SubEventInquiryComplete, StateIdle, nil},
		{"events while stopping ignored", StateStopping, EventScanResult, SubEventInquiryComplete, StateStopping, nil},
		{"result while params pending ignored", StateParamsPending, EventScanResult, SubEventResult, StateParamsPending, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, cmds := Transition(tt.state, tt.kind, tt.sub)
			assert.Equal(t, tt.want, next)
			assert.Equal(t, tt.wantCmds, cmds)
		})
	}
}

func TestStartSubmitsScanParameters(t *testing.T) {
	radio := &fakeRadio{}
	s := NewScanner(radio, &fakeSink{}, nil)

	require.NoError(t, s.Start(NewScanConfig(30*time.Second, false, nil)))

	assert.Equal(t, StateParamsPending, s.State())
	require.Len(t, radio.params, 1)
	assert.True(t, radio.params[0].FilterDuplicates)
	assert.LessOrEqual(t, radio.params[0].WindowTicks, radio.params[0].IntervalTicks)
	assert.Empty(t, radio.starts, "scanning must not begin before params complete")
	require.NotNil(t, radio.handler)
}

func TestParamSetCompleteBeginsScanning(t *testing.T) {
	radio := &fakeRadio{}
	s := NewScanner(radio, &fakeSink{}, nil)
	require.NoError(t, s.Start(NewScanConfig(30*time.Second, false, nil)))

	radio.deliver(EventParamSetComplete, AdvertisementEvent{})

	assert.Equal(t, StateScanning, s.State())
	require.Len(t, radio.starts, 1)
	assert.Equal(t, 30*time.Second, radio.starts[0])
}

func TestEveryInquiryCompleteRestartsScan(t *testing.T) {
	radio := &fakeRadio{}
	s := NewScanner(radio, &fakeSink{}, nil)
	require.NoError(t, s.Start(NewScanConfig(30*time.Second, false, nil)))
	radio.deliver(EventParamSetComplete, AdvertisementEvent{})

	for i := 0; i < 10; i++ {
		radio.deliver(EventScanResult, AdvertisementEvent{Sub: SubEventInquiryComplete})
		assert.Equal(t, StateScanning, s.State())
	}
	assert.Len(t, radio.starts, 11) // initial start plus one per completion
}

func TestFilteredResultNeverReachesSink(t *testing.T) {
	radio := &fakeRadio{}
	sink := &fakeSink{}
	s := NewScanner(radio, sink, nil)
	require.NoError(t, s.Start(NewScanConfig(30*time.Second, true, nil)))
	radio.deliver(EventParamSetComplete, AdvertisementEvent{})

	radio.deliver(EventScanResult, AdvertisementEvent{
		AddrKind: AddrKindRandom,
		RSSI:     -60,
		Sub:      SubEventResult,
	})

	assert.Empty(t, sink.sightings)
}

func TestResultReachesSink(t *testing.T) {
	radio := &fakeRadio{}
	sink := &fakeSink{}
	s := NewScanner(radio, sink, nil)
	require.NoError(t, s.Start(NewScanConfig(30*time.Second, false, ENSSignature)))
	radio.deliver(EventParamSetComplete, AdvertisementEvent{})

	radio.deliver(EventScanResult, AdvertisementEvent{
		Addr:     [6]byte{1, 2, 3, 4, 5, 6},
		AddrKind: AddrKindPublic,
		RSSI:     -42,
		Payload:  []byte{0x02, 0x01, 0x06, 0x16, 0x6f, 0xfd},
		Sub:      SubEventResult,
	})

	require.Len(t, sink.sightings, 1)
	assert.Equal(t, SightingSignatureMatched, sink.sightings[0].Kind)
	assert.Equal(t, int8(-42), sink.sightings[0].RSSI)
}

func TestFullSinkDropsSighting(t *testing.T) {
	radio := &fakeRadio{}
	sink := &fakeSink{full: true}
	s := NewScanner(radio, sink, nil)
	require.NoError(t, s.Start(NewScanConfig(30*time.Second, false, nil)))
	radio.deliver(EventParamSetComplete, AdvertisementEvent{})

	// must not panic or block; the sighting is simply gone.
	radio.deliver(EventScanResult, AdvertisementEvent{AddrKind: AddrKindPublic, Sub: SubEventResult})
	assert.Equal(t, StateScanning, s.State())
}

func TestResultsBeforeScanningAreIgnored(t *testing.T) {
	radio := &fakeRadio{}
	sink := &fakeSink{}
	s := NewScanner(radio, sink, nil)
	require.NoError(t, s.Start(NewScanConfig(30*time.Second, false, nil)))

	radio.deliver(EventScanResult, AdvertisementEvent{AddrKind: AddrKindPublic, Sub: SubEventResult})

	assert.Empty(t, sink.sightings)
	assert.Equal(t, StateParamsPending, s.State())
}

func TestStopIdleIsNoop(t *testing.T) {
	radio := &fakeRadio{}
	s := NewScanner(radio, &fakeSink{}, nil)
	require.NoError(t, s.Stop())
	assert.Zero(t, radio.stops)
}

func TestStopHaltsSession(t *testing.T) {
	radio := &fakeRadio{}
	s := NewScanner(radio, &fakeSink{}, nil)
	require.NoError(t, s.Start(NewScanConfig(30*time.Second, false, nil)))
	radio.deliver(EventParamSetComplete, AdvertisementEvent{})

	require.NoError(t, s.Stop())

	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 1, radio.stops)
	assert.Nil(t, radio.handler)
}

func TestStartWhileActiveFails(t *testing.T) {
	radio := &fakeRadio{}
	s := NewScanner(radio, &fakeSink{}, nil)
	cfg := NewScanConfig(30*time.Second, false, nil)
	require.NoError(t, s.Start(cfg))
	assert.Error(t, s.Start(cfg))
}

func TestRegisterFailureIsRadioInit(t *testing.T) {
	radio := &fakeRadio{registerErr: errors.New("ebusy")}
	s := NewScanner(radio, &fakeSink{}, nil)
	err := s.Start(NewScanConfig(30*time.Second, false, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRadioInit)
	assert.Empty(t, radio.params)
}

func TestStartFailureIsRadioInit(t *testing.T) {
	radio := &fakeRadio{setParamsErr: errors.New("eio")}
	s := NewScanner(radio, &fakeSink{}, nil)
	err := s.Start(NewScanConfig(30*time.Second, false, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRadioInit)
	assert.Nil(t, radio.handler, "handler must be released on failed start")
	assert.Equal(t, StateIdle, s.State())
}

func TestStopFailureIsRadioStop(t *testing.T) {
	radio := &fakeRadio{stopErr: errors.New("eio")}
	s := NewScanner(radio, &fakeSink{}, nil)
	require.NoError(t, s.Start(NewScanConfig(30*time.Second, false, nil)))

	err := s.Stop()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRadioStop)
}

type panickingSink struct{}

func (panickingSink) Offer(Sighting) bool { panic("sink exploded") }

func TestHandlerContainsPanics(t *testing.T) {
	radio := &fakeRadio{}
	s := NewScanner(radio, panickingSink{}, nil)
	require.NoError(t, s.Start(NewScanConfig(30*time.Second, false, nil)))
	radio.deliver(EventParamSetComplete, AdvertisementEvent{})

	assert.NotPanics(t, func() {
		radio.deliver(EventScanResult, AdvertisementEvent{AddrKind: AddrKindPublic, Sub: SubEventResult})
	})
	assert.Equal(t, StateScanning, s.State())
}
