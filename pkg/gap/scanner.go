package gap

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrRadioInit means the radio stack could not be brought up. The only
	// defined recovery is restarting the whole device.
	ErrRadioInit = errors.New("radio init failed")

	// ErrRadioStop means the radio stack could not be shut down cleanly.
	// Like ErrRadioInit it is fatal to the device.
	ErrRadioStop = errors.New("radio stop failed")
)

// ScanParams are the controller-native scan parameters submitted at session
// start.
type ScanParams struct {
	IntervalTicks    uint16
	WindowTicks      uint16
	FilterDuplicates bool
}

// Handler is the radio stack's event delivery entry point.
type Handler func(EventKind, AdvertisementEvent)

// Radio abstracts the commands the scanner issues against the radio stack.
// StartScanning and StopScanning are fire-and-forget: implementations must
// not block event delivery on command completion.
type Radio interface {
	RegisterHandler(Handler) error
	UnregisterHandler() error
	SetScanParameters(ScanParams) error
	StartScanning(window time.Duration) error
	StopScanning() error
}

// State is the scan session state.
type State uint8

const (
	StateIdle State = iota
	StateParamsPending
	StateScanning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParamsPending:
		return "params-pending"
	case StateScanning:
		return "scanning"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// Command is a radio action decided by a state transition.
type Command uint8

const (
	// CommandStartScan reissues the begin-scanning request.
	CommandStartScan Command = iota
)

// Transition is the pure lifecycle step: given the current state and a
// delivered event it yields the next state and the radio commands to issue.
// Events that do not apply to the current state are ignored.
//
// The self-transition on an inquiry-complete sub-event is the liveness
// contract of the whole scanner: the radio halts after each bounded window
// and must be restarted every time, or the device silently stops counting.
func Transition(state State, kind EventKind, sub SubEvent) (State, []Command) {
	switch state {
	case StateParamsPending:
		if kind == EventParamSetComplete {
			return StateScanning, []Command{CommandStartScan}
		}
	case StateScanning:
		if kind == EventScanResult && sub == SubEventInquiryComplete {
			return StateScanning, []Command{CommandStartScan}
		}
	}
	return state, nil
}

// Scanner owns one scan session against a Radio, restarting the scan on every
// completion and forwarding classified sightings to a Sink.
type Scanner struct {
	radio Radio
	sink  Sink
	log   *zap.Logger

	mu    sync.Mutex
	state State
	cfg   ScanConfig
}

func NewScanner(radio Radio, sink Sink, log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{radio: radio, sink: sink, log: log}
}

// Start registers the event handler and submits scan parameters. The session
// becomes active once the radio reports the parameters were set.
func (s *Scanner) Start(cfg ScanConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("scan session already active in state %s", s.state)
	}

	s.cfg = cfg

	if err := s.radio.RegisterHandler(s.handle); err != nil {
		return fmt.Errorf("%w: register handler: %s", ErrRadioInit, err)
	}
	if err := s.radio.SetScanParameters(ScanParams{
		IntervalTicks:    cfg.IntervalTicks,
		WindowTicks:      cfg.WindowTicks,
		FilterDuplicates: true,
	}); err != nil {
		s.radio.UnregisterHandler()
		return fmt.Errorf("%w: set scan parameters: %s", ErrRadioInit, err)
	}

	s.state = StateParamsPending
	s.log.Info("scan session starting",
		zap.Duration("window", cfg.Window),
		zap.Bool("macfilter", cfg.FilterRandomAddrs),
		zap.Bool("signature", cfg.MatchSignature))
	return nil
}

// Stop halts scanning and releases the handler. Stopping an idle session is a
// no-op.
func (s *Scanner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateIdle {
		return nil
	}
	s.state = StateStopping

	if err := s.radio.StopScanning(); err != nil {
		return fmt.Errorf("%w: stop scanning: %s", ErrRadioStop, err)
	}
	if err := s.radio.UnregisterHandler(); err != nil {
		return fmt.Errorf("%w: unregister handler: %s", ErrRadioStop, err)
	}

	s.state = StateIdle
	s.log.Info("scan session stopped")
	return nil
}

// State returns the current session state.
func (s *Scanner) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// handle runs in the radio stack's event delivery context. It must not block
// and no panic may escape it.
func (s *Scanner) handle(kind EventKind, ev AdvertisementEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in scan event handler", zap.Any("panic", r))
		}
	}()

	s.mu.Lock()
	next, cmds := Transition(s.state, kind, ev.Sub)
	s.state = next
	cfg := s.cfg
	s.mu.Unlock()

	for _, cmd := range cmds {
		switch cmd {
		case CommandStartScan:
			if err := s.radio.StartScanning(cfg.Window); err != nil {
				s.log.Warn("failed to restart scan", zap.Error(err))
			}
		}
	}

	if next != StateScanning || kind != EventScanResult {
		return
	}
	sighting, ok := Classify(ev, &cfg)
	if !ok {
		return
	}
	if !s.sink.Offer(sighting) {
		// Deliberate backpressure policy: favor radio responsiveness over
		// completeness.
		s.log.Debug("sighting dropped, sink full")
	}
}
