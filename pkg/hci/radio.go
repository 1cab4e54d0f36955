package hci

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/muxable/paxscan/pkg/gap"
)

// Radio adapts an Adapter to the gap.Radio contract.
//
// The HCI user channel has no native counterpart to a GAP inquiry-complete
// signal, so the bounded-window semantics are recreated here: StartScanning
// enables scanning and arms a timer that disables it again and posts an
// inquiry-complete event to the handler once the window elapses.
type Radio struct {
	adapter          *Adapter
	filterDuplicates bool

	mu      sync.Mutex
	handler gap.Handler
	watchID string
	window  *time.Timer
}

func NewRadio(a *Adapter) *Radio {
	return &Radio{adapter: a}
}

func (r *Radio) RegisterHandler(h gap.Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handler != nil {
		return errors.New("handler already registered")
	}
	r.handler = h
	r.watchID = uuid.NewString()
	r.adapter.watch(r.watchID, r.onPacket)
	return nil
}

func (r *Radio) UnregisterHandler() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handler == nil {
		return nil
	}
	r.adapter.unwatch(r.watchID)
	r.handler = nil
	if r.window != nil {
		r.window.Stop()
		r.window = nil
	}
	return nil
}

func (r *Radio) SetScanParameters(p gap.ScanParams) error {
	r.mu.Lock()
	r.filterDuplicates = p.FilterDuplicates
	r.mu.Unlock()

	// The completion is reported through the handler rather than the return
	// value so the caller never blocks on the controller.
	go func() {
		err := r.adapter.LESetScanParameters(&SetScanParametersRequest{
			LEScanType:           LEScanTypePassive,
			LEScanInterval:       p.IntervalTicks,
			LEScanWindow:         p.WindowTicks,
			OwnAddressType:       OwnAddressTypeRandomDeviceAddress,
			ScanningFilterPolicy: ScanningFilterPolicyAcceptAll,
		})
		if err != nil {
			zap.L().Error("failed to set scan parameters", zap.Error(err))
			return
		}
		r.deliver(gap.EventParamSetComplete, gap.AdvertisementEvent{})
	}()
	return nil
}

func (r *Radio) StartScanning(window time.Duration) error {
	r.mu.Lock()
	if r.window != nil {
		r.window.Stop()
	}
	r.window = time.AfterFunc(window, r.windowElapsed)
	filterDuplicates := r.filterDuplicates
	r.mu.Unlock()

	go func() {
		if err := r.adapter.LESetScanEnable(true, filterDuplicates); err != nil {
			zap.L().Error("failed to enable scanning", zap.Error(err))
		}
	}()
	return nil
}

func (r *Radio) StopScanning() error {
	r.mu.Lock()
	if r.window != nil {
		r.window.Stop()
		r.window = nil
	}
	r.mu.Unlock()
	return r.adapter.LESetScanEnable(false, false)
}

// windowElapsed fires when the scan window timer expires. It halts the
// controller and reports the completion, after which the scanner issues a
// fresh start.
func (r *Radio) windowElapsed() {
	if err := r.adapter.LESetScanEnable(false, false); err != nil {
		zap.L().Warn("failed to disable scanning at window end", zap.Error(err))
	}
	r.deliver(gap.EventScanResult, gap.AdvertisementEvent{Sub: gap.SubEventInquiryComplete})
}

func (r *Radio) onPacket(p Packet, err error) {
	if err != nil {
		return
	}
	rep, ok := p.(*LEAdvertisingReportEventPacket)
	if !ok {
		return
	}
	for _, report := range rep.Reports {
		r.deliver(gap.EventScanResult, gap.AdvertisementEvent{
			Addr:     report.Address,
			AddrKind: addrKind(report.AddressType),
			RSSI:     report.RSSI,
			Payload:  report.Data,
			Sub:      gap.SubEventResult,
		})
	}
}

func (r *Radio) deliver(kind gap.EventKind, ev gap.AdvertisementEvent) {
	r.mu.Lock()
	h := r.handler
	r.mu.Unlock()
	if h != nil {
		h(kind, ev)
	}
}

func addrKind(t AddressType) gap.AddrKind {
	switch t {
	case AddressTypePublicDevice:
		return gap.AddrKindPublic
	case AddressTypeRandomDevice:
		return gap.AddrKindRandom
	case AddressTypePublicIdentity:
		return gap.AddrKindRPAPublic
	case AddressTypeRandomIdentity:
		return gap.AddrKindRPARandom
	}
	return gap.AddrKindPublic
}
