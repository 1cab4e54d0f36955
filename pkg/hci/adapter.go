package hci

import (
	"errors"
	"io"
	"sync"

	"github.com/google/uuid"
)

// PacketConn is the transport an Adapter drives. *Socket implements it; tests
// substitute an in-memory transport.
type PacketConn interface {
	ReadPacket() (Packet, error)
	WritePacket(Packet) error
	Close() error
}

// Adapter multiplexes packets from a controller to interested subscribers and
// provides the command round-trip used by the typed command wrappers.
type Adapter struct {
	PacketConn

	onPacketLock sync.Mutex
	onPacket     map[string]func(Packet, error)
}

func NewAdapter(conn PacketConn) *Adapter {
	a := &Adapter{
		PacketConn: conn,
		onPacket:   make(map[string]func(Packet, error)),
	}
	go func() {
		for {
			p, err := a.ReadPacket()
			if errors.Is(err, ErrUnsupportedPacket) {
				continue
			}
			if err != nil {
				a.onPacketLock.Lock()
				for _, cb := range a.onPacket {
					go cb(nil, err)
				}
				a.onPacketLock.Unlock()
				return
			}
			a.onPacketLock.Lock()
			for _, cb := range a.onPacket {
				go cb(p, nil)
			}
			a.onPacketLock.Unlock()
		}
	}()
	return a
}

// watch registers a subscriber for all inbound packets until unwatch.
func (a *Adapter) watch(id string, cb func(Packet, error)) {
	a.onPacketLock.Lock()
	a.onPacket[id] = cb
	a.onPacketLock.Unlock()
}

func (a *Adapter) unwatch(id string) {
	a.onPacketLock.Lock()
	delete(a.onPacket, id)
	a.onPacketLock.Unlock()
}

// op writes a command packet and blocks until its command complete event
// arrives, returning the return parameters.
func (a *Adapter) op(p CommandPacket) ([]byte, error) {
	done := make(chan []byte, 1)
	id := uuid.NewString()
	a.watch(id, func(q Packet, err error) {
		if err != nil {
			a.unwatch(id)
			done <- nil
			return
		}
		switch q := q.(type) {
		case *CommandCompleteEventPacket:
			if q.CommandOpcode != p.Opcode() {
				return
			}
			a.unwatch(id)
			done <- q.ReturnParameters
		}
	})
	if err := a.WritePacket(p); err != nil {
		a.unwatch(id)
		return nil, err
	}
	buf := <-done
	if buf == nil {
		return nil, io.EOF
	}
	return buf, nil
}

func (a *Adapter) Reset() error {
	buf, err := a.op(NewGenericCommandPacket(OpcodeReset))
	if err != nil {
		return err
	}
	if buf[0] != 0 {
		return errors.New("command failed")
	}
	return nil
}

func (a *Adapter) ReadBDAddr() (BDAddr, error) {
	var addr BDAddr
	buf, err := a.op(NewGenericCommandPacket(OpcodeReadBDAddr))
	if err != nil {
		return addr, err
	}
	if buf[0] != 0 {
		return addr, errors.New("command failed")
	}
	if copy(addr[:], buf[1:]) != 6 {
		return addr, io.ErrShortWrite
	}
	return addr, nil
}
