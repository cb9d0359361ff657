package comm

import (
	"context"
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"
)

// Defaults of Host.
const (
	DefaultHostRetries   = 10
	DefaultHostEventsLen = 64
)

// Event is a message received from the hub. Dumps are reported with
// Type TypeDump and Payload starting with the dump kind.
type Event = Message

// Host is the host controller side of the protocol. Send blocks until
// the hub acknowledged the message, retransmitting on NAK or timeout.
// Messages from the hub are acknowledged and delivered to EventChan.
type Host struct {
	ReadWriter   io.ReadWriter
	RetryTimeout time.Duration
	InputTimeout time.Duration
	MaxRetries   int

	parser       Parser
	nextInputID  byte
	nextOutputID byte
	sendLock     sync.Mutex
	writeLock    sync.Mutex
	ackCh        chan []byte
	eventCh      chan *Event
}

// NewHost creates a Host over rw.
func NewHost(rw io.ReadWriter) *Host {
	return &Host{
		ReadWriter:   rw,
		RetryTimeout: DefaultOutputTimeout,
		InputTimeout: DefaultInputTimeout,
		MaxRetries:   DefaultHostRetries,
		parser:       Parser{DumpFrames: true},
		ackCh:        make(chan []byte, 1),
		eventCh:      make(chan *Event, DefaultHostEventsLen),
	}
}

// EventChan retrieves the chan of messages from the hub.
func (h *Host) EventChan() <-chan *Event {
	return h.eventCh
}

// Send sends a message and waits for its acknowledgment.
func (h *Host) Send(ctx context.Context, typ byte, payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return ErrFrameTooLong
	}
	h.sendLock.Lock()
	defer h.sendLock.Unlock()

	msg := &Message{Type: typ, Payload: payload, Seq: h.nextOutputID}
	h.nextOutputID++
	data := msg.Bytes()
	select {
	case <-h.ackCh:
	default:
	}
	for retries := 0; retries <= h.MaxRetries; retries++ {
		if retries > 0 {
			glog.V(1).Infof("retransmit seq %d (%d)", msg.Seq, retries)
		}
		if err := h.write(data); err != nil {
			return err
		}
		acked, err := h.waitAck(ctx, msg.Seq)
		if err != nil || acked {
			return err
		}
	}
	return ErrNoAck
}

// waitAck returns true when seq is acknowledged, false when the message
// should be sent again.
func (h *Host) waitAck(ctx context.Context, seq byte) (bool, error) {
	timer := time.NewTimer(h.RetryTimeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
			return false, nil
		case ctrl := <-h.ackCh:
			if ctrl[0] == TypeNak {
				return false, nil
			}
			if ctrl[1] == seq {
				return true, nil
			}
			glog.Warningf("ACK for seq %d while waiting for %d", ctrl[1], seq)
		}
	}
}

// RPC invokes a named operation on the hub.
func (h *Host) RPC(ctx context.Context, name string, args ...byte) error {
	hash := CapabilityHash(name)
	return h.Send(ctx, TypeRPC, append(hash[:], args...))
}

// Sys sends a system command.
func (h *Host) Sys(ctx context.Context, code byte) error {
	return h.Send(ctx, TypeSys, []byte{code})
}

// Store writes a storage cell on the hub.
func (h *Host) Store(ctx context.Context, addr byte, value uint32) error {
	payload := make([]byte, 6)
	payload[0] = addr
	binary.BigEndian.PutUint32(payload[2:], value)
	return h.Send(ctx, TypeStore, payload)
}

// Broadcast relays a peer state to the hub's broadcast coordinator.
func (h *Host) Broadcast(ctx context.Context, id uint16, state byte) error {
	return h.Send(ctx, TypeBroadcast, []byte{byte(id >> 8), byte(id), state})
}

// Run reads from the link until ctx is done or reading fails.
func (h *Host) Run(ctx context.Context) error {
	byteCh, errCh := make(chan byte), make(chan error, 1)
	subCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go h.readLoop(subCtx, byteCh, errCh)
	timer := time.NewTimer(h.InputTimeout)
	defer timer.Stop()
	for {
		select {
		case b := <-byteCh:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(h.InputTimeout)
			if body, ok := h.parser.Parse(b); ok {
				if err := h.accept(ctx, body); err != nil {
					return err
				}
			}
		case <-timer.C:
			timer.Reset(h.InputTimeout)
			if h.parser.Receiving() {
				glog.Warningf("input timeout, discarding % x", h.parser.Buffered())
				h.parser.Reset()
				if err := h.write(AckFrame(false, 0)); err != nil {
					return err
				}
			}
		case err := <-errCh:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Host) readLoop(ctx context.Context, byteCh chan byte, errCh chan error) {
	buf := make([]byte, 1)
	for {
		n, err := h.ReadWriter.Read(buf)
		if err != nil {
			errCh <- err
			return
		}
		if n == 0 {
			continue
		}
		select {
		case byteCh <- buf[0]:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Host) accept(ctx context.Context, body []byte) error {
	if len(body) == 0 {
		return nil
	}
	switch body[0] {
	case TypeAck, TypeNak:
		if len(body) < 2 {
			return nil
		}
		select {
		case h.ackCh <- body:
		default:
			glog.Warningf("dropped control frame % x", body)
		}
		return nil
	case TypeDump:
		return h.emit(ctx, &Event{Type: TypeDump, Payload: body[1:]})
	}
	if len(body) < 3 {
		return h.write(AckFrame(false, 0))
	}
	seq := body[len(body)-2]
	if seq == h.nextInputID-1 {
		return h.write(AckFrame(true, seq))
	}
	msg, err := DecodeBody(body)
	if err != nil || seq != h.nextInputID {
		glog.Warningf("rejected seq %d (expect %d): %v", seq, h.nextInputID, err)
		return h.write(AckFrame(false, seq))
	}
	if err := h.write(AckFrame(true, seq)); err != nil {
		return err
	}
	h.nextInputID++
	return h.emit(ctx, msg)
}

func (h *Host) emit(ctx context.Context, evt *Event) error {
	select {
	case h.eventCh <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Host) write(data []byte) error {
	h.writeLock.Lock()
	defer h.writeLock.Unlock()
	_, err := h.ReadWriter.Write(data)
	return err
}
