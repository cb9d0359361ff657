package comm

import (
	"context"
	"io"
	"sync"

	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l1/msgs"
)

// Pipe carries Typed messages over packets.
type Pipe struct {
	ReadWriter PacketReadWriter
	Handler    msgs.TypedMsgHandler

	seq      uint32
	sendLock sync.Mutex
}

// NewPipe creates a Pipe with given PacketReadWriter.
func NewPipe(rw PacketReadWriter) *Pipe {
	return &Pipe{ReadWriter: rw}
}

// SendEvent sends an event stamped with the next sequence number.
func (p *Pipe) SendEvent(msg msgs.SerializableMessage) error {
	p.sendLock.Lock()
	defer p.sendLock.Unlock()
	p.seq++
	typed, err := msgs.TypedFrom(msg, p.seq)
	if err != nil {
		return err
	}
	pkt, err := typed.Encode()
	if err != nil {
		return err
	}
	return p.ReadWriter.WritePacket(pkt)
}

// Run implements Runnable. Undecodable messages are skipped.
func (p *Pipe) Run(ctx context.Context) error {
	defer p.Close()
	for {
		pkt, err := p.ReadWriter.ReadPacket()
		if err != nil {
			return err
		}
		typed, err := msgs.DecodeTyped(pkt)
		if err != nil {
			glog.Warningf("drop malformed packet: %v", err)
			continue
		}
		msg, err := typed.Decode()
		if err != nil {
			glog.V(1).Infof("drop message: %v", err)
			continue
		}
		if h := p.Handler; h != nil {
			if err = h.HandleTypedMsg(ctx, msg, typed); err != nil {
				return err
			}
		}
	}
}

// Close implements Closer.
func (p *Pipe) Close() error {
	if closer, ok := p.ReadWriter.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
