package mqtt

import (
	"context"
	"io"
	"sync"
)

// Topics of a hub, relative to the topic prefix.
const (
	MetaTopic   = "meta"
	EventsTopic = "events"
)

// HubTopic returns the topic of a hub.
func HubTopic(hub, topic string) string {
	return hub + "/" + topic
}

// ReadWriter implements comm.PacketReadWriter over topics.
type ReadWriter struct {
	Queue    *Queue
	SubTopic string
	PubTopic string

	packetCh  chan []byte
	doneCh    chan struct{}
	closeOnce sync.Once
}

// NewPacketReadWriter creates the ReadWriter.
func NewPacketReadWriter(q *Queue) *ReadWriter {
	return &ReadWriter{
		Queue:    q,
		packetCh: make(chan []byte, 16),
		doneCh:   make(chan struct{}),
	}
}

// WithTopics specifies the topics.
func (p *ReadWriter) WithTopics(sub, pub string) *ReadWriter {
	p.SubTopic, p.PubTopic = sub, pub
	return p
}

// ForPublisher publishes the events of hub.
func (p *ReadWriter) ForPublisher(hub string) *ReadWriter {
	return p.WithTopics("", HubTopic(hub, EventsTopic))
}

// ForMonitor receives the events of hub, which can be + for all hubs.
func (p *ReadWriter) ForMonitor(hub string) *ReadWriter {
	return p.WithTopics(HubTopic(hub, EventsTopic), "")
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	select {
	case pkt := <-p.packetCh:
		return pkt, nil
	case <-p.doneCh:
		return nil, io.EOF
	}
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	return Wait(p.Queue.Pub(p.PubTopic, pkt), DefaultTimeout)
}

// Run implements Runnable.
func (p *ReadWriter) Run(ctx context.Context) error {
	if p.SubTopic != "" {
		sub := p.Queue.Sub(p.SubTopic, p.handleMsg)
		defer sub.Close()
	}
	select {
	case <-ctx.Done():
	case <-p.doneCh:
	}
	p.Close()
	return ctx.Err()
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	p.closeOnce.Do(func() { close(p.doneCh) })
	return nil
}

func (p *ReadWriter) handleMsg(_ string, payload []byte) {
	select {
	case p.packetCh <- payload:
	case <-p.doneCh:
	}
}
