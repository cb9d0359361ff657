// Package telemetry publishes what a hub's device reports to the host as
// telemetry events, so monitors can follow a layout without sharing the
// serial link.
package telemetry

import (
	"context"

	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l0/comm"
	"github.com/brickrail/trainhub/pkg/l1"
	"github.com/brickrail/trainhub/pkg/l1/msgs"
)

// DefaultBuffer is the number of events queued for publishing.
const DefaultBuffer = 64

// Mirror decorates a comm.Notifier. Everything is delivered to the
// wrapped Notifier first, then queued for publishing. Events are dropped
// when the queue is full so the control loop never waits on a broker.
type Mirror struct {
	comm.Notifier
	Hub       string
	Publisher l1.Publisher

	eventCh chan msgs.SerializableMessage
}

// NewMirror creates a Mirror.
func NewMirror(n comm.Notifier, hub string, pub l1.Publisher) *Mirror {
	return &Mirror{
		Notifier:  n,
		Hub:       hub,
		Publisher: pub,
		eventCh:   make(chan msgs.SerializableMessage, DefaultBuffer),
	}
}

// EmitData implements comm.Notifier.
func (m *Mirror) EmitData(data []byte) error {
	err := m.Notifier.EmitData(data)
	m.queue(&msgs.HubData{Hub: m.Hub, Data: append([]byte(nil), data...)})
	return err
}

// Dump implements comm.Notifier.
func (m *Mirror) Dump(kind byte, data []byte) error {
	err := m.Notifier.Dump(kind, data)
	m.queue(&msgs.HubDump{Hub: m.Hub, Kind: uint32(kind), Data: append([]byte(nil), data...)})
	return err
}

// Run implements Runnable. It publishes queued events until ctx is done.
func (m *Mirror) Run(ctx context.Context) error {
	for {
		select {
		case msg := <-m.eventCh:
			if err := m.Publisher.SendEvent(msg); err != nil {
				glog.Warningf("publish %T: %v", msg, err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (m *Mirror) queue(msg msgs.SerializableMessage) {
	select {
	case m.eventCh <- msg:
	default:
		glog.V(1).Infof("telemetry queue full, drop %T", msg)
	}
}
