package mqtt

import (
	"github.com/golang/glog"
)

// Defaults of Radio.
const (
	DefaultBeaconTopic = "beacon"
	DefaultRadioBuffer = 16
)

// Radio implements broadcast.Radio with a topic shared by all hubs.
// Beacons arriving while the buffer is full are dropped.
type Radio struct {
	Queue *Queue
	Topic string

	beaconCh chan []byte
	sub      *Subscription
}

// NewRadio subscribes to the beacon topic on q.
func NewRadio(q *Queue, topic string) *Radio {
	if topic == "" {
		topic = DefaultBeaconTopic
	}
	r := &Radio{
		Queue:    q,
		Topic:    topic,
		beaconCh: make(chan []byte, DefaultRadioBuffer),
	}
	r.sub = q.Sub(topic, r.handleBeacon)
	return r
}

// Broadcast implements broadcast.Radio. It doesn't wait for delivery.
func (r *Radio) Broadcast(beacon []byte) error {
	r.Queue.Pub(r.Topic, append([]byte(nil), beacon...))
	return nil
}

// Receive implements broadcast.Radio.
func (r *Radio) Receive() ([]byte, bool) {
	select {
	case beacon := <-r.beaconCh:
		return beacon, true
	default:
		return nil, false
	}
}

// Close unsubscribes the beacon topic.
func (r *Radio) Close() error {
	return r.sub.Close()
}

func (r *Radio) handleBeacon(_ string, payload []byte) {
	select {
	case r.beaconCh <- payload:
	default:
		glog.V(1).Infof("radio buffer full, drop beacon % x", payload)
	}
}
