package mqtt

import (
	"context"
	"encoding/json"
	"io"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l1"
	"github.com/brickrail/trainhub/pkg/l1/comm"
	"github.com/brickrail/trainhub/pkg/l1/msgs"
)

// DefaultDiscoverTimeout defines the default timeout value of discovery.
const DefaultDiscoverTimeout = 500 * time.Millisecond

// Monitor discovers hubs and receives their events.
type Monitor struct {
	DiscoverTimeout time.Duration

	options     *paho.ClientOptions
	topicPrefix string
}

// NewMonitor creates a Monitor.
func NewMonitor(brokerURL string) (*Monitor, error) {
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		DiscoverTimeout: DefaultDiscoverTimeout,
		options:         opts,
		topicPrefix:     topicPrefix,
	}, nil
}

// ParseMeta decodes the retained meta of a hub. An empty payload means
// the hub is gone.
func ParseMeta(payload []byte) (info l1.HubInfo, ok bool) {
	if len(payload) == 0 {
		return
	}
	if err := json.Unmarshal(payload, &info); err != nil {
		glog.V(1).Infof("invalid meta: %v", err)
		return
	}
	return info, info.IsValid()
}

// Discover collects the hubs announced within DiscoverTimeout.
func (m *Monitor) Discover(ctx context.Context) ([]l1.HubInfo, error) {
	q := NewQueue(m.options, m.topicPrefix)
	if err := Wait(q.Connect(), DefaultTimeout); err != nil {
		return nil, err
	}
	defer q.Close()
	infoCh := make(chan l1.HubInfo, 16)
	sub := q.Sub(HubTopic("+", MetaTopic), func(_ string, payload []byte) {
		if info, ok := ParseMeta(payload); ok {
			select {
			case infoCh <- info:
			case <-time.After(time.Second):
			}
		}
	})
	defer sub.Close()

	dur := m.DiscoverTimeout
	if dur == 0 {
		dur = DefaultDiscoverTimeout
	}
	timeout := time.After(dur)
	var hubs []l1.HubInfo
	for {
		select {
		case info := <-infoCh:
			hubs = append(hubs, info)
		case <-timeout:
			return hubs, nil
		case <-ctx.Done():
			return hubs, ctx.Err()
		}
	}
}

// Watch delivers events of hub to handler until ctx is done. Use + as
// hub to watch all hubs.
func (m *Monitor) Watch(ctx context.Context, hub string, handler msgs.TypedMsgHandler) error {
	q := NewQueue(m.options, m.topicPrefix)
	if err := Wait(q.Connect(), DefaultTimeout); err != nil {
		return err
	}
	defer q.Close()
	rw := NewPacketReadWriter(q).ForMonitor(hub)
	pipe := comm.NewPipe(rw)
	pipe.Handler = handler
	go rw.Run(ctx)
	err := pipe.Run(ctx)
	if err == io.EOF {
		err = ctx.Err()
	}
	return err
}
