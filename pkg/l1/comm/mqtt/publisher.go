package mqtt

import (
	"context"
	"encoding/json"

	"github.com/golang/glog"

	"github.com/brickrail/trainhub/pkg/l1"
	"github.com/brickrail/trainhub/pkg/l1/comm"
	"github.com/brickrail/trainhub/pkg/l1/msgs"
)

// Publisher implements l1.Publisher. It keeps the retained meta topic
// of the hub and publishes events to the events topic.
type Publisher struct {
	Queue *Queue
	Info  l1.HubInfo

	meta []byte
	pipe *comm.Pipe
}

// NewPublisher creates a Publisher.
func NewPublisher(brokerURL string, info l1.HubInfo) (*Publisher, error) {
	meta, err := json.Marshal(&info)
	if err != nil {
		return nil, err
	}
	opts, topicPrefix, err := ClientOptionsFromURL(brokerURL)
	if err != nil {
		return nil, err
	}
	opts.SetBinaryWill(topicPrefix+HubTopic(info.Name, MetaTopic), nil, 1, true)
	if opts.ClientID == "" {
		opts.SetClientID("trainhub:" + info.Name)
	}
	p := &Publisher{
		Queue: NewQueue(opts, topicPrefix),
		Info:  info,
		meta:  meta,
	}
	p.Queue.OnConnect = p.announce
	p.pipe = comm.NewPipe(NewPacketReadWriter(p.Queue).ForPublisher(info.Name))
	return p, nil
}

// SendEvent implements l1.Publisher.
func (p *Publisher) SendEvent(msg msgs.SerializableMessage) error {
	return p.pipe.SendEvent(msg)
}

// Run implements Runnable. The meta is cleared on exit.
func (p *Publisher) Run(ctx context.Context) error {
	if err := Wait(p.Queue.Connect(), DefaultTimeout); err != nil {
		return err
	}
	<-ctx.Done()
	if err := Wait(p.Queue.PubWith(HubTopic(p.Info.Name, MetaTopic), nil, 1, true), DefaultTimeout); err != nil {
		glog.Warningf("clear meta of %s: %v", p.Info.Name, err)
	}
	p.Queue.Close()
	return ctx.Err()
}

func (p *Publisher) announce(q *Queue) {
	glog.Infof("announce hub %s", p.Info.Name)
	q.PubWith(HubTopic(p.Info.Name, MetaTopic), p.meta, 1, true)
}
