package telemetry

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"

	fx "github.com/brickrail/trainhub/pkg/framework"
	"github.com/brickrail/trainhub/pkg/l1"
	"github.com/brickrail/trainhub/pkg/l1/comm"
	"github.com/brickrail/trainhub/pkg/l1/comm/mqtt"
	"github.com/brickrail/trainhub/pkg/l1/comm/stream"
	"github.com/brickrail/trainhub/pkg/l1/msgs"
)

// Sink is where the events of a hub go.
type Sink interface {
	l1.Publisher
	fx.Runnable
}

// Source delivers recorded or live events.
type Source interface {
	// Watch delivers events of hub to handler. Empty or + watches all hubs.
	Watch(ctx context.Context, hub string, handler msgs.TypedMsgHandler) error
}

// OpenSink opens a sink by URL:
//
//   mqtt://host:port/prefix  publishes to a MQTT broker
//   file:path                appends to a recording
func OpenSink(sinkURL string, info l1.HubInfo) (Sink, error) {
	u, err := url.Parse(sinkURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "mqtt", "tcp", "ssl", "ws", "wss":
		return mqtt.NewPublisher(sinkURL, info)
	case "file":
		return NewFileSink(filePath(u))
	}
	return nil, fmt.Errorf("unsupported telemetry URL %q", sinkURL)
}

// OpenSource opens a source by URL, see OpenSink.
func OpenSource(sourceURL string) (Source, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "mqtt", "tcp", "ssl", "ws", "wss":
		return mqtt.NewMonitor(sourceURL)
	case "file":
		return &FileSource{Path: filePath(u)}, nil
	}
	return nil, fmt.Errorf("unsupported telemetry URL %q", sourceURL)
}

func filePath(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Path
}

// FileSink records events to a file.
type FileSink struct {
	*comm.Pipe
	file *os.File
}

// NewFileSink creates or appends to a recording.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileSink{Pipe: comm.NewPipe(stream.New(f)), file: f}, nil
}

// Run implements Runnable. The file is closed when ctx is done.
func (s *FileSink) Run(ctx context.Context) error {
	<-ctx.Done()
	s.file.Close()
	return ctx.Err()
}

// FileSource replays a recording.
type FileSource struct {
	Path string
}

// Watch implements Source. It returns nil at the end of the recording.
func (s *FileSource) Watch(ctx context.Context, hub string, handler msgs.TypedMsgHandler) error {
	f, err := os.Open(s.Path)
	if err != nil {
		return err
	}
	pipe := comm.NewPipe(stream.New(f))
	pipe.Handler = FilterHub(hub, handler)
	if err = pipe.Run(ctx); err == io.EOF {
		err = nil
	}
	return err
}

// FilterHub passes events of hub only. Empty or + passes all.
func FilterHub(hub string, handler msgs.TypedMsgHandler) msgs.TypedMsgHandler {
	if hub == "" || hub == "+" {
		return handler
	}
	return msgs.HandleTypedMsgFunc(func(ctx context.Context, msg msgs.SerializableMessage, typed *msgs.Typed) error {
		if HubOf(msg) != hub {
			return nil
		}
		return handler.HandleTypedMsg(ctx, msg, typed)
	})
}

// HubOf returns the hub an event belongs to.
func HubOf(msg msgs.SerializableMessage) string {
	switch m := msg.(type) {
	case *msgs.HubData:
		return m.Hub
	case *msgs.HubDump:
		return m.Hub
	}
	return ""
}
