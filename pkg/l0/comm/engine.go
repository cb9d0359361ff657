package comm

import (
	"io"
	"time"

	"github.com/golang/glog"

	fx "github.com/brickrail/trainhub/pkg/framework"
)

// MessageHandler is called when an application message is accepted.
type MessageHandler interface {
	HandleMessage(*Message) error
}

// HandleMessageFunc is func type of MessageHandler.
type HandleMessageFunc func(*Message) error

// HandleMessage implements MessageHandler.
func (f HandleMessageFunc) HandleMessage(msg *Message) error {
	return f(msg)
}

// Defaults of Engine.
const (
	DefaultInputTimeout    = 200 * time.Millisecond
	DefaultOutputTimeout   = 800 * time.Millisecond
	DefaultMaxAliveRetries = 5
)

// Engine is the hub side of the protocol. It turns received bytes into
// acknowledged, ordered messages and delivers outbound messages with
// retransmission, one at a time.
//
// Engine is not safe for concurrent use, it's driven by a single loop.
type Engine struct {
	Writer          io.Writer
	Handler         MessageHandler
	InputTimeout    time.Duration
	OutputTimeout   time.Duration
	MaxAliveRetries int

	nextInputID  byte
	nextOutputID byte

	parser      Parser
	inputWatch  *fx.Stopwatch
	pending     []byte
	queue       [][]byte
	retries     int
	outputWatch *fx.Stopwatch
}

// NewEngine creates an Engine.
func NewEngine(w io.Writer, clock fx.Clock) *Engine {
	return &Engine{
		Writer:          w,
		InputTimeout:    DefaultInputTimeout,
		OutputTimeout:   DefaultOutputTimeout,
		MaxAliveRetries: DefaultMaxAliveRetries,
		inputWatch:      fx.NewStopwatch(clock),
		outputWatch:     fx.NewStopwatch(clock),
	}
}

// Send stamps the payload with the next output sequence number and
// transmits it, or queues it while another message awaits its ACK.
func (e *Engine) Send(payload []byte) error {
	if len(payload) < 1 || len(payload)+2 > MaxFrameLen {
		return ErrFrameTooLong
	}
	msg := Message{Type: payload[0], Payload: payload[1:], Seq: e.nextOutputID}
	e.nextOutputID++
	data := msg.Bytes()
	if e.pending != nil {
		e.queue = append(e.queue, data)
		glog.V(2).Infof("queued seq %d behind %d (%d queued)", msg.Seq, e.PendingSeq(), len(e.queue))
		return nil
	}
	return e.transmit(data)
}

// EmitData sends a DATA message.
func (e *Engine) EmitData(data []byte) error {
	return e.Send(append([]byte{TypeData}, data...))
}

// EmitSys sends a SYS message with code.
func (e *Engine) EmitSys(code byte, data ...byte) error {
	return e.Send(append([]byte{TypeSys, code}, data...))
}

// Dump writes a dump frame immediately. Dumps bypass sequencing.
func (e *Engine) Dump(kind byte, data []byte) error {
	if len(data)+2 > 0xffff {
		return ErrFrameTooLong
	}
	_, err := e.Writer.Write(DumpFrame(kind, data))
	return err
}

// Pending indicates a message is awaiting acknowledgment.
func (e *Engine) Pending() bool {
	return e.pending != nil
}

// PendingSeq returns the sequence number of the pending message.
func (e *Engine) PendingSeq() byte {
	if e.pending == nil {
		return 0
	}
	return e.pending[len(e.pending)-3]
}

// Queued returns the number of messages waiting behind the pending one.
func (e *Engine) Queued() int {
	return len(e.queue)
}

// Retries returns the retransmission count of the pending message.
func (e *Engine) Retries() int {
	return e.retries
}

// OnByte consumes one received byte. The error is from the
// MessageHandler or from writing to the link.
func (e *Engine) OnByte(b byte) error {
	e.inputWatch.Reset()
	body, ok := e.parser.Parse(b)
	if !ok {
		return nil
	}
	glog.V(3).Infof("frame % x", body)
	return e.accept(body)
}

// CheckInputTimeout abandons a frame which stopped receiving bytes and
// asks the peer to send it again.
func (e *Engine) CheckInputTimeout() error {
	if !e.parser.Receiving() || e.inputWatch.Elapsed() <= e.InputTimeout {
		return nil
	}
	glog.Warningf("input timeout, discarding % x", e.parser.Buffered())
	e.parser.Reset()
	return e.ack(false, 0)
}

// CheckOutputTimeout retransmits the pending message if it wasn't
// acknowledged in time. Failing to deliver the liveness message
// is fatal.
func (e *Engine) CheckOutputTimeout() error {
	if e.pending == nil || e.outputWatch.Elapsed() <= e.OutputTimeout {
		return nil
	}
	glog.Warningf("output timeout, seq %d", e.PendingSeq())
	if err := e.retry(); err != nil {
		return err
	}
	if e.pendingIsAlive() && e.retries > e.MaxAliveRetries {
		return ErrLinkDead
	}
	return nil
}

func (e *Engine) accept(body []byte) error {
	if len(body) == 0 {
		glog.Warning("empty frame")
		return e.ack(false, 0)
	}
	switch body[0] {
	case TypeAck:
		return e.handleAck(body)
	case TypeNak:
		return e.handleNak(body)
	}

	if len(body) < 3 {
		glog.Warningf("short frame % x", body)
		return e.ack(false, 0)
	}
	checksum, inputID := body[len(body)-1], body[len(body)-2]
	if inputID == e.nextInputID-1 {
		glog.V(1).Infof("repeated input %d", inputID)
		return e.ack(true, inputID)
	}
	if expected := XorChecksum(body[:len(body)-1]); checksum != expected || inputID != e.nextInputID {
		glog.Warningf("rejected seq %d (expect %d), checksum %02x (expect %02x)",
			inputID, e.nextInputID, checksum, expected)
		return e.ack(false, inputID)
	}
	if err := e.ack(true, inputID); err != nil {
		return err
	}
	e.nextInputID++
	msg := &Message{Type: body[0], Seq: inputID}
	if len(body) > 3 {
		msg.Payload = body[1 : len(body)-2]
	}
	if h := e.Handler; h != nil {
		return h.HandleMessage(msg)
	}
	return nil
}

func (e *Engine) handleAck(body []byte) error {
	if e.pending == nil {
		glog.Warning("got ACK without sending anything")
		return nil
	}
	if len(body) < 2 || body[len(body)-1] != e.PendingSeq() {
		glog.Warningf("ACK % x doesn't match pending seq %d", body, e.PendingSeq())
		return nil
	}
	e.pending, e.retries = nil, 0
	if len(e.queue) == 0 {
		return nil
	}
	next := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	return e.transmit(next)
}

func (e *Engine) handleNak(body []byte) error {
	if e.pending == nil {
		glog.Warning("got NAK without sending anything")
		return nil
	}
	if len(body) < 2 || body[len(body)-1] != e.PendingSeq() {
		// expected after an input timeout on the peer, it didn't get the seq.
		glog.V(1).Infof("NAK seq mismatch, pending %d", e.PendingSeq())
	}
	return e.retry()
}

func (e *Engine) transmit(data []byte) error {
	e.pending, e.retries = data, 0
	e.outputWatch.Reset()
	glog.V(2).Infof("send % x", data)
	_, err := e.Writer.Write(data)
	return err
}

func (e *Engine) retry() error {
	glog.V(1).Infof("retrying seq %d", e.PendingSeq())
	e.outputWatch.Reset()
	e.retries++
	_, err := e.Writer.Write(e.pending)
	return err
}

func (e *Engine) ack(ok bool, seq byte) error {
	_, err := e.Writer.Write(AckFrame(ok, seq))
	return err
}

func (e *Engine) pendingIsAlive() bool {
	return len(e.pending) > 3 && e.pending[1] == TypeSys && e.pending[2] == SysAlive
}
