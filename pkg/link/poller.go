package link

import (
	"io"
	"time"
)

// DefaultPollBuffer is the number of received bytes buffered by a Poller.
const DefaultPollBuffer = 1024

// Poller reads a stream in background so received bytes can be polled
// one at a time with a bounded wait.
type Poller struct {
	io.ReadWriter

	byteCh chan byte
	doneCh chan struct{}
	err    error
}

// NewPoller creates a Poller and starts reading from rw.
func NewPoller(rw io.ReadWriter) *Poller {
	p := &Poller{
		ReadWriter: rw,
		byteCh:     make(chan byte, DefaultPollBuffer),
		doneCh:     make(chan struct{}),
	}
	go p.readLoop()
	return p
}

func (p *Poller) readLoop() {
	defer close(p.doneCh)
	buf := make([]byte, 256)
	for {
		n, err := p.ReadWriter.Read(buf)
		for _, b := range buf[:n] {
			p.byteCh <- b
		}
		if err != nil {
			p.err = err
			return
		}
	}
}

// Poll waits up to timeout for a byte. Bytes received before the
// stream failed are returned before the error.
func (p *Poller) Poll(timeout time.Duration) (byte, bool, error) {
	select {
	case b := <-p.byteCh:
		return b, true, nil
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case b := <-p.byteCh:
		return b, true, nil
	case <-p.doneCh:
		select {
		case b := <-p.byteCh:
			return b, true, nil
		default:
		}
		return 0, false, p.err
	case <-timer.C:
		return 0, false, nil
	}
}
