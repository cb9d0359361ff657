package comm

import (
	"errors"
	"fmt"
)

var (
	// ErrShortFrame indicates a frame body too short to carry a sequence
	// number and checksum.
	ErrShortFrame = errors.New("frame too short")
	// ErrChecksum indicates a checksum mismatch.
	ErrChecksum = errors.New("checksum mismatch")
	// ErrFrameTooLong indicates a payload doesn't fit into a frame.
	ErrFrameTooLong = errors.New("frame too long")
	// ErrLinkDead indicates the liveness message was not acknowledged
	// after the maximum number of retries, the peer is presumed gone.
	ErrLinkDead = errors.New("alive message timeout, link presumed dead")
	// ErrNoAck indicates the peer never acknowledged a message.
	ErrNoAck = errors.New("message not acknowledged")
)

// ProtocolError indicates a message which violates the protocol
// contract between host and hub, e.g. an unknown type tag. It is not
// a transmission error and can't be recovered by retransmission.
type ProtocolError struct {
	Type   byte
	Reason string
}

// Error implements error.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol violation (type 0x%02x): %s", e.Type, e.Reason)
}
