package comm

import "encoding/binary"

// Parser assembles frames from bytes received one at a time.
//
// The first byte of a frame is its length. Bytes are buffered until the
// declared length is reached and the following byte is the terminator.
// A terminator-valued byte inside the body is plain data. When the byte
// after a full body isn't the terminator, it's buffered anyway and the
// frame never completes: recovery is left to the input timeout.
type Parser struct {
	// DumpFrames enables the 16-bit length used by dump frames, which
	// only the hub sends.
	DumpFrames bool

	receiving bool
	wide      bool
	msgLen    int
	buf       []byte
}

// Receiving indicates a frame is partially assembled.
func (p *Parser) Receiving() bool {
	return p.receiving
}

// Buffered returns the bytes of the partially assembled frame.
func (p *Parser) Buffered() []byte {
	return p.buf
}

// Reset discards any partially assembled frame.
func (p *Parser) Reset() {
	p.receiving, p.wide, p.msgLen, p.buf = false, false, 0, nil
}

// Parse consumes one byte and returns the frame body once complete.
func (p *Parser) Parse(b byte) (body []byte, ok bool) {
	if !p.receiving {
		p.receiving, p.msgLen, p.buf = true, int(b), make([]byte, 0, int(b))
		return nil, false
	}
	if p.DumpFrames && !p.wide && len(p.buf) == 1 && p.buf[0] == TypeDump {
		p.wide = true
		p.msgLen = int(binary.LittleEndian.Uint16([]byte{byte(p.msgLen), b}))
		return nil, false
	}
	if len(p.buf) == p.msgLen && b == FrameEnd {
		body = p.buf
		p.Reset()
		return body, true
	}
	p.buf = append(p.buf, b)
	return nil, false
}
