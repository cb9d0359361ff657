package comm

import "encoding/binary"

// Frame type tags. Inbound and outbound tags share values
// where the direction disambiguates them.
const (
	TypeAck       byte = 0x06 // ASCII ack
	TypeRPC       byte = 0x11 // ASCII device control 1, host to hub
	TypeData      byte = 0x11 // ASCII device control 1, hub to host
	TypeSys       byte = 0x12 // ASCII device control 2
	TypeStore     byte = 0x13 // ASCII device control 3
	TypeDump      byte = 0x14
	TypeNak       byte = 0x15 // ASCII nak
	TypeBroadcast byte = 0x16

	FrameEnd byte = 0x0a // ASCII line feed
)

// System message codes.
const (
	SysStop    byte = 0
	SysReady   byte = 1
	SysAlive   byte = 2
	SysVersion byte = 3
)

// MaxFrameLen is the largest LEN an application frame can declare.
const MaxFrameLen = 254

// MaxPayloadLen is the largest payload carried by an application frame,
// leaving room for TYPE, SEQ and CHECKSUM.
const MaxPayloadLen = MaxFrameLen - 3

// Message is an application message carried by a frame.
type Message struct {
	Type    byte
	Payload []byte
	Seq     byte
}

// Body returns the frame body: TYPE, PAYLOAD, SEQ and CHECKSUM.
func (m *Message) Body() []byte {
	b := make([]byte, len(m.Payload)+3)
	b[0] = m.Type
	copy(b[1:], m.Payload)
	b[len(b)-2] = m.Seq
	b[len(b)-1] = XorChecksum(b[:len(b)-1])
	return b
}

// Bytes returns encoded bytes for sending.
func (m *Message) Bytes() []byte {
	body := m.Body()
	b := make([]byte, 0, len(body)+2)
	b = append(b, byte(len(body)))
	b = append(b, body...)
	return append(b, FrameEnd)
}

// IsControl indicates the tag is an ACK or NAK, which carry no checksum
// and bypass sequencing.
func IsControl(typ byte) bool {
	return typ == TypeAck || typ == TypeNak
}

// ControlFrame encodes an ACK or NAK for sequence seq.
func ControlFrame(typ, seq byte) []byte {
	return []byte{2, typ, seq, FrameEnd}
}

// AckFrame encodes a positive (ok) or negative acknowledgment.
func AckFrame(ok bool, seq byte) []byte {
	if ok {
		return ControlFrame(TypeAck, seq)
	}
	return ControlFrame(TypeNak, seq)
}

// DumpFrame encodes a bulk data dump. Dumps are not sequenced nor
// checksummed and use a 16-bit little-endian length split around the
// type tag: [LEN_LO][DUMP][LEN_HI][KIND][...DATA...][0x0A].
func DumpFrame(kind byte, data []byte) []byte {
	var length [2]byte
	binary.LittleEndian.PutUint16(length[:], uint16(len(data)+2))
	b := make([]byte, 0, len(data)+5)
	b = append(b, length[0], TypeDump, length[1], kind)
	b = append(b, data...)
	return append(b, FrameEnd)
}

// DecodeBody splits a checksummed frame body into a Message and verifies
// its checksum.
func DecodeBody(body []byte) (*Message, error) {
	if len(body) < 3 {
		return nil, ErrShortFrame
	}
	n := len(body)
	if XorChecksum(body[:n-1]) != body[n-1] {
		return nil, ErrChecksum
	}
	msg := &Message{Type: body[0], Seq: body[n-2]}
	if n > 3 {
		msg.Payload = append([]byte(nil), body[1:n-2]...)
	}
	return msg, nil
}
