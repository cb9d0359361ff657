package msgs

import (
	"context"
	"fmt"

	"github.com/golang/protobuf/proto"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
)

// Message Kinds
const (
	TypeIDKindEvent uint32 = 0x80000000
)

// TypeID Groups
const (
	GroupHub    uint32 = 0x00010000
	GroupCustom uint32 = 0x7f000000 // base group id for custom messages.
)

// TypeIDs
const (
	HubDataTypeID uint32 = TypeIDKindEvent | GroupHub | 0x0001
	HubDumpTypeID uint32 = TypeIDKindEvent | GroupHub | 0x0002
)

// SerializableMessage can be serialized over the wire.
type SerializableMessage interface {
	proto.Message
	TypeID() uint32
}

// TypeID implements SerializableMessage.
func (m *HubData) TypeID() uint32 { return HubDataTypeID }

// TypeID implements SerializableMessage.
func (m *HubDump) TypeID() uint32 { return HubDumpTypeID }

// MessageTypes are predefined mapping of type ID to messages.
var MessageTypes = map[uint32]func() SerializableMessage{
	HubDataTypeID: func() SerializableMessage { return &HubData{} },
	HubDumpTypeID: func() SerializableMessage { return &HubDump{} },
}

// ErrUnknownType indicates unknown type id.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

// TypedMsgHandler handles a decoded message.
type TypedMsgHandler interface {
	HandleTypedMsg(context.Context, SerializableMessage, *Typed) error
}

// HandleTypedMsgFunc is func form of TypedMsgHandler.
type HandleTypedMsgFunc func(context.Context, SerializableMessage, *Typed) error

// HandleTypedMsg implements TypedMsgHandler.
func (f HandleTypedMsgFunc) HandleTypedMsg(ctx context.Context, msg SerializableMessage, typed *Typed) error {
	return f(ctx, msg, typed)
}

// TypedFrom wraps a message into the envelope.
func TypedFrom(msg SerializableMessage, seq uint32) (*Typed, error) {
	data, err := proto.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return &Typed{TypeId: msg.TypeID(), Sequence: seq, Message: data}, nil
}

// Decode decodes the envelope into actual message.
func (m *Typed) Decode() (SerializableMessage, error) {
	newMsg, ok := MessageTypes[m.TypeId]
	if !ok {
		return nil, &ErrUnknownType{TypeID: m.TypeId}
	}
	msg := newMsg()
	if err := proto.Unmarshal(m.Message, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode encodes the envelope to bytes.
func (m *Typed) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// IsEvent determines if the message is an event.
func (m *Typed) IsEvent() bool {
	return m.TypeId&TypeIDMaskKind == TypeIDKindEvent
}

// DecodeTyped decodes bytes into Typed.
func DecodeTyped(data []byte) (*Typed, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	return &typed, nil
}
