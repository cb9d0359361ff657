package msgs

import "github.com/golang/protobuf/proto"

// Typed is the envelope of all messages.
type Typed struct {
	TypeId   uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *Typed) Reset()         { *m = Typed{} }
func (m *Typed) String() string { return proto.CompactTextString(m) }
func (*Typed) ProtoMessage()    {}

// HubData is a DATA message sent by a hub's device.
type HubData struct {
	Hub  string `protobuf:"bytes,1,opt,name=hub,proto3" json:"hub,omitempty"`
	Data []byte `protobuf:"bytes,2,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *HubData) Reset()         { *m = HubData{} }
func (m *HubData) String() string { return proto.CompactTextString(m) }
func (*HubData) ProtoMessage()    {}

// HubDump is a bulk dump sent by a hub's device.
type HubDump struct {
	Hub  string `protobuf:"bytes,1,opt,name=hub,proto3" json:"hub,omitempty"`
	Kind uint32 `protobuf:"varint,2,opt,name=kind,proto3" json:"kind,omitempty"`
	Data []byte `protobuf:"bytes,3,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *HubDump) Reset()         { *m = HubDump{} }
func (m *HubDump) String() string { return proto.CompactTextString(m) }
func (*HubDump) ProtoMessage()    {}
