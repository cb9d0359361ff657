// Package stream frames packets on byte streams, e.g. a telemetry
// recording file.
package stream

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/golang/protobuf/proto"
)

// MaxPacketSize bounds the length accepted by ReadPacket.
const MaxPacketSize = 1 << 20

// ReadWriter implements PacketReadWriter.
// Each packet is prefixed by its length as a varint, the way delimited
// protobuf streams are written.
type ReadWriter struct {
	io.Writer
	reader *bufio.Reader
	closer io.Closer
}

// New creates a ReadWriter over s. s is closed by Close if it is an
// io.Closer.
func New(s io.ReadWriter) *ReadWriter {
	rw := &ReadWriter{Writer: s, reader: bufio.NewReader(s)}
	rw.closer, _ = s.(io.Closer)
	return rw
}

// ReadPacket implements PacketReader.
func (p *ReadWriter) ReadPacket() ([]byte, error) {
	size, err := binary.ReadUvarint(p.reader)
	if err != nil {
		return nil, err
	}
	if size > MaxPacketSize {
		return nil, io.ErrUnexpectedEOF
	}
	pkt := make([]byte, size)
	_, err = io.ReadFull(p.reader, pkt)
	return pkt, err
}

// WritePacket implements PacketWriter.
func (p *ReadWriter) WritePacket(pkt []byte) error {
	_, err := p.Write(append(proto.EncodeVarint(uint64(len(pkt))), pkt...))
	return err
}

// Close implements io.Closer.
func (p *ReadWriter) Close() error {
	if p.closer != nil {
		return p.closer.Close()
	}
	return nil
}
