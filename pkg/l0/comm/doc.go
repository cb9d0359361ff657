// Package comm provides L0 protocol support.
package comm

// L0 protocol is communicated between the hub firmware and the host
// controller over a single point-to-point byte stream (e.g. serial port
// or bluetooth UART) which has no framing, flow control or acknowledgment
// of its own.
//
// Application frames are length-prefixed and line-feed terminated:
//
//	[LEN][TYPE][...PAYLOAD...][SEQ][CHECKSUM][0x0A]
//
// LEN counts TYPE through CHECKSUM. CHECKSUM is the XOR-fold (seed 0xFF)
// of TYPE through SEQ. The terminator is not escaped: a frame is complete
// when LEN bytes were received and the next byte is the terminator.
//
// Each side keeps at most one application message in flight. Every
// accepted message is acknowledged with a control frame [2][ACK][SEQ][0x0A];
// corrupted or out-of-order messages are answered with [2][NAK][SEQ][0x0A]
// and retransmitted by the sender. A retransmission of the last accepted
// message is acknowledged again but not processed twice.
//
// Producer: hub firmware (Engine)
// Consumer: host controller (Host)
