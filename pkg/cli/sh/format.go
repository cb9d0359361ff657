package sh

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/brickrail/trainhub/pkg/l0/comm"
)

// FormatEvent prints a message from the hub for display.
func FormatEvent(evt *comm.Event) string {
	switch evt.Type {
	case comm.TypeData:
		return fmt.Sprintf("DATA % x", evt.Payload)
	case comm.TypeDump:
		if len(evt.Payload) == 0 {
			return "DUMP"
		}
		return fmt.Sprintf("DUMP kind %d, %d bytes", evt.Payload[0], len(evt.Payload)-1)
	case comm.TypeSys:
		return "SYS " + formatSys(evt.Payload)
	}
	return fmt.Sprintf("%02x % x", evt.Type, evt.Payload)
}

func formatSys(payload []byte) string {
	if len(payload) == 0 {
		return "?"
	}
	switch code, data := payload[0], payload[1:]; code {
	case comm.SysStop:
		return "STOP"
	case comm.SysReady:
		return "READY"
	case comm.SysVersion:
		return "VERSION " + string(data)
	case comm.SysAlive:
		if len(data) < 4 {
			return fmt.Sprintf("ALIVE % x", data)
		}
		return fmt.Sprintf("ALIVE %dmV %dmA",
			binary.BigEndian.Uint16(data), binary.BigEndian.Uint16(data[2:]))
	default:
		return fmt.Sprintf("%d % x", code, data)
	}
}

// EventJSON is the JSON form of an event.
func EventJSON(evt *comm.Event) interface{} {
	return struct {
		Type    byte   `json:"type"`
		Seq     byte   `json:"seq"`
		Payload []byte `json:"payload"`
		Text    string `json:"text"`
	}{evt.Type, evt.Seq, evt.Payload, FormatEvent(evt)}
}

// ParseByte parses a decimal, 0x hex or 0b binary byte.
func ParseByte(s string) (byte, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid byte %q", s)
	}
	return byte(v), nil
}

// ParseBytes parses each argument with ParseByte. A single hex string
// like 0a1b2c is also accepted.
func ParseBytes(args []string) ([]byte, error) {
	if len(args) == 1 && len(args[0]) > 4 && !strings.HasPrefix(args[0], "0x") {
		var out []byte
		s := args[0]
		for i := 0; i+1 < len(s); i += 2 {
			v, err := strconv.ParseUint(s[i:i+2], 16, 8)
			if err != nil {
				return nil, fmt.Errorf("invalid hex %q", s)
			}
			out = append(out, byte(v))
		}
		if len(s)%2 != 0 {
			return nil, fmt.Errorf("odd length hex %q", s)
		}
		return out, nil
	}
	out := make([]byte, 0, len(args))
	for _, arg := range args {
		b, err := ParseByte(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
