// Package link opens the byte stream between a hub and its host.
package link

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"

	"github.com/tarm/serial"
	"golang.org/x/net/websocket"
)

// DefaultBaud is the baud rate of serial links.
const DefaultBaud = 115200

// ErrUnsupportedURL indicates an unknown link scheme.
var ErrUnsupportedURL = errors.New("unsupported link url")

// Open opens a link by URL:
//
//   serial:///dev/ttyACM0?baud=115200
//   ws://host:port/path          connect to a websocket server
//   ws+listen://:port/path       wait for one websocket client
//   stdio:
func Open(linkURL string) (io.ReadWriteCloser, error) {
	u, err := url.Parse(linkURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "serial":
		return openSerial(u)
	case "ws", "wss":
		return DialWebsocket(linkURL)
	case "ws+listen":
		l, err := ListenWebsocket(u.Host, u.Path)
		if err != nil {
			return nil, err
		}
		return l.Accept()
	case "stdio":
		return Stdio(), nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, linkURL)
}

func openSerial(u *url.URL) (io.ReadWriteCloser, error) {
	conf := &serial.Config{Name: u.Path, Baud: DefaultBaud}
	if conf.Name == "" {
		conf.Name = u.Opaque
	}
	if val := u.Query().Get("baud"); val != "" {
		baud, err := strconv.Atoi(val)
		if err != nil {
			return nil, fmt.Errorf("invalid baud %q: %w", val, err)
		}
		conf.Baud = baud
	}
	port, err := serial.OpenPort(conf)
	if err != nil {
		return nil, err
	}
	if err := port.Flush(); err != nil {
		port.Close()
		return nil, err
	}
	return port, nil
}

// DialWebsocket connects to a websocket server. Every write is sent as
// one binary frame.
func DialWebsocket(wsURL string) (io.ReadWriteCloser, error) {
	conn, err := websocket.Dial(wsURL, "", "http://localhost/")
	if err != nil {
		return nil, err
	}
	conn.PayloadType = websocket.BinaryFrame
	return conn, nil
}

type stdio struct {
	io.Reader
	io.Writer
}

func (s *stdio) Close() error {
	return nil
}

// Stdio uses stdin and stdout as the link.
func Stdio() io.ReadWriteCloser {
	return &stdio{Reader: os.Stdin, Writer: os.Stdout}
}
