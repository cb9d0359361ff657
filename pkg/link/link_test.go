package link

import (
	"errors"
	"io"
	"io/ioutil"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoller(t *testing.T) {
	r, w := io.Pipe()
	p := NewPoller(struct {
		io.Reader
		io.Writer
	}{r, ioutil.Discard})

	_, ok, err := p.Poll(10 * time.Millisecond)
	require.NoError(t, err)
	require.False(t, ok)

	go func() {
		w.Write([]byte{1, 2})
		w.CloseWithError(errors.New("gone"))
	}()
	for _, expected := range []byte{1, 2} {
		b, ok, err := p.Poll(time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, expected, b)
	}
	_, ok, err = p.Poll(time.Second)
	require.False(t, ok)
	require.EqualError(t, err, "gone")
}

func TestWebsocketLink(t *testing.T) {
	l, err := ListenWebsocket("127.0.0.1:0", "/link")
	require.NoError(t, err)
	defer l.Close()

	connCh := make(chan io.ReadWriteCloser, 1)
	go func() {
		conn, _ := l.Accept()
		connCh <- conn
	}()
	client, err := Open("ws://" + l.Addr().String() + "/link")
	require.NoError(t, err)
	defer client.Close()
	server := <-connCh
	defer server.Close()

	_, err = client.Write([]byte{4, 0x12, 0x01, 0x00, 0xec, 0x0a})
	require.NoError(t, err)
	p := NewPoller(server)
	var received []byte
	for len(received) < 6 {
		b, ok, err := p.Poll(time.Second)
		require.NoError(t, err)
		require.True(t, ok)
		received = append(received, b)
	}
	require.Equal(t, []byte{4, 0x12, 0x01, 0x00, 0xec, 0x0a}, received)
}

func TestOpenUnsupported(t *testing.T) {
	_, err := Open("carrier-pigeon://coop")
	require.True(t, errors.Is(err, ErrUnsupportedURL))
}
