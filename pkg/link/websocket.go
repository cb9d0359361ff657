package link

import (
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/golang/glog"
	"golang.org/x/net/websocket"
)

// WebsocketListener serves a websocket endpoint. Clients wait until
// accepted.
type WebsocketListener struct {
	listener net.Listener
	connCh   chan *wsConn
}

type wsConn struct {
	*websocket.Conn
	closed chan struct{}
	once   sync.Once
}

func (c *wsConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return c.Conn.Close()
}

// ListenWebsocket listens on addr and serves websocket clients on path.
func ListenWebsocket(addr, path string) (*WebsocketListener, error) {
	if path == "" {
		path = "/"
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	l := &WebsocketListener{listener: ln, connCh: make(chan *wsConn)}
	mux := http.NewServeMux()
	mux.Handle(path, websocket.Handler(l.serve))
	go func() {
		if err := http.Serve(ln, mux); err != nil {
			glog.V(1).Infof("websocket server on %s stopped: %v", ln.Addr(), err)
		}
	}()
	glog.Infof("waiting for host on ws://%s%s", ln.Addr(), path)
	return l, nil
}

func (l *WebsocketListener) serve(ws *websocket.Conn) {
	ws.PayloadType = websocket.BinaryFrame
	conn := &wsConn{Conn: ws, closed: make(chan struct{})}
	l.connCh <- conn
	<-conn.closed
}

// Addr returns the listening address.
func (l *WebsocketListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Accept waits for a client.
func (l *WebsocketListener) Accept() (io.ReadWriteCloser, error) {
	conn := <-l.connCh
	glog.Infof("host connected from %s", conn.Request().RemoteAddr)
	return conn, nil
}

// Close stops listening.
func (l *WebsocketListener) Close() error {
	return l.listener.Close()
}
