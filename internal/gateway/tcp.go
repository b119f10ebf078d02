package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/rs/zerolog/log"

	"github.com/Fangzx-code/TCP-IP/internal/room"
)

const maxLineSize = 64 * 1024

// tcpTransport frames records as newline-delimited lines over a raw TCP
// connection.
type tcpTransport struct {
	conn    net.Conn
	scanner *bufio.Scanner
}

func newTCPTransport(conn net.Conn) *tcpTransport {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 1024), maxLineSize)
	return &tcpTransport{conn: conn, scanner: scanner}
}

func (t *tcpTransport) ReadMessage() ([]byte, error) {
	if !t.scanner.Scan() {
		if err := t.scanner.Err(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return t.scanner.Bytes(), nil
}

func (t *tcpTransport) WriteMessage(data []byte) error {
	framed := make([]byte, 0, len(data)+1)
	framed = append(framed, data...)
	framed = append(framed, '\n')
	_, err := t.conn.Write(framed)
	return err
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

// TCPServer accepts game connections and hands each one to a session
// goroutine.
type TCPServer struct {
	addr    string
	room    *room.Room
	manager *Manager
}

func NewTCPServer(addr string, rm *room.Room, manager *Manager) *TCPServer {
	return &TCPServer{addr: addr, room: rm, manager: manager}
}

// Listen runs the accept loop until the context is cancelled. Listener
// failure is the one fatal error in the system; per-connection failures are
// handled by the sessions themselves.
func (s *TCPServer) Listen(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	log.Info().Str("addr", s.addr).Msg("game server listening")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		session := NewSession(newTCPTransport(conn), conn.RemoteAddr().String(), s.room, s.manager)
		go session.Run()
	}
}
