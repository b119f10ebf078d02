package gateway

import (
	"bytes"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Fangzx-code/TCP-IP/internal/protocol"
	"github.com/Fangzx-code/TCP-IP/internal/room"
)

// transport carries one framed record at a time over a persistent connection.
// The TCP transport frames by newline, the WebSocket transport by text frame.
type transport interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Session is the per-connection loop. It decodes inbound actions, gates them
// on registration, dispatches into the room, and owns the disconnect cleanup
// for its connection. Writes are serialized so broadcasts and direct replies
// never interleave on the wire.
type Session struct {
	id      uuid.UUID
	remote  string
	conn    transport
	room    *room.Room
	manager *Manager

	writeMu    sync.Mutex
	name       string
	registered bool
}

// NewSession wraps a connection in a session with a generated session ID.
func NewSession(conn transport, remote string, rm *room.Room, manager *Manager) *Session {
	return &Session{
		id:      uuid.New(),
		remote:  remote,
		conn:    conn,
		room:    rm,
		manager: manager,
	}
}

// Run executes the session loop until the peer disconnects. A read error or
// end-of-stream is a departure, not a failure: the participant is removed,
// everyone else is notified, and the room keeps going.
func (s *Session) Run() {
	defer s.close()

	log.Info().
		Str("session_id", s.id.String()).
		Str("remote", s.remote).
		Msg("client connected")

	if err := s.Send(protocol.Welcome("welcome! register a display name to join")); err != nil {
		return
	}

	for {
		data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		line := bytes.TrimSpace(data)
		if len(line) == 0 {
			continue
		}

		msg, err := protocol.DecodeClientMessage(line)
		if err != nil {
			// Protocol violations are dropped silently; the connection stays open.
			log.Debug().
				Err(err).
				Str("session_id", s.id.String()).
				Msg("dropping undecodable message")
			continue
		}

		s.dispatch(msg)
	}
}

// dispatch routes one decoded action. Before registration only register is
// honored; everything else is ignored. After registration, out-of-phase and
// invalid actions come back from the room as errors and are answered with an
// explicit error reply to this connection only.
func (s *Session) dispatch(msg protocol.ClientMessage) {
	if !s.registered {
		if msg.Action != protocol.ActionRegister {
			return
		}
		// Register with the manager first so the join broadcast reaches
		// this session too.
		s.manager.Register(s)
		s.name = s.room.Join(s.id, msg.Name)
		s.registered = true
		return
	}

	switch msg.Action {
	case protocol.ActionRegister:
		s.replyError("you are already registered")
	case protocol.ActionReady:
		if err := s.room.Ready(s.id); err != nil {
			s.replyError(err.Error())
		}
	case protocol.ActionVote:
		if err := s.room.Vote(s.id, msg.Mode); err != nil {
			s.replyError(err.Error())
		}
	case protocol.ActionTriggerDraw:
		label, err := s.room.TriggerDraw(s.id)
		if err != nil {
			s.replyError(err.Error())
			return
		}
		if err := s.Send(protocol.DrawResult(label)); err != nil {
			log.Debug().Err(err).Str("session_id", s.id.String()).Msg("failed to send draw result")
		}
	case protocol.ActionReplay:
		if err := s.room.Replay(s.id); err != nil {
			s.replyError(err.Error())
		}
	}
}

// Send serializes and writes one message to this session's peer.
func (s *Session) Send(msg protocol.ServerMessage) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return s.write(data)
}

func (s *Session) write(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(data)
}

func (s *Session) replyError(message string) {
	if err := s.Send(protocol.Error(message)); err != nil {
		log.Debug().Err(err).Str("session_id", s.id.String()).Msg("failed to send error reply")
	}
}

func (s *Session) close() {
	if s.registered {
		s.room.Leave(s.id)
	}
	s.manager.Unregister(s.id)
	if err := s.conn.Close(); err != nil {
		log.Debug().Err(err).Str("session_id", s.id.String()).Msg("error closing connection")
	}
	log.Info().
		Str("session_id", s.id.String()).
		Str("player", s.name).
		Msg("client disconnected")
}
