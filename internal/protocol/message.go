package protocol

import (
	"encoding/json"
	"fmt"
)

// Action identifies a client request type.
type Action string

const (
	ActionRegister    Action = "register"
	ActionReady       Action = "ready"
	ActionVote        Action = "vote"
	ActionTriggerDraw Action = "trigger_draw"
	ActionReplay      Action = "replay"
)

// Mode is a game mode a client can vote for.
type Mode string

const (
	ModeAuto   Mode = "auto"
	ModeManual Mode = "manual"
)

// ClientMessage is one decoded inbound record.
type ClientMessage struct {
	Action Action `json:"action"`
	Name   string `json:"name,omitempty"`
	Mode   Mode   `json:"mode,omitempty"`
}

// DecodeClientMessage parses and validates a single newline-delimited record.
// Unknown actions and malformed payloads are rejected here so callers can
// treat any returned error as a protocol violation.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("malformed message: %w", err)
	}

	switch msg.Action {
	case ActionRegister:
		if msg.Name == "" {
			msg.Name = "Player"
		}
	case ActionVote:
		if msg.Mode != ModeAuto && msg.Mode != ModeManual {
			return ClientMessage{}, fmt.Errorf("invalid vote mode %q", msg.Mode)
		}
	case ActionReady, ActionTriggerDraw, ActionReplay:
	default:
		return ClientMessage{}, fmt.Errorf("unknown action %q", msg.Action)
	}

	return msg, nil
}

// Status identifies a server reply or broadcast type.
type Status string

const (
	StatusWelcome    Status = "welcome"
	StatusInfo       Status = "info"
	StatusError      Status = "error"
	StatusDrawResult Status = "draw_result"
	StatusAutoUpdate Status = "auto_update"
)

// ServerMessage is one outbound record.
type ServerMessage struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Prize   string `json:"prize,omitempty"`
}

// Encode marshals the message to its wire form without a record delimiter;
// each transport appends its own framing.
func (m ServerMessage) Encode() ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal server message: %w", err)
	}
	return data, nil
}

func Welcome(message string) ServerMessage {
	return ServerMessage{Status: StatusWelcome, Message: message}
}

func Info(message string) ServerMessage {
	return ServerMessage{Status: StatusInfo, Message: message}
}

func Error(message string) ServerMessage {
	return ServerMessage{Status: StatusError, Message: message}
}

func DrawResult(prize string) ServerMessage {
	return ServerMessage{Status: StatusDrawResult, Prize: prize}
}

func AutoUpdate(message string) ServerMessage {
	return ServerMessage{Status: StatusAutoUpdate, Message: message}
}
