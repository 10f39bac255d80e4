package server

import (
	"encoding/json"
	"fmt"

	"github.com/zeusync/runhole/internal/core/input"
	"github.com/zeusync/runhole/internal/core/render"
	"github.com/zeusync/runhole/internal/core/session"
)

// Inbound command types.
const (
	CommandSteer = "steer"
	CommandLook  = "look"
	CommandRoll  = "roll"
	CommandQuit  = "quit"
	// CommandHello opens a QUIC stream and carries the token.
	CommandHello = "hello"
)

// Outbound frame types.
const (
	FrameWelcome = "welcome"
	FrameTick    = "tick"
	FrameOver    = "over"
)

// Inbound is one client message. Only the fields of its Type are read.
type Inbound struct {
	Type string `json:"type"`

	Left     bool `json:"left,omitempty"`
	Right    bool `json:"right,omitempty"`
	Forward  bool `json:"forward,omitempty"`
	Backward bool `json:"backward,omitempty"`
	Jump     bool `json:"jump,omitempty"`
	Sneak    bool `json:"sneak,omitempty"`

	Yaw   float64 `json:"yaw,omitempty"`
	Pitch float64 `json:"pitch,omitempty"`

	Clockwise bool `json:"clockwise,omitempty"`

	Token string `json:"token,omitempty"`
}

// DecodeCommand parses a client message into an input command.
func DecodeCommand(data []byte) (input.Command, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	return msg.Command()
}

// DecodeHello parses the first message of a QUIC stream.
func DecodeHello(data []byte) (Inbound, error) {
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if msg.Type != CommandHello {
		return Inbound{}, fmt.Errorf("%w: expected %s, got %q", ErrInvalidMessage, CommandHello, msg.Type)
	}
	return msg, nil
}

func (m Inbound) Command() (input.Command, error) {
	switch m.Type {
	case CommandSteer:
		return input.Steer{
			Left:     m.Left,
			Right:    m.Right,
			Forward:  m.Forward,
			Backward: m.Backward,
			Jump:     m.Jump,
			Sneak:    m.Sneak,
		}, nil
	case CommandLook:
		return input.Look{Yaw: m.Yaw, Pitch: m.Pitch}, nil
	case CommandRoll:
		return input.Roll{Clockwise: m.Clockwise}, nil
	case CommandQuit:
		return input.Quit{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, m.Type)
	}
}

// Outbound is one server frame.
type Outbound struct {
	Type     string                 `json:"type"`
	Session  string                 `json:"session,omitempty"`
	Snapshot *session.Snapshot      `json:"snapshot,omitempty"`
	Render   *render.Changes        `json:"render,omitempty"`
	Stats    *session.StatsSnapshot `json:"stats,omitempty"`
}
