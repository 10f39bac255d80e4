package session

import (
	"github.com/zeusync/runhole/internal/core/orient"
	"github.com/zeusync/runhole/internal/core/voxel"
)

// Event types published on the session topic.
const (
	EventCollision       = "body.collision"
	EventWallPassed      = "wall.passed"
	EventHoleEntered     = "hole.entered"
	EventHoleExited      = "hole.exited"
	EventTraceProgress   = "trace.progress"
	EventTraceCompleted  = "trace.completed"
	EventMoved           = "body.moved"
	EventRotated         = "body.rotated"
	EventBoostStarted    = "boost.started"
	EventContinuousBoost = "boost.continuous"
	EventGameOver        = "game.over"
)

type Collision struct {
	Cells []voxel.Cell `json:"cells"`
}

type WallPassed struct {
	Depth   int  `json:"depth"`
	Perfect bool `json:"perfect"`
}

type HoleCrossing struct {
	Depth float64 `json:"depth"`
}

type TraceProgress struct {
	Wall   int `json:"wall"`
	Traced int `json:"traced"`
	Total  int `json:"total"`
}

type TraceCompleted struct {
	Wall int `json:"wall"`
}

type Moved struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

type Rotated struct {
	Turn        orient.Turn        `json:"turn"`
	Orientation orient.Orientation `json:"orientation"`
}

type GameOver struct {
	End  EndType `json:"end"`
	Tick uint64  `json:"tick"`
}

// Notification is one published event as carried in a Snapshot.
type Notification struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}
