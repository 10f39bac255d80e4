package input

import "github.com/zeusync/runhole/internal/core/orient"

// Frame is the set of logical signals the simulation consumes in one tick.
type Frame struct {
	MoveLeft            bool
	MoveRight           bool
	MoveForwardGesture  bool
	MoveBackwardGesture bool
	BoostHeld           bool
	// BoostPressed is true only on the tick boost goes from released to held.
	BoostPressed bool
	RollCW       bool
	RollCCW      bool
	Yaw          float64
	Pitch        float64
	Quit         bool

	// DX, DY is the lateral move to attempt. Zero while moves cool down.
	DX, DY int
	// Turns are the rotations to attempt, in order.
	Turns []orient.Turn
	Guide string
}

// HasMove reports whether the frame asks for a lateral move.
func (f Frame) HasMove() bool { return f.DX != 0 || f.DY != 0 }

type Settings struct {
	MoveCooldownTicks   int
	RotateCooldownTicks int
	GestureThreshold    float64
	GestureLerp         float64
}

func DefaultSettings() Settings {
	return Settings{
		MoveCooldownTicks:   2,
		RotateCooldownTicks: 4,
		GestureThreshold:    10,
		GestureLerp:         0.02,
	}
}

// Interpreter accumulates commands between ticks and produces one Frame per
// tick. It belongs to the simulation goroutine.
type Interpreter struct {
	cooldowns *Cooldowns
	gestures  *Gestures

	steer    Steer
	look     Look
	hasLook  bool
	roll     *Roll
	quit     bool
	boosting bool
}

func NewInterpreter(s Settings) *Interpreter {
	return &Interpreter{
		cooldowns: NewCooldowns(s.MoveCooldownTicks, s.RotateCooldownTicks),
		gestures:  NewGestures(s.GestureThreshold, s.GestureLerp),
	}
}

// Feed records a command for the next frame.
func (in *Interpreter) Feed(cmd Command) {
	switch c := cmd.(type) {
	case Steer:
		in.steer = c
	case Look:
		in.look = c
		in.hasLook = true
	case Roll:
		if in.roll == nil {
			r := c
			in.roll = &r
		}
	case Quit:
		in.quit = true
	}
}

// Next builds the frame for the current tick. Roll clicks arriving while
// rotations cool down are dropped.
func (in *Interpreter) Next() Frame {
	in.cooldowns.Tick()

	f := Frame{
		MoveLeft:            in.steer.Left,
		MoveRight:           in.steer.Right,
		MoveForwardGesture:  in.steer.Forward,
		MoveBackwardGesture: in.steer.Backward,
		BoostHeld:           in.steer.Jump,
		BoostPressed:        in.steer.Jump && !in.boosting,
		Yaw:                 in.look.Yaw,
		Pitch:               in.look.Pitch,
		Quit:                in.quit || in.steer.Sneak,
	}
	in.boosting = in.steer.Jump

	if in.cooldowns.MoveReady() {
		f.DX, f.DY = steerDelta(in.steer)
	}

	ready := in.cooldowns.RotateReady()
	if in.roll != nil && ready {
		if in.roll.Clockwise {
			f.RollCW = true
			f.Turns = append(f.Turns, orient.RollCW)
		} else {
			f.RollCCW = true
			f.Turns = append(f.Turns, orient.RollCCW)
		}
		ready = false
	}
	in.roll = nil

	if in.hasLook {
		f.Turns = append(f.Turns, in.gestures.Update(in.look.Yaw, in.look.Pitch, ready)...)
		f.Guide = in.gestures.Guide()
	}
	if len(f.Turns) > 0 {
		in.cooldowns.Rotated()
	}

	in.quit = false
	return f
}

// Moved must be called after a move from the frame succeeded.
func (in *Interpreter) Moved() { in.cooldowns.Moved() }

func (in *Interpreter) Cooldowns() *Cooldowns { return in.cooldowns }

// steerDelta maps keys to a lateral step. Horizontal wins over vertical and
// opposing keys cancel.
func steerDelta(s Steer) (dx, dy int) {
	switch {
	case s.Left && !s.Right:
		return 1, 0
	case s.Right && !s.Left:
		return -1, 0
	case s.Forward && !s.Backward:
		return 0, 1
	case s.Backward && !s.Forward:
		return 0, -1
	}
	return 0, 0
}
