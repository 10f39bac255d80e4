package input

import (
	"math"

	"github.com/zeusync/runhole/internal/core/orient"
)

// Guide glyphs show where the view sits relative to the gesture centre.
const (
	GuideCentre    = "┼"
	GuideUp        = "┬"
	GuideDown      = "┴"
	GuideLeft      = "├"
	GuideRight     = "┤"
	GuideUpLeft    = "┌"
	GuideUpRight   = "┐"
	GuideDownLeft  = "└"
	GuideDownRight = "┘"
)

// Gestures turns free view movement into discrete yaw and pitch turns.
// A follow target drifts toward the view; leaving the threshold around it
// fires one turn, and the axis re-arms once the view comes back inside.
type Gestures struct {
	threshold float64
	lerp      float64

	targetYaw   float64
	targetPitch float64
	started     bool

	yawOutside   bool
	pitchOutside bool
	guide        string
}

func NewGestures(threshold, lerp float64) *Gestures {
	return &Gestures{threshold: threshold, lerp: lerp, guide: GuideCentre}
}

// Update consumes the current view. ready is false while rotations are
// cooling down; the follow target then holds still and no turn fires.
func (g *Gestures) Update(yaw, pitch float64, ready bool) []orient.Turn {
	if !g.started {
		g.targetYaw, g.targetPitch = yaw, pitch
		g.started = true
	}
	if ready {
		g.targetYaw = lerpAngle(g.targetYaw, yaw, g.lerp)
		g.targetPitch = lerpAngle(g.targetPitch, pitch, g.lerp)
	}

	yawDiff := normalizeAngle(yaw - g.targetYaw)
	pitchDiff := normalizeAngle(pitch - g.targetPitch)
	yawOut := math.Abs(yawDiff) > g.threshold
	pitchOut := math.Abs(pitchDiff) > g.threshold

	var turns []orient.Turn
	if yawOut && ready && !g.yawOutside {
		if yawDiff > 0 {
			turns = append(turns, orient.YawRight)
		} else {
			turns = append(turns, orient.YawLeft)
		}
		g.yawOutside = true
	} else if !yawOut {
		g.yawOutside = false
	}

	if pitchOut && ready && !g.pitchOutside {
		if pitchDiff > 0 {
			turns = append(turns, orient.PitchDown)
		} else {
			turns = append(turns, orient.PitchUp)
		}
		g.pitchOutside = true
	} else if !pitchOut {
		g.pitchOutside = false
	}

	g.guide = guide(yawDiff, pitchDiff, yawOut, pitchOut)
	return turns
}

// Guide is the glyph computed by the last Update.
func (g *Gestures) Guide() string { return g.guide }

func guide(yawDiff, pitchDiff float64, yawOut, pitchOut bool) string {
	switch {
	case !yawOut && !pitchOut:
		return GuideCentre
	case !yawOut && pitchDiff < 0:
		return GuideUp
	case !yawOut:
		return GuideDown
	case !pitchOut && yawDiff < 0:
		return GuideLeft
	case !pitchOut:
		return GuideRight
	case yawDiff < 0 && pitchDiff < 0:
		return GuideUpLeft
	case pitchDiff < 0:
		return GuideUpRight
	case yawDiff < 0:
		return GuideDownLeft
	default:
		return GuideDownRight
	}
}

func lerpAngle(current, target, t float64) float64 {
	return current + normalizeAngle(target-current)*t
}

// normalizeAngle maps degrees into [-180, 180].
func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 360)
	if a > 180 {
		a -= 360
	}
	if a < -180 {
		a += 360
	}
	return a
}
