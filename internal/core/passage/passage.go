// Package passage implements the hysteresis machine answering whether a
// tracked point is currently travelling through a hole.
package passage

import "github.com/go-gl/mathgl/mgl64"

type State uint8

const (
	Outside State = iota
	Inside
)

func (s State) String() string {
	if s == Inside {
		return "inside"
	}
	return "outside"
}

// DefaultMargin is how far past the last sighting the tracked depth must
// travel before the machine leaves Inside.
const DefaultMargin = 1.0

// Sighting is one hole detection. Z is the depth used as the hysteresis anchor.
type Sighting struct {
	Position mgl64.Vec3
}

func (s Sighting) Z() float64 { return s.Position.Z() }

// Machine is a two-state hysteresis tracker. Each consumer owns its own
// instance and feeds it its own tracked depth.
type Machine struct {
	margin float64

	state    State
	previous State

	lastHole Sighting
	hasHole  bool
}

func New(margin float64) *Machine {
	if margin < 0 {
		margin = 0
	}
	return &Machine{margin: margin}
}

// Update feeds one step. sighting is nil when nothing was detected.
func (m *Machine) Update(sighting *Sighting, tracked float64) {
	m.previous = m.state

	if sighting != nil {
		m.lastHole = *sighting
		m.hasHole = true
		m.state = Inside
		return
	}

	if m.state == Inside && m.hasHole && tracked > m.lastHole.Z()+m.margin {
		m.state = Outside
	}
}

func (m *Machine) State() State  { return m.state }
func (m *Machine) Inside() bool  { return m.state == Inside }
func (m *Machine) Changed() bool { return m.state != m.previous }
func (m *Machine) Entered() bool { return m.Changed() && m.state == Inside }
func (m *Machine) Exited() bool  { return m.Changed() && m.state == Outside }

// LastHole is the most recent sighting, kept after detection stops so
// consumers have a stable focus target.
func (m *Machine) LastHole() (Sighting, bool) {
	return m.lastHole, m.hasHole
}

func (m *Machine) Margin() float64 { return m.margin }

func (m *Machine) Reset() {
	m.state = Outside
	m.previous = Outside
	m.lastHole = Sighting{}
	m.hasHole = false
}
