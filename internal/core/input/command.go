// Package input carries participant intents from the network goroutine to
// the simulation tick as immutable values, and turns them into per-tick
// frames of logical signals.
package input

// Command is an immutable participant intent. It is built on the I/O side
// and only ever read by the simulation tick.
type Command interface {
	command()
}

// Steer is the full movement key state. Each Steer replaces the previous one.
type Steer struct {
	Left     bool
	Right    bool
	Forward  bool
	Backward bool
	// Jump holds boost.
	Jump bool
	// Sneak abandons the run.
	Sneak bool
}

// Look is the participant's absolute view direction in degrees.
type Look struct {
	Yaw   float64
	Pitch float64
}

// Roll is a single click requesting a 90° roll.
type Roll struct {
	Clockwise bool
}

// Quit ends the run on behalf of the participant.
type Quit struct{}

func (Steer) command() {}
func (Look) command()  {}
func (Roll) command()  {}
func (Quit) command()  {}
