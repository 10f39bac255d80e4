package input

// Cooldowns counts ticks until moves and rotations are accepted again.
type Cooldowns struct {
	moveTicks   int
	rotateTicks int

	moveLeft   int
	rotateLeft int
}

func NewCooldowns(moveTicks, rotateTicks int) *Cooldowns {
	return &Cooldowns{moveTicks: moveTicks, rotateTicks: rotateTicks}
}

// Tick is called once at the start of every simulation step.
func (c *Cooldowns) Tick() {
	if c.moveLeft > 0 {
		c.moveLeft--
	}
	if c.rotateLeft > 0 {
		c.rotateLeft--
	}
}

func (c *Cooldowns) MoveReady() bool   { return c.moveLeft == 0 }
func (c *Cooldowns) RotateReady() bool { return c.rotateLeft == 0 }

// Moved starts the move cooldown. Only successful moves count.
func (c *Cooldowns) Moved() { c.moveLeft = c.moveTicks }

// Rotated starts the rotation cooldown. Rejected rotations count too.
func (c *Cooldowns) Rotated() { c.rotateLeft = c.rotateTicks }
