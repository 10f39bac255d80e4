// Package render is the boundary to whatever draws the body. The core only
// creates, places, recolours and destroys markers; how they look is up to
// the Proxy implementation.
package render

import "github.com/go-gl/mathgl/mgl64"

type MarkerID uint64

type Color uint8

const (
	ColorWhite Color = iota
	ColorGreen
	ColorRed
	ColorYellow
	ColorBlue
)

func (c Color) String() string {
	switch c {
	case ColorWhite:
		return "white"
	case ColorGreen:
		return "green"
	case ColorRed:
		return "red"
	case ColorYellow:
		return "yellow"
	case ColorBlue:
		return "blue"
	default:
		return "unknown"
	}
}

// Proxy manages positioned, oriented markers. Every call must be idempotent
// and cheap enough to make each tick; unknown IDs are ignored.
type Proxy interface {
	Create(color Color) MarkerID
	Destroy(id MarkerID)
	SetTransform(id MarkerID, pos mgl64.Vec3, rot mgl64.Quat)
	SetColor(id MarkerID, color Color)
}
