package body

import "errors"

var (
	ErrInvalidMask = errors.New("occupancy mask must be 3x3x3")
	ErrEmptyMask   = errors.New("occupancy mask has no occupied cells")
	ErrNilWorld    = errors.New("world is nil")
)
