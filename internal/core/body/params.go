package body

// Params holds the motion and detection constants. They are fixed when the
// body is built.
type Params struct {
	CruiseSpeed     float64
	BoostMultiplier float64
	MinSpeed        float64

	// SlowdownRange is the distance below which an impassable wall slows the body.
	SlowdownRange float64
	// StallBreakerTicks is how many slowed steps pass before full speed returns.
	StallBreakerTicks int
	// WallScanAhead bounds the forward wall search used for slowdown and warnings.
	WallScanAhead   float64
	WarningDistance float64

	DetectRadius int
	WallMinSolid int
	HoleMinOpen  int
}

func DefaultParams() Params {
	return Params{
		CruiseSpeed:       0.35,
		BoostMultiplier:   3,
		MinSpeed:          0.01,
		SlowdownRange:     3,
		StallBreakerTicks: 40,
		WallScanAhead:     5,
		WarningDistance:   1.5,
		DetectRadius:      2,
		WallMinSolid:      10,
		HoleMinOpen:       3,
	}
}
