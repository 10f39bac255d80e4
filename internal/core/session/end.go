package session

import "fmt"

// EndType says why a run stopped.
type EndType uint8

const (
	EndNone EndType = iota
	EndCollision
	EndCommandStop
	EndPlayerQuit
	EndDisconnect
	EndFinished
)

var endNames = map[EndType]string{
	EndNone:        "none",
	EndCollision:   "collision",
	EndCommandStop: "command_stop",
	EndPlayerQuit:  "player_quit",
	EndDisconnect:  "disconnect",
	EndFinished:    "finished",
}

func (e EndType) String() string {
	if n, ok := endNames[e]; ok {
		return n
	}
	return fmt.Sprintf("end(%d)", uint8(e))
}

func (e EndType) MarshalText() ([]byte, error) {
	return []byte(e.String()), nil
}

func (e *EndType) UnmarshalText(b []byte) error {
	for k, v := range endNames {
		if v == string(b) {
			*e = k
			return nil
		}
	}
	return fmt.Errorf("unknown end type %q", b)
}
