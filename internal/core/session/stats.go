package session

import (
	"sync"

	"github.com/zeusync/runhole/internal/core/events/bus"
)

// StatsSnapshot is a copy of the counters kept by Stats.
type StatsSnapshot struct {
	WallsPassed  int     `json:"walls_passed"`
	PerfectWalls int     `json:"perfect_walls"`
	HolesTraced  int     `json:"holes_traced"`
	CellsTraced  int     `json:"cells_traced"`
	Moves        int     `json:"moves"`
	Rotations    int     `json:"rotations"`
	Collisions   int     `json:"collisions"`
	End          EndType `json:"end"`
}

// Stats counts the events one session publishes. It listens on the
// session's topic, so it may be read from any goroutine.
type Stats struct {
	mu   sync.Mutex
	snap StatsSnapshot
	sub  bus.Subscription
}

// WatchStats subscribes a new Stats to the session topic.
func WatchStats(b bus.EventBus, topic string) (*Stats, error) {
	st := &Stats{}
	sub, err := b.SubscribeTopic(topic, bus.Wildcard, st.handle)
	if err != nil {
		return nil, err
	}
	st.sub = sub
	return st, nil
}

func (st *Stats) handle(ev bus.Event) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	switch data := ev.Data().(type) {
	case WallPassed:
		st.snap.WallsPassed++
		if data.Perfect {
			st.snap.PerfectWalls++
		}
	case TraceProgress:
		st.snap.CellsTraced++
	case TraceCompleted:
		st.snap.HolesTraced++
	case Moved:
		st.snap.Moves++
	case Rotated:
		st.snap.Rotations++
	case Collision:
		st.snap.Collisions++
	case GameOver:
		st.snap.End = data.End
	}
	return nil
}

func (st *Stats) Snapshot() StatsSnapshot {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snap
}

// Close stops listening.
func (st *Stats) Close() error {
	if st.sub == nil {
		return nil
	}
	return st.sub.Cancel()
}
