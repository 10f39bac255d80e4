package session

import (
	"github.com/zeusync/runhole/internal/core/observability/log"
	"github.com/zeusync/runhole/internal/core/passage"
	"github.com/zeusync/runhole/internal/core/tracing"
	"github.com/zeusync/runhole/internal/core/voxel"
)

// DefaultPreviewSearch is how many cells ahead the matcher looks for a wall.
const DefaultPreviewSearch = 100

// Probe is the read-only view of the advanced body that the hole-match
// stage consumes.
type Probe interface {
	Depth() float64
	Cell() voxel.Cell
	FindNextWall(zFrom, zTo float64) (int, bool)
	SilhouetteClear(depth int) bool
	SilhouetteAt(depth int) []voxel.Cell
	WallHoles(depth int) []voxel.Cell2
}

// MatchResult is what the hole-match stage saw this step.
type MatchResult struct {
	Wall    int
	HasWall bool
	// Clear means the whole silhouette fits the wall ahead.
	Clear   bool
	Inside  bool
	Preview []voxel.Cell
	Traced  []voxel.Cell2
	Done    int
	Total   int
}

// HoleMatcher follows the wall ahead, runs its own passage machine on the
// body depth and records tracing progress.
type HoleMatcher struct {
	tracker *tracing.Tracker
	passage *passage.Machine
	search  int
	emit    func(typ string, data any)
	logger  log.Log

	lastClear    bool
	hasLastClear bool
	last         MatchResult
}

func NewHoleMatcher(margin float64, search int, emit func(typ string, data any), logger log.Log) *HoleMatcher {
	if search <= 0 {
		search = DefaultPreviewSearch
	}
	if emit == nil {
		emit = func(string, any) {}
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &HoleMatcher{
		tracker: tracing.New(),
		passage: passage.New(margin),
		search:  search,
		emit:    emit,
		logger:  logger,
	}
}

// Update runs one step. sighting is the body's hole detection for this
// step, or nil.
func (m *HoleMatcher) Update(p Probe, sighting *passage.Sighting) MatchResult {
	depth := p.Depth()

	// a body standing in the active wall's plane is inside its hole even
	// when the window is too solid for the hole heuristic
	if sighting == nil {
		if wall, ok := m.tracker.CurrentWall(); ok && p.Cell().Z == wall {
			s := passage.Sighting{Position: voxelCentre(p.Cell())}
			sighting = &s
		}
	}
	m.passage.Update(sighting, depth)

	if m.passage.Entered() {
		m.emit(EventHoleEntered, HoleCrossing{Depth: depth})
	}
	if m.passage.Exited() {
		m.emit(EventHoleExited, HoleCrossing{Depth: depth})
		if wall, ok := m.tracker.CurrentWall(); ok {
			m.emit(EventWallPassed, WallPassed{Depth: wall, Perfect: m.tracker.IsCompleted()})
		}
	}

	if m.passage.Inside() {
		m.last.Inside = true
		return m.last
	}

	wall, ok := p.FindNextWall(depth+1, depth+float64(m.search))
	if !ok {
		m.tracker.Clear()
		m.hasLastClear = false
		m.last = MatchResult{}
		return m.last
	}

	if _, has := m.tracker.CurrentWall(); has && !m.tracker.IsCurrentWall(wall) {
		m.tracker.Clear()
		m.hasLastClear = false
	}

	clear := p.SilhouetteClear(wall)

	if m.passage.Exited() {
		m.tracker.Reset()
	}
	if m.hasLastClear && !m.lastClear && clear {
		m.tracker.Reset()
	}
	m.lastClear, m.hasLastClear = clear, true

	if !m.tracker.IsCurrentWall(wall) {
		if holes := p.WallHoles(wall); len(holes) > 0 {
			m.tracker.SetCurrentWall(wall, holes)
			m.logger.Debug("Tracking wall",
				log.Int("wall", wall),
				log.Int("holes", len(holes)),
				log.Uint64("fingerprint", m.tracker.Fingerprint()),
			)
		}
	}

	preview := p.SilhouetteAt(wall)
	if clear && m.tracker.IsCurrentWall(wall) && !m.tracker.IsCompleted() {
		lateral := make([]voxel.Cell2, len(preview))
		for i, c := range preview {
			lateral[i] = c.Lateral()
		}
		if added := m.tracker.MarkTraced(lateral...); len(added) > 0 {
			done, total := m.tracker.Progress()
			m.emit(EventTraceProgress, TraceProgress{Wall: wall, Traced: done, Total: total})
			if m.tracker.IsCompleted() {
				m.emit(EventTraceCompleted, TraceCompleted{Wall: wall})
			}
		}
	}

	done, total := m.tracker.Progress()
	m.last = MatchResult{
		Wall:    wall,
		HasWall: true,
		Clear:   clear,
		Preview: preview,
		Traced:  m.tracker.Traced(),
		Done:    done,
		Total:   total,
	}
	return m.last
}

// Green reports whether the last result showed a wall the body fits. The
// answer is held while the body is inside a hole.
func (m *HoleMatcher) Green() bool {
	return m.last.HasWall && m.last.Clear
}

func (m *HoleMatcher) Tracker() *tracing.Tracker { return m.tracker }

func (m *HoleMatcher) Inside() bool { return m.passage.Inside() }
