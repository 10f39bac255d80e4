// Package tracing keeps the per-wall record of which hole cells the body's
// silhouette has covered during a clean pass. It performs no I/O.
package tracing

import (
	"encoding/binary"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/runhole/internal/core/voxel"
)

type cellSet map[voxel.Cell2]struct{}

// Tracker is owned by a single simulation goroutine.
type Tracker struct {
	wall    int
	hasWall bool

	holes  cellSet
	traced cellSet

	fingerprint uint64
}

func New() *Tracker {
	return &Tracker{
		holes:  make(cellSet),
		traced: make(cellSet),
	}
}

// SetCurrentWall replaces the active wall together with its open cells and
// forgets any tracing progress.
func (t *Tracker) SetCurrentWall(depth int, holes []voxel.Cell2) {
	t.wall = depth
	t.hasWall = true
	t.holes = make(cellSet, len(holes))
	for _, h := range holes {
		t.holes[h] = struct{}{}
	}
	t.traced = make(cellSet)
	t.fingerprint = fingerprint(depth, sorted(t.holes))
}

func (t *Tracker) IsCurrentWall(depth int) bool {
	return t.hasWall && t.wall == depth
}

func (t *Tracker) CurrentWall() (int, bool) {
	return t.wall, t.hasWall
}

// MarkTraced records the given cells and returns the ones that were open
// and not traced before. Cells outside the hole set are ignored.
func (t *Tracker) MarkTraced(cells ...voxel.Cell2) []voxel.Cell2 {
	var added []voxel.Cell2
	for _, c := range cells {
		if _, ok := t.holes[c]; !ok {
			continue
		}
		if _, ok := t.traced[c]; ok {
			continue
		}
		t.traced[c] = struct{}{}
		added = append(added, c)
	}
	return added
}

// IsCompleted is true once every hole cell is traced. A wall without holes
// is never complete.
func (t *Tracker) IsCompleted() bool {
	return len(t.holes) > 0 && len(t.traced) == len(t.holes)
}

// Reset drops tracing progress but keeps the active wall.
func (t *Tracker) Reset() {
	t.traced = make(cellSet)
}

// Clear forgets the active wall entirely.
func (t *Tracker) Clear() {
	t.wall = 0
	t.hasWall = false
	t.holes = make(cellSet)
	t.traced = make(cellSet)
	t.fingerprint = 0
}

func (t *Tracker) Holes() []voxel.Cell2  { return sorted(t.holes) }
func (t *Tracker) Traced() []voxel.Cell2 { return sorted(t.traced) }

func (t *Tracker) Progress() (traced, total int) {
	return len(t.traced), len(t.holes)
}

// Fingerprint identifies the active wall and its hole layout. Zero when no
// wall is set.
func (t *Tracker) Fingerprint() uint64 { return t.fingerprint }

func sorted(s cellSet) []voxel.Cell2 {
	out := make([]voxel.Cell2, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Y != out[j].Y {
			return out[i].Y < out[j].Y
		}
		return out[i].X < out[j].X
	})
	return out
}

func fingerprint(depth int, cells []voxel.Cell2) uint64 {
	h := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(int64(depth)))
	_, _ = h.Write(buf[:])
	for _, c := range cells {
		binary.LittleEndian.PutUint32(buf[0:], uint32(int32(c.X)))
		binary.LittleEndian.PutUint32(buf[4:], uint32(int32(c.Y)))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
