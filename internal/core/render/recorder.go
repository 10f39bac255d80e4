package render

import (
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

var _ Proxy = (*Recorder)(nil)

// Marker is the recorded state of one proxy marker.
type Marker struct {
	ID       MarkerID   `json:"id"`
	Color    Color      `json:"color"`
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Quat `json:"rotation"`
}

// Changes is everything that happened to markers since the last Flush.
type Changes struct {
	Updated   []Marker   `json:"updated,omitempty"`
	Destroyed []MarkerID `json:"destroyed,omitempty"`
}

func (c Changes) Empty() bool { return len(c.Updated) == 0 && len(c.Destroyed) == 0 }

// Recorder is an in-memory Proxy. The simulation writes to it and another
// goroutine may read snapshots or flush changes to a client.
type Recorder struct {
	mu        sync.Mutex
	next      MarkerID
	markers   map[MarkerID]*Marker
	dirty     map[MarkerID]struct{}
	destroyed []MarkerID
}

func NewRecorder() *Recorder {
	return &Recorder{
		markers: make(map[MarkerID]*Marker),
		dirty:   make(map[MarkerID]struct{}),
	}
}

func (r *Recorder) Create(color Color) MarkerID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	id := r.next
	r.markers[id] = &Marker{ID: id, Color: color, Rotation: mgl64.QuatIdent()}
	r.dirty[id] = struct{}{}
	return id
}

func (r *Recorder) Destroy(id MarkerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.markers[id]; !ok {
		return
	}
	delete(r.markers, id)
	delete(r.dirty, id)
	r.destroyed = append(r.destroyed, id)
}

func (r *Recorder) SetTransform(id MarkerID, pos mgl64.Vec3, rot mgl64.Quat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markers[id]
	if !ok {
		return
	}
	if m.Position == pos && m.Rotation == rot {
		return
	}
	m.Position = pos
	m.Rotation = rot
	r.dirty[id] = struct{}{}
}

func (r *Recorder) SetColor(id MarkerID, color Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markers[id]
	if !ok || m.Color == color {
		return
	}
	m.Color = color
	r.dirty[id] = struct{}{}
}

// Markers returns a snapshot of every live marker ordered by ID.
func (r *Recorder) Markers() []Marker {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Marker, 0, len(r.markers))
	for _, m := range r.markers {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *Recorder) Marker(id MarkerID) (Marker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.markers[id]
	if !ok {
		return Marker{}, false
	}
	return *m, true
}

func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.markers)
}

// Flush returns and forgets the changes recorded since the previous call.
func (r *Recorder) Flush() Changes {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c Changes
	for id := range r.dirty {
		c.Updated = append(c.Updated, *r.markers[id])
	}
	sort.Slice(c.Updated, func(i, j int) bool { return c.Updated[i].ID < c.Updated[j].ID })
	c.Destroyed = r.destroyed
	r.dirty = make(map[MarkerID]struct{})
	r.destroyed = nil
	return c
}
