package voxel

import (
	"encoding/binary"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Bounds is an inclusive axis-aligned box of cells.
type Bounds struct {
	Min, Max Cell
}

func (b Bounds) Contains(x, y, z int) bool {
	return x >= b.Min.X && x <= b.Max.X &&
		y >= b.Min.Y && y <= b.Max.Y &&
		z >= b.Min.Z && z <= b.Max.Z
}

// Grid is a sparse in-memory World. Cells never set read as Empty; cells
// outside the optional bounds read as the configured outside material.
type Grid struct {
	mu      sync.RWMutex
	cells   map[Cell]Material
	bounds  *Bounds
	outside Material
}

type GridOption func(*Grid)

// WithBounds limits the grid. Queries outside answer with outside, which
// lets a host treat unloaded regions as Solid.
func WithBounds(b Bounds, outside Material) GridOption {
	return func(g *Grid) {
		g.bounds = &b
		g.outside = outside
	}
}

func NewGrid(opts ...GridOption) *Grid {
	g := &Grid{cells: make(map[Cell]Material)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Grid) Material(x, y, z int) Material {
	if g.bounds != nil && !g.bounds.Contains(x, y, z) {
		return g.outside
	}
	g.mu.RLock()
	m := g.cells[Cell{X: x, Y: y, Z: z}]
	g.mu.RUnlock()
	return m
}

func (g *Grid) Set(c Cell, m Material) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if m == Empty {
		delete(g.cells, c)
		return
	}
	g.cells[c] = m
}

// Fill sets every cell of the inclusive box.
func (g *Grid) Fill(b Bounds, m Material) {
	for x := b.Min.X; x <= b.Max.X; x++ {
		for y := b.Min.Y; y <= b.Max.Y; y++ {
			for z := b.Min.Z; z <= b.Max.Z; z++ {
				g.Set(Cell{X: x, Y: y, Z: z}, m)
			}
		}
	}
}

func (g *Grid) Clear() {
	g.mu.Lock()
	g.cells = make(map[Cell]Material)
	g.mu.Unlock()
}

// Len is the number of non-empty cells.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cells)
}

// Digest fingerprints the grid contents independently of insertion order.
func (g *Grid) Digest() uint64 {
	g.mu.RLock()
	keys := make([]Cell, 0, len(g.cells))
	for c := range g.cells {
		keys = append(keys, c)
	}
	g.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	h := xxhash.New()
	var buf [13]byte
	for _, c := range keys {
		binary.LittleEndian.PutUint32(buf[0:], uint32(int32(c.X)))
		binary.LittleEndian.PutUint32(buf[4:], uint32(int32(c.Y)))
		binary.LittleEndian.PutUint32(buf[8:], uint32(int32(c.Z)))
		buf[12] = byte(g.Material(c.X, c.Y, c.Z))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
