package render

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/runhole/internal/core/body"
	"github.com/zeusync/runhole/internal/core/voxel"
)

// BodyView keeps one marker per occupied voxel of a body in step with its
// pose.
type BodyView struct {
	proxy       Proxy
	color       Color
	mountHeight float64
	markers     []MarkerID
}

// NewBodyView creates the markers. mountHeight lowers every marker so the
// proxy's visual anchor lines up with the simulated cell.
func NewBodyView(proxy Proxy, b *body.ShapeBody, color Color, mountHeight float64) *BodyView {
	v := &BodyView{proxy: proxy, color: color, mountHeight: mountHeight}
	for range b.Mask().Offsets() {
		v.markers = append(v.markers, proxy.Create(color))
	}
	v.Sync(b)
	return v
}

// Sync places every marker at its voxel's continuous position.
func (v *BodyView) Sync(b *body.ShapeBody) {
	center := b.Center()
	rot := b.Orientation().Quat()
	for i, off := range b.Mask().Offsets() {
		if i >= len(v.markers) {
			return
		}
		r := b.Rotated(off)
		pos := center.Add(mgl64.Vec3{float64(r.X), float64(r.Y) - v.mountHeight, float64(r.Z)})
		v.proxy.SetTransform(v.markers[i], pos, rot)
	}
}

// MarkCollided paints the voxels that hit the world.
func (v *BodyView) MarkCollided(hits []body.Voxel) {
	for _, h := range hits {
		if h.Index >= 0 && h.Index < len(v.markers) {
			v.proxy.SetColor(v.markers[h.Index], ColorRed)
		}
	}
}

func (v *BodyView) SetColor(c Color) {
	v.color = c
	for _, id := range v.markers {
		v.proxy.SetColor(id, c)
	}
}

func (v *BodyView) Markers() []MarkerID { return append([]MarkerID(nil), v.markers...) }

func (v *BodyView) Close() {
	for _, id := range v.markers {
		v.proxy.Destroy(id)
	}
	v.markers = nil
}

// PreviewView projects the body's silhouette onto the wall ahead: green when
// it fits, white when it does not, blue for hole cells already traced.
type PreviewView struct {
	proxy   Proxy
	markers map[voxel.Cell]MarkerID
}

func NewPreviewView(proxy Proxy) *PreviewView {
	return &PreviewView{proxy: proxy, markers: make(map[voxel.Cell]MarkerID)}
}

// Sync shows exactly the given wall cells. traced lists lateral cells to
// highlight.
func (p *PreviewView) Sync(cells []voxel.Cell, clear bool, traced []voxel.Cell2) {
	done := make(map[voxel.Cell2]struct{}, len(traced))
	for _, c := range traced {
		done[c] = struct{}{}
	}

	keep := make(map[voxel.Cell]struct{}, len(cells))
	for _, c := range cells {
		keep[c] = struct{}{}
		color := ColorWhite
		if clear {
			color = ColorGreen
		}
		if _, ok := done[c.Lateral()]; ok {
			color = ColorBlue
		}

		id, ok := p.markers[c]
		if !ok {
			id = p.proxy.Create(color)
			p.markers[c] = id
			p.proxy.SetTransform(id, mgl64.Vec3{float64(c.X) + 0.5, float64(c.Y) + 0.5, float64(c.Z) + 0.5}, mgl64.QuatIdent())
		}
		p.proxy.SetColor(id, color)
	}

	for c, id := range p.markers {
		if _, ok := keep[c]; !ok {
			p.proxy.Destroy(id)
			delete(p.markers, c)
		}
	}
}

func (p *PreviewView) Len() int { return len(p.markers) }

func (p *PreviewView) Close() {
	for c, id := range p.markers {
		p.proxy.Destroy(id)
		delete(p.markers, c)
	}
}
