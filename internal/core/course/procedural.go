package course

import (
	"math/rand/v2"
	"strings"

	"github.com/zeusync/runhole/internal/core/body"
	"github.com/zeusync/runhole/internal/core/orient"
	"github.com/zeusync/runhole/internal/core/voxel"
)

// ProceduralSpec asks for Count walls, Spacing cells apart, starting at
// FirstDepth. Each hole is the player's silhouette under a random
// orientation at a random lateral offset.
type ProceduralSpec struct {
	Count      int    `yaml:"count"`
	Spacing    int    `yaml:"spacing"`
	FirstDepth int    `yaml:"first_depth"`
	Seed       uint64 `yaml:"seed"`
}

// Generate draws the walls. The same spec and mask always give the same walls.
func Generate(p ProceduralSpec, mask body.Mask, width, height int) []WallSpec {
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed^0x9e3779b97f4a7c15))
	all := orient.All()

	walls := make([]WallSpec, 0, p.Count)
	for i := 0; i < p.Count; i++ {
		shadow := body.Silhouette(mask, all[rng.IntN(len(all))])
		dx, dy := placement(rng, shadow, width, height)
		walls = append(walls, WallSpec{
			Depth: p.FirstDepth + i*p.Spacing,
			Rows:  carve(shadow, dx, dy, width, height),
		})
	}
	return walls
}

// placement picks a lateral shift keeping the hole inside the wall with a
// solid border. Walls too small for a border get the hole at the centre.
func placement(rng *rand.Rand, shadow []voxel.Cell2, width, height int) (int, int) {
	minX, maxX, minY, maxY := 0, 0, 0, 0
	for _, c := range shadow {
		minX, maxX = min(minX, c.X), max(maxX, c.X)
		minY, maxY = min(minY, c.Y), max(maxY, c.Y)
	}
	// lateral cells relative to the centre column run from -(width-1)/2 .. width/2
	loX, hiX := -(width-1)/2+1-minX, width/2-1-maxX
	loY, hiY := -(height-1)/2+1-minY, height/2-1-maxY
	return pick(rng, loX, hiX), pick(rng, loY, hiY)
}

func pick(rng *rand.Rand, lo, hi int) int {
	if hi < lo {
		return 0
	}
	return lo + rng.IntN(hi-lo+1)
}

func carve(shadow []voxel.Cell2, dx, dy, width, height int) []string {
	open := make(map[voxel.Cell2]bool, len(shadow))
	for _, c := range shadow {
		open[voxel.Cell2{X: c.X + dx, Y: c.Y + dy}] = true
	}

	rows := make([]string, height)
	for j := 0; j < height; j++ {
		var b strings.Builder
		y := height/2 - j
		for i := 0; i < width; i++ {
			x := width/2 - i
			if open[voxel.Cell2{X: x, Y: y}] {
				b.WriteRune(SymbolEmpty)
			} else {
				b.WriteRune(SymbolSolid)
			}
		}
		rows[j] = b.String()
	}
	return rows
}
