package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"starviewcore/internal/geom"
)

// Geometry stores flat xyz positions and optional flat rgb vertex colors.
type Geometry struct {
	Positions []float32
	Colors    []float32
}

// Count is the number of vertices.
func (g *Geometry) Count() int {
	if g == nil {
		return 0
	}
	return len(g.Positions) / 3
}

// Position returns vertex i in local space.
func (g *Geometry) Position(i int) mgl32.Vec3 {
	return mgl32.Vec3{g.Positions[3*i], g.Positions[3*i+1], g.Positions[3*i+2]}
}

// HasColors reports whether every vertex has a color.
func (g *Geometry) HasColors() bool {
	return g != nil && len(g.Colors) > 0 && len(g.Colors) == len(g.Positions)
}

// Color returns the vertex color of vertex i.
func (g *Geometry) Color(i int) geom.RGB {
	return geom.RGB{R: float64(g.Colors[3*i]), G: float64(g.Colors[3*i+1]), B: float64(g.Colors[3*i+2])}
}

// SetColor overwrites the vertex color of vertex i.
func (g *Geometry) SetColor(i int, c geom.RGB) {
	g.Colors[3*i] = float32(c.R)
	g.Colors[3*i+1] = float32(c.G)
	g.Colors[3*i+2] = float32(c.B)
}

// CloneColors copies the vertex color buffer.
func (g *Geometry) CloneColors() []float32 {
	out := make([]float32, len(g.Colors))
	copy(out, g.Colors)
	return out
}

// PlaneGeometry is a width x height quad in the local XY plane.
func PlaneGeometry(width, height float32) *Geometry {
	w, h := width/2, height/2
	return &Geometry{Positions: []float32{
		-w, h, 0,
		w, h, 0,
		-w, -h, 0,
		w, -h, 0,
	}}
}

// SphereGeometry samples a UV sphere with the given segment counts.
func SphereGeometry(radius float32, widthSegments, heightSegments int) *Geometry {
	if widthSegments < 3 {
		widthSegments = 3
	}
	if heightSegments < 2 {
		heightSegments = 2
	}
	g := &Geometry{}
	for iy := 0; iy <= heightSegments; iy++ {
		v := float64(iy) / float64(heightSegments)
		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			x := -float64(radius) * math.Cos(u*2*math.Pi) * math.Sin(v*math.Pi)
			y := float64(radius) * math.Cos(v*math.Pi)
			z := float64(radius) * math.Sin(u*2*math.Pi) * math.Sin(v*math.Pi)
			g.Positions = append(g.Positions, float32(x), float32(y), float32(z))
		}
	}
	return g
}
