package geom

import "github.com/go-gl/mathgl/mgl32"

// Box is an axis-aligned bounding box. Containment is inclusive on both ends.
type Box struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

// NewBox builds a box from two opposite corners in any order.
func NewBox(a, b mgl32.Vec3) Box {
	var box Box
	for i := 0; i < 3; i++ {
		if a[i] <= b[i] {
			box.Min[i], box.Max[i] = a[i], b[i]
		} else {
			box.Min[i], box.Max[i] = b[i], a[i]
		}
	}
	return box
}

// BoxFromCenter returns the cube of edge length size centred on center.
func BoxFromCenter(center mgl32.Vec3, size float32) Box {
	half := mgl32.Vec3{size / 2, size / 2, size / 2}
	return Box{Min: center.Sub(half), Max: center.Add(half)}
}

// Contains reports whether p lies inside or on the surface of the box.
func (b Box) Contains(p mgl32.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Center returns the midpoint of the box.
func (b Box) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}
