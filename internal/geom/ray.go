package geom

import "github.com/go-gl/mathgl/mgl32"

// Ray is a half-line. Direction is kept normalised.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

// NewRay normalises dir. A zero direction yields a degenerate ray whose
// closest point is always the origin.
func NewRay(origin, dir mgl32.Vec3) Ray {
	if dir.Len() > 0 {
		dir = dir.Normalize()
	}
	return Ray{Origin: origin, Direction: dir}
}

// ClosestPoint returns the point on the ray nearest to p and its distance
// along the ray. Points behind the origin project onto the origin.
func (r Ray) ClosestPoint(p mgl32.Vec3) (mgl32.Vec3, float32) {
	t := p.Sub(r.Origin).Dot(r.Direction)
	if t < 0 {
		return r.Origin, 0
	}
	return r.Origin.Add(r.Direction.Mul(t)), t
}

// DistanceSqToPoint is the squared distance between p and the ray.
func (r Ray) DistanceSqToPoint(p mgl32.Vec3) float32 {
	c, _ := r.ClosestPoint(p)
	d := c.Sub(p)
	return d.Dot(d)
}
