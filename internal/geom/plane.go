// Package geom holds the small amount of spatial math the viewer needs on top
// of mgl32: axis-aligned slabs, boxes, rays and the color helpers used to
// style layers.
package geom

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Axis names one of the three world axes.
type Axis string

const (
	AxisX Axis = "x"
	AxisY Axis = "y"
	AxisZ Axis = "z"
)

// Axes lists the supported axes in display order.
var Axes = []Axis{AxisX, AxisY, AxisZ}

// ParseAxis accepts x, y or z in any case.
func ParseAxis(s string) (Axis, error) {
	switch Axis(strings.ToLower(strings.TrimSpace(s))) {
	case AxisX:
		return AxisX, nil
	case AxisY:
		return AxisY, nil
	case AxisZ:
		return AxisZ, nil
	default:
		return "", fmt.Errorf("unknown axis %q", s)
	}
}

// Normal returns the positive unit vector for the axis.
func (a Axis) Normal() mgl32.Vec3 {
	switch a {
	case AxisY:
		return mgl32.Vec3{0, 1, 0}
	case AxisZ:
		return mgl32.Vec3{0, 0, 1}
	default:
		return mgl32.Vec3{1, 0, 0}
	}
}

// Component extracts the coordinate of v along the axis.
func (a Axis) Component(v mgl32.Vec3) float32 {
	switch a {
	case AxisY:
		return v[1]
	case AxisZ:
		return v[2]
	default:
		return v[0]
	}
}

// Plane is a half-space boundary in constant-normal form. Points with
// Distance >= 0 are on the retained side.
type Plane struct {
	Normal   mgl32.Vec3
	Constant float32
}

// Distance returns the signed distance of p from the plane.
func (p Plane) Distance(pt mgl32.Vec3) float32 {
	return p.Normal.Dot(pt) + p.Constant
}

// Keeps reports whether pt survives clipping against the plane.
func (p Plane) Keeps(pt mgl32.Vec3) bool {
	return p.Distance(pt) >= 0
}

// SlabPlanes returns the pair of planes that keep only the points whose
// coordinate along axis lies in [center-thickness/2, center+thickness/2].
func SlabPlanes(axis Axis, center, thickness float64) [2]Plane {
	half := thickness / 2
	n := axis.Normal()
	return [2]Plane{
		{Normal: n, Constant: float32(-(center - half))},
		{Normal: n.Mul(-1), Constant: float32(center + half)},
	}
}

// KeptByAll reports whether pt is on the retained side of every plane.
// An empty plane list keeps everything.
func KeptByAll(planes []Plane, pt mgl32.Vec3) bool {
	for _, p := range planes {
		if !p.Keeps(pt) {
			return false
		}
	}
	return true
}
