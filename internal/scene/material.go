package scene

import "starviewcore/internal/geom"

// Blending selects how a material combines with what is already drawn.
type Blending int

const (
	NormalBlending Blending = iota
	AdditiveBlending
)

// Side selects which faces are drawn.
type Side int

const (
	FrontSide Side = iota
	DoubleSide
)

// Attenuation carries the depth-attenuated point parameters used by the
// star and colony point clouds.
type Attenuation struct {
	SizeNear    float64
	SizeFar     float64
	OpacityNear float64
	OpacityFar  float64
	BiasPower   float64
}

// Material is the subset of surface state the viewer controls.
type Material struct {
	Color             geom.RGB
	Emissive          geom.RGB
	EmissiveIntensity float64
	Opacity           float64
	Transparent       bool
	DepthWrite        bool
	Blending          Blending
	Side              Side
	VertexColors      bool
	Wireframe         bool
	PointSize         float64
	Texture           string
	ClipPlanes        []geom.Plane
	ClipShadows       bool
	Attenuation       *Attenuation
}

// NewMaterial returns an opaque white material.
func NewMaterial() *Material {
	return &Material{
		Color:      geom.RGB{R: 1, G: 1, B: 1},
		Opacity:    1,
		DepthWrite: true,
	}
}

// Clone returns a deep copy.
func (m *Material) Clone() *Material {
	cp := *m
	if m.ClipPlanes != nil {
		cp.ClipPlanes = append([]geom.Plane(nil), m.ClipPlanes...)
	}
	if m.Attenuation != nil {
		att := *m.Attenuation
		cp.Attenuation = &att
	}
	return &cp
}
