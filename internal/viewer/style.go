package viewer

import (
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"

	"starviewcore/internal/geom"
	"starviewcore/internal/scene"
)

var (
	starCloudAttenuation = scene.Attenuation{SizeNear: 6, SizeFar: 0.05, OpacityNear: 0.8, OpacityFar: 0.02, BiasPower: 1.5}
	colonyAttenuation    = scene.Attenuation{SizeNear: 12, SizeFar: 0.1, OpacityNear: 1, OpacityFar: 0.05, BiasPower: 2}
	starCloudColor       = geom.RGB{R: 1, G: 0.65, B: 0}
)

const (
	colonyPointSizeShown  = 14
	colonyPointSizeHidden = 5
	bubblePointSize       = 5
	bubbleSprite          = "sprites/disc.png"
	galacticPlaneSize     = 90000
	galacticPlaneX        = 25000
	heliumMeshes          = 7
)

// GalacticPlaneYRange bounds the galactic map's vertical offset.
var GalacticPlaneYRange = [2]float64{-20000, 20000}

func points(node *scene.Node, fn func(*scene.Node)) {
	node.Traverse(func(n *scene.Node) {
		if n.Kind == scene.KindPoints {
			fn(n)
		}
	})
}

func eachMaterial(node *scene.Node, fn func(*scene.Material)) {
	for _, m := range node.Materials() {
		fn(m)
	}
}

func attenuatedMaterial(att scene.Attenuation) *scene.Material {
	m := scene.NewMaterial()
	m.Attenuation = &att
	m.Transparent = true
	m.DepthWrite = false
	m.Blending = scene.AdditiveBlending
	m.Opacity = att.OpacityNear
	return m
}

func styleStarCloud(node *scene.Node, slider float64) {
	points(node, func(n *scene.Node) {
		m := attenuatedMaterial(starCloudAttenuation)
		m.Color = starCloudColor
		n.Material = m
	})
	scaleStarCloud(node, slider)
}

// scaleStarCloud scales the base near and far opacities linearly by the
// slider value clamped to [0,1].
func scaleStarCloud(node *scene.Node, slider float64) {
	f := geom.Clamp(slider, 0, 1)
	near := starCloudAttenuation.OpacityNear * f
	far := starCloudAttenuation.OpacityFar * f
	eachMaterial(node, func(m *scene.Material) {
		if m.Attenuation == nil {
			return
		}
		m.Attenuation.OpacityNear = near
		m.Attenuation.OpacityFar = far
		m.Opacity = near
	})
}

func styleColonyCloud(node *scene.Node) {
	points(node, func(n *scene.Node) {
		n.Material = attenuatedMaterial(colonyAttenuation)
	})
	setPointSize(node, colonyPointSizeShown)
}

func setPointSize(node *scene.Node, size float64) {
	points(node, func(n *scene.Node) {
		if n.Material != nil {
			n.Material.PointSize = size
		}
	})
}

// heliumGroup keeps the nodes named mesh0 through mesh6, in that order, and
// drops everything else the asset carries.
func heliumGroup(model *scene.Node) *scene.Node {
	buckets := make([][]*scene.Node, heliumMeshes)
	model.Traverse(func(n *scene.Node) {
		if n.Kind != scene.KindMesh && n.Kind != scene.KindPoints {
			return
		}
		for i := range buckets {
			if n.Name == meshName(i) {
				buckets[i] = append(buckets[i], n)
			}
		}
	})
	group := scene.NewGroup("He_mass_group")
	for _, b := range buckets {
		for _, n := range b {
			group.Add(n)
		}
	}
	return group
}

func meshName(i int) string { return "mesh" + strconv.Itoa(i) }

func snapshotColors(node *scene.Node) map[*scene.Node][]float32 {
	out := make(map[*scene.Node][]float32)
	node.Traverse(func(n *scene.Node) {
		if n.Kind == scene.KindMesh && n.Geometry.HasColors() {
			out[n] = n.Geometry.CloneColors()
		}
	})
	return out
}

func styleHelium(node *scene.Node, opacity float64) {
	eachMaterial(node, func(m *scene.Material) {
		m.Transparent = true
		m.Opacity = opacity
		m.Blending = scene.AdditiveBlending
		m.DepthWrite = false
	})
}

// remapHelium recolors every snapshotted vertex from its original color.
// With t = intensity-1, red-dominant vertices move toward pure red and
// blue-dominant ones toward pure blue; the rest keep their original color.
func remapHelium(originals map[*scene.Node][]float32, intensity float64) {
	t := geom.Clamp(intensity, 1, 2) - 1
	red := geom.RGB{R: 1}
	blue := geom.RGB{B: 1}
	for n, orig := range originals {
		g := n.Geometry
		for i := 0; i < g.Count() && 3*i+2 < len(orig); i++ {
			c := geom.RGB{R: float64(orig[3*i]), G: float64(orig[3*i+1]), B: float64(orig[3*i+2])}
			switch {
			case c.R > c.B:
				c = geom.Lerp(c, red, t)
			case c.B > c.R:
				c = geom.Lerp(c, blue, t)
			}
			g.SetColor(i, c)
		}
	}
}

func styleStellar(node *scene.Node, opacity, temperature, emissive float64) {
	color := geom.StarColor(temperature)
	eachMaterial(node, func(m *scene.Material) {
		m.Transparent = true
		m.Opacity = opacity
		m.Color = color
		m.Emissive = color
		m.EmissiveIntensity = emissive
		m.DepthWrite = false
	})
}

func recolorStellar(node *scene.Node, temperature float64) {
	color := geom.StarColor(temperature)
	eachMaterial(node, func(m *scene.Material) {
		m.Color = color
		m.Emissive = color
	})
}

func styleTranslucent(node *scene.Node, opacity float64) {
	eachMaterial(node, func(m *scene.Material) {
		m.Transparent = true
		m.Opacity = opacity
		m.DepthWrite = false
	})
}

func setOpacity(node *scene.Node, opacity float64) {
	eachMaterial(node, func(m *scene.Material) {
		m.Opacity = opacity
		m.Transparent = true
	})
}

func densityPlaceholder() *scene.Node {
	m := scene.NewMaterial()
	m.Color = geom.FromHex(0x6666ff)
	m.Wireframe = true
	m.Opacity = 0.25
	m.Transparent = true
	group := scene.NewGroup("density_scans")
	group.Add(scene.NewDrawable("density_placeholder", scene.KindMesh, scene.SphereGeometry(5000, 16, 12), m))
	return group
}

func galacticPlane(texture string, opacity, y float64) *scene.Node {
	m := scene.NewMaterial()
	m.Texture = texture
	m.Transparent = true
	m.Opacity = opacity
	m.Side = scene.DoubleSide
	n := scene.NewDrawable("galactic_plane", scene.KindMesh, scene.PlaneGeometry(galacticPlaneSize, galacticPlaneSize), m)
	// Euler XYZ order: -90 degrees about X, then -90 degrees about Z
	rx := mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{1, 0, 0})
	rz := mgl32.QuatRotate(-math.Pi/2, mgl32.Vec3{0, 0, 1})
	n.Rotation = rx.Mul(rz)
	n.Position = mgl32.Vec3{galacticPlaneX, float32(y), 0}
	return n
}

// isoStyle returns the opacity and hue of the level at rank in a stack of n
// levels. Rank 0 is the coarsest: most opaque and bluest. The finest level
// is the most transparent and red.
func isoStyle(rank, n int) (opacity, hue float64) {
	t := 1.0
	if n > 1 {
		t = 1 - float64(rank)/float64(n-1)
	}
	return 0.15 + 0.5*t, 0.6 * t
}

func styleIsoLevel(node *scene.Node, rank, n int) {
	opacity, hue := isoStyle(rank, n)
	color := geom.HSL(hue, 1, 0.5)
	node.Traverse(func(c *scene.Node) {
		if c.Kind != scene.KindMesh {
			return
		}
		m := scene.NewMaterial()
		m.Color = color
		m.Transparent = true
		m.Opacity = opacity
		m.DepthWrite = false
		m.Side = scene.DoubleSide
		c.Material = m
	})
}

func styleBubble(node *scene.Node) {
	points(node, func(n *scene.Node) {
		if n.Material == nil {
			n.Material = scene.NewMaterial()
		}
		m := n.Material
		m.Texture = bubbleSprite
		m.PointSize = bubblePointSize
		m.Opacity = 0.5
		m.Transparent = true
		m.DepthWrite = false
		m.Blending = scene.AdditiveBlending
		m.EmissiveIntensity = 0.5
	})
}
