package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"starviewcore/internal/geom"
	"starviewcore/internal/scene"
)

// SceneFormat tags documents produced by MarshalScene.
const SceneFormat = "starview.scene/v1"

// ErrUnsupportedFormat is returned for payloads no registered decoder accepts.
var ErrUnsupportedFormat = errors.New("assets: unsupported asset format")

// Decoder turns an asset payload into a scene subgraph.
type Decoder interface {
	Decode(key string, data []byte) (*scene.Node, error)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(key string, data []byte) (*scene.Node, error)

// Decode implements Decoder.
func (f DecoderFunc) Decode(key string, data []byte) (*scene.Node, error) { return f(key, data) }

type sceneDoc struct {
	Format string  `json:"format"`
	Root   nodeDoc `json:"root"`
}

type nodeDoc struct {
	Name        string       `json:"name,omitempty"`
	Kind        scene.Kind   `json:"kind,omitempty"`
	Visible     *bool        `json:"visible,omitempty"`
	Translation *[3]float32  `json:"translation,omitempty"`
	Rotation    *[4]float32  `json:"rotation,omitempty"` // x, y, z, w
	Scale       *[3]float32  `json:"scale,omitempty"`
	Positions   []float32    `json:"positions,omitempty"`
	Colors      []float32    `json:"colors,omitempty"`
	Material    *materialDoc `json:"material,omitempty"`
	Children    []nodeDoc    `json:"children,omitempty"`
}

type materialDoc struct {
	Color     *uint32  `json:"color,omitempty"`
	Opacity   *float64 `json:"opacity,omitempty"`
	PointSize float64  `json:"point_size,omitempty"`
}

// DecodeScene parses a JSON scene document.
func DecodeScene(key string, data []byte) (*scene.Node, error) {
	var doc sceneDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	if doc.Format != SceneFormat {
		return nil, fmt.Errorf("decode %s: format %q: %w", key, doc.Format, ErrUnsupportedFormat)
	}
	return buildNode(key, doc.Root)
}

func buildNode(key string, d nodeDoc) (*scene.Node, error) {
	kind := d.Kind
	if kind == "" {
		kind = scene.KindGroup
		if len(d.Positions) > 0 {
			kind = scene.KindMesh
		}
	}
	var n *scene.Node
	if kind == scene.KindGroup {
		n = scene.NewGroup(d.Name)
	} else {
		if len(d.Positions)%3 != 0 {
			return nil, fmt.Errorf("decode %s: node %q has %d position values, not a multiple of 3", key, d.Name, len(d.Positions))
		}
		if len(d.Colors) > 0 && len(d.Colors) != len(d.Positions) {
			return nil, fmt.Errorf("decode %s: node %q has %d color values for %d positions", key, d.Name, len(d.Colors), len(d.Positions))
		}
		mat := scene.NewMaterial()
		mat.VertexColors = len(d.Colors) > 0
		if m := d.Material; m != nil {
			if m.Color != nil {
				mat.Color = geom.FromHex(*m.Color)
			}
			if m.Opacity != nil {
				mat.Opacity = *m.Opacity
			}
			mat.PointSize = m.PointSize
		}
		n = scene.NewDrawable(d.Name, kind, &scene.Geometry{Positions: d.Positions, Colors: d.Colors}, mat)
	}
	if d.Visible != nil {
		n.Visible = *d.Visible
	}
	if d.Translation != nil {
		n.Position = mgl32.Vec3(*d.Translation)
	}
	if d.Rotation != nil {
		r := *d.Rotation
		n.Rotation = mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	}
	if d.Scale != nil {
		n.Scale = mgl32.Vec3(*d.Scale)
	}
	for _, cd := range d.Children {
		c, err := buildNode(key, cd)
		if err != nil {
			return nil, err
		}
		n.Add(c)
	}
	return n, nil
}

// MarshalScene encodes a subgraph as a JSON scene document. Only the parts
// DecodeScene understands are written.
func MarshalScene(root *scene.Node) ([]byte, error) {
	return json.Marshal(sceneDoc{Format: SceneFormat, Root: docFor(root)})
}

func docFor(n *scene.Node) nodeDoc {
	d := nodeDoc{Name: n.Name, Kind: n.Kind}
	if !n.Visible {
		v := false
		d.Visible = &v
	}
	if n.Position != (mgl32.Vec3{}) {
		t := [3]float32(n.Position)
		d.Translation = &t
	}
	if n.Rotation != mgl32.QuatIdent() && n.Rotation != (mgl32.Quat{}) {
		r := [4]float32{n.Rotation.V[0], n.Rotation.V[1], n.Rotation.V[2], n.Rotation.W}
		d.Rotation = &r
	}
	if n.Scale != (mgl32.Vec3{1, 1, 1}) && n.Scale != (mgl32.Vec3{}) {
		s := [3]float32(n.Scale)
		d.Scale = &s
	}
	if n.Geometry != nil {
		d.Positions = n.Geometry.Positions
		d.Colors = n.Geometry.Colors
	}
	if n.Material != nil {
		c := n.Material.Color.Hex()
		o := n.Material.Opacity
		d.Material = &materialDoc{Color: &c, Opacity: &o, PointSize: n.Material.PointSize}
	}
	for _, c := range n.Children {
		d.Children = append(d.Children, docFor(c))
	}
	return d
}

var gltfMagic = []byte("glTF")

// sniff picks a decoder for payloads whose extension has none registered.
func sniff(key string, data []byte) (*scene.Node, error) {
	if bytes.HasPrefix(data, gltfMagic) {
		return nil, fmt.Errorf("decode %s: binary glTF needs a registered decoder: %w", key, ErrUnsupportedFormat)
	}
	if t := bytes.TrimSpace(data); len(t) > 0 && t[0] == '{' {
		return DecodeScene(key, data)
	}
	return nil, fmt.Errorf("decode %s: %w", key, ErrUnsupportedFormat)
}
