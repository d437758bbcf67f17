// Package scene is the renderer-neutral scene graph the viewer mutates. The
// render loop reads it every frame; nothing in here draws.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Kind classifies what a node draws.
type Kind string

const (
	KindGroup  Kind = "group"
	KindMesh   Kind = "mesh"
	KindPoints Kind = "points"
	KindLines  Kind = "lines"
)

// Node is one element of the scene graph. Groups carry only children and a
// transform; drawable nodes also carry geometry and a material.
type Node struct {
	Name     string
	Kind     Kind
	Visible  bool
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3
	Geometry *Geometry
	Material *Material
	Children []*Node

	parent *Node
}

// NewGroup returns an empty visible group with an identity transform.
func NewGroup(name string) *Node {
	return &Node{
		Name:     name,
		Kind:     KindGroup,
		Visible:  true,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// NewDrawable returns a visible drawable node of the given kind.
func NewDrawable(name string, kind Kind, geo *Geometry, mat *Material) *Node {
	n := NewGroup(name)
	n.Kind = kind
	n.Geometry = geo
	n.Material = mat
	return n
}

// Parent returns the node this one is attached to, or nil.
func (n *Node) Parent() *Node { return n.parent }

// Add attaches children, detaching each from any previous parent first.
func (n *Node) Add(children ...*Node) {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if c.parent != nil {
			c.parent.Remove(c)
		}
		c.parent = n
		n.Children = append(n.Children, c)
	}
}

// Insert attaches child at index i, clamped to the current child count.
func (n *Node) Insert(i int, child *Node) {
	if child.parent != nil {
		child.parent.Remove(child)
	}
	if i < 0 {
		i = 0
	}
	if i > len(n.Children) {
		i = len(n.Children)
	}
	child.parent = n
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = child
}

// Remove detaches child and reports whether it was present.
func (n *Node) Remove(child *Node) bool {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.parent = nil
			return true
		}
	}
	return false
}

// Traverse visits n and every descendant depth-first, parents before children.
func (n *Node) Traverse(fn func(*Node)) {
	fn(n)
	for _, c := range n.Children {
		c.Traverse(fn)
	}
}

// TraverseVisible is Traverse restricted to nodes whose whole ancestry is visible.
func (n *Node) TraverseVisible(fn func(*Node)) {
	if !n.Visible {
		return
	}
	fn(n)
	for _, c := range n.Children {
		c.TraverseVisible(fn)
	}
}

// Find returns the first node named name in traversal order.
func (n *Node) Find(name string) *Node {
	var found *Node
	n.Traverse(func(c *Node) {
		if found == nil && c.Name == name {
			found = c
		}
	})
	return found
}

// Materials returns every distinct material in the subtree.
func (n *Node) Materials() []*Material {
	seen := make(map[*Material]struct{})
	var out []*Material
	n.Traverse(func(c *Node) {
		if c.Material == nil {
			return
		}
		if _, ok := seen[c.Material]; ok {
			return
		}
		seen[c.Material] = struct{}{}
		out = append(out, c.Material)
	})
	return out
}

// LocalMatrix composes translation, rotation and scale.
func (n *Node) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])
	r := n.Rotation.Normalize().Mat4()
	s := mgl32.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	return t.Mul4(r).Mul4(s)
}

// WorldMatrix composes every ancestor's local matrix with this node's.
func (n *Node) WorldMatrix() mgl32.Mat4 {
	m := n.LocalMatrix()
	for p := n.parent; p != nil; p = p.parent {
		m = p.LocalMatrix().Mul4(m)
	}
	return m
}

// Drawables returns the visible drawable nodes under root, the set a renderer
// would submit for the current frame.
func Drawables(root *Node) []*Node {
	var out []*Node
	root.TraverseVisible(func(n *Node) {
		if n.Kind != KindGroup && n.Geometry != nil {
			out = append(out, n)
		}
	})
	return out
}
