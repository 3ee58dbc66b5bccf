package egg

import (
	"strings"

	"github.com/binzume/eggconv/geom"
)

const (
	// DefaultMaterialKey is the submesh key of polygons without a texture reference.
	DefaultMaterialKey = "__default__"
	// MaterialKeyDelimiter joins texture names of multi-texture polygons.
	MaterialKeyDelimiter = "|"
	// OverlayUVName is the canonical name of the secondary UV set.
	OverlayUVName = "overlay"
)

// Texture is a `<Texture>` declaration.
type Texture struct {
	Name      string
	Path      string
	UVName    string // canonical uv-name, empty for the primary set
	RawUVName string
	Scalars   map[string]string
}

// Node is one entry of the group hierarchy.
type Node struct {
	Name      string
	Path      string
	Parent    *Node
	Children  []*Node
	Transform *geom.Matrix4 // local, Y-up. nil for identity
	Mesh      *Mesh
	LOD       *LODRange
	Line      int
}

// LODRange is the switch distance of a LOD group.
type LODRange struct {
	Max float32
	Min float32
}

// Submesh is the triangle list of one material key.
type Submesh struct {
	Material string
	Indices  []int
}

// Skin holds per vertex joint influences of a mesh.
type Skin struct {
	Joints      []*Joint
	BindPoses   []*geom.Matrix4
	BoneIndices [][4]int
	BoneWeights [][4]float32
}

// Mesh is the assembled geometry of one hierarchy path.
type Mesh struct {
	Name       string
	Path       string
	Positions  []geom.Vector3
	Normals    []geom.Vector3
	UVs        []geom.Vector2
	OverlayUVs []geom.Vector2 // nil when no vertex has an overlay set
	Colors     []geom.Vector4
	Submeshes  []*Submesh
	Skin       *Skin

	UVDecision      UVDecision
	OverlayDecision UVDecision

	globalIndices []int
	localIndices  map[int]int
}

// GlobalIndex returns the pool index of a local vertex.
func (m *Mesh) GlobalIndex(local int) int {
	return m.globalIndices[local]
}

// LocalIndex returns the mesh local index of a pool vertex.
func (m *Mesh) LocalIndex(global int) (int, bool) {
	i, ok := m.localIndices[global]
	return i, ok
}

// Materials returns submesh keys in submesh order.
func (m *Mesh) Materials() []string {
	r := make([]string, len(m.Submeshes))
	for i, s := range m.Submeshes {
		r[i] = s.Material
	}
	return r
}

func (m *Mesh) isMultiTexture() bool {
	for _, s := range m.Submeshes {
		if strings.Contains(s.Material, MaterialKeyDelimiter) {
			return true
		}
	}
	return false
}

// TextureBinding is a texture used by a material.
type TextureBinding struct {
	Texture *Texture
	Role    string // "base" or "overlay"
	UVSet   string
	Missing bool // file not found
}

// Material is the resolved form of one submesh key.
type Material struct {
	Name          string
	Base          *TextureBinding
	Layers        []*TextureBinding
	FallbackColor *geom.Vector4
	Synthesized   bool
}

// Scene is the result of an import.
type Scene struct {
	Name             string
	CoordinateSystem string
	Root             *Node
	Nodes            map[string]*Node
	Meshes           []*Mesh
	Skeleton         *Skeleton
	Clips            []*Clip
	Textures         map[string]*Texture
	Materials        []*Material
	// SecondaryTextures names textures used only as overlays.
	SecondaryTextures map[string]bool
	Warnings          []string
}

// Material returns the material of a submesh key.
func (s *Scene) Material(key string) *Material {
	for _, m := range s.Materials {
		if m.Name == key {
			return m
		}
	}
	return nil
}

// Walk visits nodes in depth first order.
func (s *Scene) Walk(fn func(n *Node, depth int)) {
	var walk func(n *Node, depth int)
	walk = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	if s.Root != nil {
		walk(s.Root, 0)
	}
}
