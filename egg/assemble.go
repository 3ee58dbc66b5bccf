package egg

import (
	"fmt"
	"log"
	"sort"

	"github.com/binzume/eggconv/geom"
)

// MaxInfluences is the number of joints kept per vertex.
const MaxInfluences = 4

// AssembleMesh builds the mesh of one hierarchy path from its accumulated polygons.
// Skinning is attached when skel has joints. A mesh that cannot be skinned stays static.
func AssembleMesh(name string, g *Geometry, pool *VertexPool, skel *Skeleton) (*Mesh, error) {
	return assembleMesh(name, g, pool, skel, func(err error) { log.Print("WARNING: ", err) })
}

func assembleMesh(name string, g *Geometry, pool *VertexPool, skel *Skeleton, warn func(error)) (*Mesh, error) {
	used := map[int]bool{}
	for _, key := range g.Keys {
		for _, idx := range g.Buckets[key] {
			if idx < 0 || idx >= pool.Len() {
				return nil, fmt.Errorf("%w: %s: vertex %d out of pool", ErrIndexRemap, g.Path, idx)
			}
			used[idx] = true
		}
	}
	global := make([]int, 0, len(used))
	for idx := range used {
		global = append(global, idx)
	}
	sort.Ints(global)

	m := &Mesh{
		Name:          name,
		Path:          g.Path,
		Positions:     make([]geom.Vector3, len(global)),
		Normals:       make([]geom.Vector3, len(global)),
		UVs:           make([]geom.Vector2, len(global)),
		Colors:        make([]geom.Vector4, len(global)),
		globalIndices: global,
		localIndices:  make(map[int]int, len(global)),
	}
	hasOverlay := false
	for local, idx := range global {
		m.localIndices[idx] = local
		v := pool.Vertices[idx]
		m.Positions[local] = v.Position
		m.Normals[local] = v.Normal
		m.UVs[local] = v.UV
		m.Colors[local] = v.Color
		if _, ok := v.Overlay(); ok {
			hasOverlay = true
		}
	}
	if hasOverlay {
		m.OverlayUVs = make([]geom.Vector2, len(global))
		for local, idx := range global {
			if uv, ok := pool.Vertices[idx].Overlay(); ok {
				m.OverlayUVs[local] = uv
			} else {
				m.OverlayUVs[local] = pool.Vertices[idx].UV
			}
		}
	}

	for _, key := range g.Keys {
		src := g.Buckets[key]
		sub := &Submesh{Material: key, Indices: make([]int, len(src))}
		for i, idx := range src {
			local, ok := m.localIndices[idx]
			if !ok {
				return nil, fmt.Errorf("%w: %s: vertex %d", ErrIndexRemap, g.Path, idx)
			}
			sub.Indices[i] = local
		}
		m.Submeshes = append(m.Submeshes, sub)
	}

	if skel != nil && skel.Len() > 0 {
		skin, err := BuildSkin(m, skel)
		if err != nil {
			warn(fmt.Errorf("%s: static mesh: %w", g.Path, err))
		} else {
			m.Skin = skin
		}
	}
	return m, nil
}

type influence struct {
	joint  int
	weight float32
}

// BuildSkin computes joint influences and bind poses of a mesh.
func BuildSkin(m *Mesh, skel *Skeleton) (*Skin, error) {
	if skel == nil || skel.Len() == 0 {
		return nil, ErrNoSkeleton
	}
	skin := &Skin{
		Joints:      skel.Joints,
		BindPoses:   make([]*geom.Matrix4, skel.Len()),
		BoneIndices: make([][4]int, len(m.globalIndices)),
		BoneWeights: make([][4]float32, len(m.globalIndices)),
	}
	for i, j := range skel.Joints {
		world := j.World()
		if world.Det() == 0 {
			return nil, fmt.Errorf("egg: joint %s: singular bind matrix", j.Name)
		}
		skin.BindPoses[i] = world.Inverse()
	}

	for local, idx := range m.globalIndices {
		var inf []influence
		for i, j := range skel.Joints {
			if w, ok := j.Weights[idx]; ok && w > 0 {
				inf = append(inf, influence{i, w})
			}
		}
		sort.SliceStable(inf, func(a, b int) bool { return inf[a].weight > inf[b].weight })
		if len(inf) > MaxInfluences {
			inf = inf[:MaxInfluences]
		}
		var total float32
		for _, f := range inf {
			total += f.weight
		}
		if total <= 0 {
			skin.BoneWeights[local][0] = 1
			continue
		}
		for k, f := range inf {
			skin.BoneIndices[local][k] = f.joint
			skin.BoneWeights[local][k] = f.weight / total
		}
	}
	return skin, nil
}
