package egg

import (
	"testing"

	"github.com/binzume/eggconv/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const characterEgg = `
<CoordinateSystem> { Z-Up }
<VertexPool> body {
  <Vertex> 0 { 0 0 0 }
  <Vertex> 1 { 0 0 1 }
  <Vertex> 2 {
    0 0 2
    // child:0.5 ghost:1
  }
  <Vertex> 3 {
    1 0 2
    // root:0.25
  }
}
<Group> character {
  <Dart> { 1 }
  <Group> mesh {
    <Polygon> { <VertexRef> { 0 1 2 3 <Ref> { body } } }
  }
  <Joint> root {
    <Transform> {
      <Matrix4> {
        1 0 0 0
        0 1 0 0
        0 0 1 0
        0 0 1 1
      }
    }
    <DefaultPose> { <Transform> { <Translate> { 9 9 9 } } }
    <VertexRef> { 0 1 <Scalar> membership { 0.75 } <Ref> { body } }
    <Joint> child {
      <Transform> { <Translate> { 0 0 2 } }
      <VertexRef> { 1 <Ref> { body } }
    }
  }
}`

func TestParseJoint(t *testing.T) {
	scene := importString(t, characterEgg, nil)
	skel := scene.Skeleton
	require.NotNil(t, skel)
	require.Equal(t, 2, skel.Len())

	root := skel.Joint("root")
	child := skel.Joint("child")
	require.NotNil(t, root)
	require.NotNil(t, child)
	assert.Equal(t, root, skel.Root)
	assert.Equal(t, root, child.Parent)
	assert.Equal(t, []*Joint{child}, root.Children)
	assert.Equal(t, 0, root.Index)
	assert.Equal(t, 1, child.Index)

	assert.Equal(t, float32(1), root.Local[13])
	world := child.World()
	assert.InDelta(t, 3, world[13], 1e-6)

	// membership applies to every listed vertex, comments only fill missing entries
	assert.Equal(t, map[int]float32{0: 0.75, 1: 0.75, 3: 0.25}, root.Weights)
	assert.Equal(t, map[int]float32{1: 1, 2: 0.5}, child.Weights)
	assert.Contains(t, scene.Warnings, "vertex weight for unknown joint ghost")
}

func TestSkinning(t *testing.T) {
	scene := importString(t, characterEgg, nil)
	require.Len(t, scene.Meshes, 1)
	mesh := scene.Meshes[0]
	require.NotNil(t, mesh.Skin)
	skin := mesh.Skin

	require.Len(t, skin.BindPoses, 2)
	inv := skin.BindPoses[1]
	assert.InDelta(t, -3, inv[13], 1e-6)

	assert.Equal(t, [4]int{0, 0, 0, 0}, skin.BoneIndices[0])
	assert.Equal(t, [4]float32{1, 0, 0, 0}, skin.BoneWeights[0])

	assert.Equal(t, [4]int{1, 0, 0, 0}, skin.BoneIndices[1])
	assert.InDelta(t, 1/1.75, skin.BoneWeights[1][0], 1e-6)
	assert.InDelta(t, 0.75/1.75, skin.BoneWeights[1][1], 1e-6)

	assert.Equal(t, [4]int{1, 0, 0, 0}, skin.BoneIndices[2])
	assert.Equal(t, [4]float32{1, 0, 0, 0}, skin.BoneWeights[2])
}

func TestSkipSkeletal(t *testing.T) {
	opts := DefaultOptions()
	opts.SkipSkeletal = true
	scene := importString(t, characterEgg, opts)
	assert.Nil(t, scene.Skeleton)
	require.Len(t, scene.Meshes, 1)
	assert.Nil(t, scene.Meshes[0].Skin)
}

func TestBuildSkinTopInfluences(t *testing.T) {
	skel := NewSkeleton()
	weights := []float32{0.1, 0.2, 0.3, 0.4, 0.5}
	for i, w := range weights {
		skel.Add(&Joint{Name: string(rune('a' + i)), Local: geom.NewMatrix4(), Weights: map[int]float32{7: w}})
	}
	mesh := &Mesh{globalIndices: []int{7, 8}}

	skin, err := BuildSkin(mesh, skel)
	require.NoError(t, err)
	assert.Equal(t, [4]int{4, 3, 2, 1}, skin.BoneIndices[0])
	var sum float32
	for _, w := range skin.BoneWeights[0] {
		sum += w
	}
	assert.InDelta(t, 1, sum, 1e-6)
	assert.InDelta(t, 0.5/1.4, skin.BoneWeights[0][0], 1e-6)

	// no influences: fully bound to the first joint
	assert.Equal(t, [4]float32{1, 0, 0, 0}, skin.BoneWeights[1])

	_, err = BuildSkin(mesh, NewSkeleton())
	assert.ErrorIs(t, err, ErrNoSkeleton)
}

func TestSingularBindPoseKeepsMeshStatic(t *testing.T) {
	pool, _ := parsePool(t, polygonPoolEgg)
	skel := NewSkeleton()
	skel.Add(&Joint{Name: "flat", Local: geom.NewScaleMatrix4(1, 0, 1), Weights: map[int]float32{}})
	g := NewGeometry("x")
	g.Add(&Polygon{Key: DefaultMaterialKey, Triangles: []int{0, 2, 1}})

	var warnings []error
	mesh, err := assembleMesh("x", g, pool, skel, func(err error) { warnings = append(warnings, err) })
	require.NoError(t, err)
	assert.Nil(t, mesh.Skin)
	assert.Len(t, warnings, 1)
}
