package egg

import (
	"testing"

	"github.com/binzume/eggconv/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lodEgg = `
<VertexPool> p {
  <Vertex> 0 { 0 0 0 }
  <Vertex> 1 { 1 0 0 }
  <Vertex> 2 { 1 1 0 }
}
<Group> tree {
  <Group> lod0 {
    <SwitchCondition> { <Distance> { 50 0 <Vertex> { 0 0 0 } } }
    <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } }
  }
  <Group> lod1 {
    <SwitchCondition> { <Distance> { 200 50 <Vertex> { 0 0 0 } } }
    <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } }
  }
  <Group> collision_box {
    <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } }
  }
  <Group> wall {
    <Collide> { polyset keep descend }
    <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } }
  }
  <Group> footprint {
    <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } }
  }
}`

func TestGroupLODPolicy(t *testing.T) {
	scene := importString(t, lodEgg, nil)
	assert.Contains(t, scene.Nodes, "tree/lod0")
	assert.Contains(t, scene.Nodes, "tree/lod1")
	assert.Equal(t, &LODRange{Max: 200, Min: 50}, scene.Nodes["tree/lod1"].LOD)

	opts := DefaultOptions()
	opts.LODPolicy = LODHighestOnly
	scene = importString(t, lodEgg, opts)
	assert.Contains(t, scene.Nodes, "tree/lod0")
	assert.NotContains(t, scene.Nodes, "tree/lod1")
}

func TestGroupCollisionAndFootprint(t *testing.T) {
	scene := importString(t, lodEgg, nil)
	assert.NotContains(t, scene.Nodes, "tree/collision_box")
	assert.NotContains(t, scene.Nodes, "tree/wall")
	assert.Contains(t, scene.Nodes, "tree/footprint")
	assert.Len(t, scene.Meshes, 3)

	opts := DefaultOptions()
	opts.ImportCollision = true
	opts.SkipFootprints = true
	scene = importString(t, lodEgg, opts)
	assert.Contains(t, scene.Nodes, "tree/collision_box")
	assert.Contains(t, scene.Nodes, "tree/wall")
	assert.NotContains(t, scene.Nodes, "tree/footprint")
	assert.Len(t, scene.Meshes, 4)
}

func TestGroupHierarchy(t *testing.T) {
	scene := importString(t, `
<VertexPool> p {
  <Vertex> 0 { 0 0 0 }
  <Vertex> 1 { 1 0 0 }
  <Vertex> 2 { 1 1 0 }
}
<Group> pivot {
  <Transform> { <Translate> { 1 2 3 } }
  <Group> arm {
    <Transform> { <RotZ> { 90 } <Translate> { 1 0 0 } }
  }
  <Group> arm {
  }
}
<Group> baked {
  <Transform> { <Translate> { 5 5 5 } }
  <Polygon> { <VertexRef> { 0 1 2 <Ref> { p } } }
}`, nil)

	pivot := scene.Nodes["pivot"]
	require.NotNil(t, pivot)
	assert.Equal(t, scene.Root, pivot.Parent)
	require.NotNil(t, pivot.Transform)
	assert.Equal(t, [3]float32{1, 3, 2}, [3]float32{pivot.Transform[12], pivot.Transform[13], pivot.Transform[14]})

	arm := scene.Nodes["pivot/arm"]
	require.NotNil(t, arm)
	p := arm.Transform.ApplyTo(&geom.Vector3{X: 1})
	assert.InDelta(t, 1, p.X, 1e-5)
	assert.InDelta(t, 0, p.Y, 1e-5)
	assert.InDelta(t, 1, p.Z, 1e-5)

	// duplicate sibling names get distinct paths
	assert.Equal(t, "arm", scene.Nodes["pivot/arm.1"].Name)
	assert.Len(t, pivot.Children, 2)

	baked := scene.Nodes["baked"]
	require.NotNil(t, baked)
	assert.Nil(t, baked.Transform)
	require.NotNil(t, baked.Mesh)
	assert.Equal(t, "baked", baked.Mesh.Path)
}

func TestLODRangeNumberError(t *testing.T) {
	_, err := Import(splitLines(`
<Group> lod {
  <SwitchCondition> { <Distance> { far 0 <Vertex> { 0 0 0 } } }
}`), "bad", nil)
	var perr *ParseError
	assert.ErrorAs(t, err, &perr)
}
