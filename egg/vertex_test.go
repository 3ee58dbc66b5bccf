package egg

import (
	"testing"

	"github.com/binzume/eggconv/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vertexPoolEgg = `
<Texture> grass {
  "tex/grass.png"
}
<Texture> detail {
  "tex/detail.png"
  <Scalar> uv-name { MultiTex }
}
<VertexPool> ground {
  <Vertex> 0 {
    1 2 3
    <Normal> { 0 0 1 }
    <UV> { 0.25 0.5 }
    <UV> ov1 { 0.75 1 }
    <RGBA> { 1 0 0 0.5 }
  }
  <Vertex> 1 {
    4 5 6
    <UV> extra { 0.1 0.2 }
    // root:0.25 arm:0.75 note
  }
}
<VertexPool> second {
  <Vertex> 0 { 7 8 9 }
}`

func parsePool(t *testing.T, src string) (*VertexPool, map[string]*Texture) {
	t.Helper()
	elements, errs := ParseLines(splitLines(src))
	require.Empty(t, errs)
	pool, textures, err := ParseAllTexturesAndVertices(elements)
	require.NoError(t, err)
	return pool, textures
}

func TestCanonicalUVName(t *testing.T) {
	for _, name := range []string{"ov", "OV0", "ov1", "overlay", "multitex", "Multi", "uvset1", "uv1", "UVMap1", "map2", "lightmap"} {
		assert.Equal(t, OverlayUVName, CanonicalUVName(name), name)
	}
	assert.Equal(t, "detail", CanonicalUVName("Detail"))
	assert.Equal(t, "", CanonicalUVName(""))
}

func TestParseAllTexturesAndVertices(t *testing.T) {
	pool, textures := parsePool(t, vertexPoolEgg)

	require.Len(t, textures, 2)
	assert.Equal(t, "tex/grass.png", textures["grass"].Path)
	assert.Equal(t, "", textures["grass"].UVName)
	assert.Equal(t, "MultiTex", textures["detail"].RawUVName)
	assert.Equal(t, OverlayUVName, textures["detail"].UVName)

	require.Equal(t, 3, pool.Len())
	v0 := pool.Vertices[0]
	assert.Equal(t, geom.Vector3{X: 1, Y: 3, Z: 2}, v0.Position)
	assert.True(t, v0.HasNormal)
	assert.Equal(t, geom.Vector3{X: 0, Y: 1, Z: 0}, v0.Normal)
	assert.Equal(t, geom.Vector2{X: 0.25, Y: 0.5}, v0.UV)
	ov, ok := v0.Overlay()
	assert.True(t, ok)
	assert.Equal(t, geom.Vector2{X: 0.75, Y: 1}, ov)
	assert.Equal(t, geom.Vector4{X: 1, Y: 0, Z: 0, W: 0.5}, v0.Color)

	// unrecognized set name on a vertex without a primary UV is the primary set
	v1 := pool.Vertices[1]
	assert.True(t, v1.HasUV)
	assert.Equal(t, geom.Vector2{X: 0.1, Y: 0.2}, v1.UV)
	_, ok = v1.Overlay()
	assert.False(t, ok)
	assert.Equal(t, geom.Vector4{X: 1, Y: 1, Z: 1, W: 1}, v1.Color)
	assert.Equal(t, map[string]float32{"root": 0.25, "arm": 0.75}, v1.BoneWeights)

	v2 := pool.Vertices[2]
	assert.Equal(t, "second", v2.Pool)
	assert.Equal(t, 2, v2.Index)
}

func TestVertexPoolResolve(t *testing.T) {
	pool, _ := parsePool(t, vertexPoolEgg)

	idx, ok := pool.Resolve("second", 0)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	idx, ok = pool.Resolve("ground", 1)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = pool.Resolve("second", 5)
	assert.False(t, ok)

	// unknown pools fall back to pool indices
	idx, ok = pool.Resolve("", 2)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)
	_, ok = pool.Resolve("", 3)
	assert.False(t, ok)
}

func TestParseVertexNumberError(t *testing.T) {
	elements, _ := ParseLines(splitLines(`
<VertexPool> p {
  <Vertex> 0 { 0 abc 0 }
}`))
	_, _, err := ParseAllTexturesAndVertices(elements)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}

func TestParseWeightComment(t *testing.T) {
	assert.Equal(t, map[string]float32{"a": 0.5, "b:c": 1}, parseWeightComment("a:0.5 b:c:1 skip: :2 x:y"))
	assert.Nil(t, parseWeightComment("just a comment"))
}
