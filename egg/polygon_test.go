package egg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const polygonPoolEgg = `
<VertexPool> p {
  <Vertex> 10 { 0 0 0 }
  <Vertex> 11 { 2 0 0 }
  <Vertex> 12 { 2 2 0 }
  <Vertex> 13 { 1 3 0 }
  <Vertex> 14 { 0 2 0 }
}`

func parsePolygonElement(t *testing.T, pool *VertexPool, opts *Options, src string) (*Polygon, error) {
	t.Helper()
	elements, errs := ParseLines(splitLines(src))
	require.Empty(t, errs)
	require.Len(t, elements, 1)
	return ParsePolygon(elements[0], pool, opts)
}

func TestParsePolygonWinding(t *testing.T) {
	pool, _ := parsePool(t, polygonPoolEgg)
	opts := DefaultOptions()

	tri, err := parsePolygonElement(t, pool, opts, `<Polygon> { <VertexRef> { 10 11 12 <Ref> { p } } }`)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1}, tri.Triangles)
	assert.Equal(t, DefaultMaterialKey, tri.Key)

	quad, err := parsePolygonElement(t, pool, opts, `<Polygon> { <VertexRef> { 10 11 12 14 <Ref> { p } } }`)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1, 0, 4, 2}, quad.Triangles)
}

func TestParsePolygonEarClip(t *testing.T) {
	pool, _ := parsePool(t, polygonPoolEgg)
	src := `<Polygon> { <VertexRef> { 10 11 12 13 14 <Ref> { p } } }`

	poly, err := parsePolygonElement(t, pool, DefaultOptions(), src)
	require.NoError(t, err)
	require.Len(t, poly.Triangles, 9)
	for _, idx := range poly.Triangles {
		assert.Contains(t, []int{0, 1, 2, 3, 4}, idx)
	}

	opts := DefaultOptions()
	opts.EarClipPolygons = false
	fan, err := parsePolygonElement(t, pool, opts, src)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 1, 0, 3, 2, 0, 4, 3}, fan.Triangles)
}

func TestParsePolygonMaterialKey(t *testing.T) {
	pool, _ := parsePool(t, polygonPoolEgg)

	poly, err := parsePolygonElement(t, pool, DefaultOptions(), `<Polygon> { <TRef> { grass } <TRef> { detail } <TRef> { dirt } <VertexRef> { 0 1 2 } }`)
	require.NoError(t, err)
	assert.Equal(t, "grass|detail|dirt", poly.Key)
	assert.True(t, poly.MultiTexture())
	assert.Equal(t, []string{"detail", "dirt"}, poly.Secondary())
	assert.Equal(t, []string{"grass", "detail", "dirt"}, SplitMaterialKey(poly.Key))
	assert.Nil(t, SplitMaterialKey(DefaultMaterialKey))

	single, err := parsePolygonElement(t, pool, DefaultOptions(), `<Polygon> { <TRef> { grass } <VertexRef> { 0 1 2 } }`)
	require.NoError(t, err)
	assert.Equal(t, "grass", single.Key)
	assert.False(t, single.MultiTexture())
}

func TestParsePolygonCollide(t *testing.T) {
	pool, _ := parsePool(t, polygonPoolEgg)
	src := `<Polygon> { <Collide> { polyset descend } <VertexRef> { 0 1 2 } }`

	poly, err := parsePolygonElement(t, pool, DefaultOptions(), src)
	assert.NoError(t, err)
	assert.Nil(t, poly)

	opts := DefaultOptions()
	opts.ImportCollision = true
	poly, err = parsePolygonElement(t, pool, opts, src)
	assert.NoError(t, err)
	assert.NotNil(t, poly)
}

func TestParsePolygonBadReference(t *testing.T) {
	pool, _ := parsePool(t, polygonPoolEgg)

	_, err := parsePolygonElement(t, pool, DefaultOptions(), `<Polygon> { <VertexRef> { 10 11 99 <Ref> { p } } }`)
	var serr *StructureError
	assert.ErrorAs(t, err, &serr)
}

func TestGeometry(t *testing.T) {
	g := NewGeometry("a/b")
	assert.True(t, g.Empty())
	g.Add(&Polygon{Key: "x", Triangles: []int{0, 2, 1}})
	g.Add(&Polygon{Key: DefaultMaterialKey, Triangles: []int{3, 5, 4}})
	g.Add(&Polygon{Key: "x", Triangles: []int{1, 2, 3}})
	g.Add(&Polygon{Key: "empty"})

	assert.False(t, g.Empty())
	assert.Equal(t, []string{"x", DefaultMaterialKey}, g.Keys)
	assert.Equal(t, []int{0, 2, 1, 1, 2, 3}, g.Buckets["x"])
}
