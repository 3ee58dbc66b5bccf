package egg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitLines(s string) []string {
	return strings.Split(strings.TrimPrefix(s, "\n"), "\n")
}

func TestFindBlockEnd(t *testing.T) {
	lines := splitLines(`
<Group> a {
  <Polygon> { <VertexRef> { 1 2 3 } }
}
<Texture> t { "a{b" }
<Group> c { // {
}
<Group> b {`)

	assert.Equal(t, 2, FindBlockEnd(lines, 0))
	assert.Equal(t, 1, FindBlockEnd(lines, 1))
	assert.Equal(t, 3, FindBlockEnd(lines, 3), "brace in string")
	assert.Equal(t, 5, FindBlockEnd(lines, 4), "brace in comment")
	assert.Equal(t, -1, FindBlockEnd(lines, 6))
	assert.Equal(t, -1, FindBlockEnd(lines, 100))
}

func TestParseLines(t *testing.T) {
	lines := splitLines(`
<CoordinateSystem> { Z-Up }
<Vertex> 3 {
  1 2 3
  <UV> ov { 0.5 0.25 }
  // root:0.5 arm:0.5
}`)

	elements, errs := ParseLines(lines)
	require.Empty(t, errs)
	require.Len(t, elements, 2)

	assert.True(t, elements[0].Is("coordinatesystem"))
	assert.Equal(t, []string{"Z-Up"}, elements[0].Values)

	v := elements[1]
	assert.Equal(t, "Vertex", v.Tag)
	assert.Equal(t, "3", v.Name)
	assert.Equal(t, []string{"1", "2", "3"}, v.Values)
	assert.Equal(t, []string{"root:0.5 arm:0.5"}, v.Comments)
	assert.Equal(t, 1, v.Line)
	assert.Equal(t, 5, v.EndLine)

	uv := v.Child("UV")
	require.NotNil(t, uv)
	assert.Equal(t, "ov", uv.Name)
	f, err := uv.Floats()
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, f)
}

func TestParseLinesQuotedNames(t *testing.T) {
	elements, errs := ParseLines([]string{`<Table> "<skeleton>" { <Table> "left arm" { } }`})
	require.Empty(t, errs)
	require.Len(t, elements, 1)
	assert.Equal(t, "<skeleton>", elements[0].Name)
	require.Len(t, elements[0].Children, 1)
	assert.Equal(t, "left arm", elements[0].Children[0].Name)
}

func TestParseLinesUnmatched(t *testing.T) {
	lines := splitLines(`
<Group> broken {
  <Polygon> {
    <VertexRef> { 0 1 2 }
  }
<Group> ok {
}`)

	elements, errs := ParseLines(lines)
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Line)

	require.Len(t, elements, 2)
	assert.True(t, elements[0].Is("Polygon"))
	assert.True(t, elements[1].Is("Group"))
	assert.Equal(t, "ok", elements[1].Name)
}

func TestElementNumbers(t *testing.T) {
	elements, _ := ParseLines([]string{"<V> { 1 2 x }"})
	require.Len(t, elements, 1)

	_, err := elements[0].Floats()
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Line)
	assert.Equal(t, "x", perr.Text)

	_, err = elements[0].FloatsN(4)
	assert.ErrorAs(t, err, &perr)
}
