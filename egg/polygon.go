package egg

import (
	"strings"

	"github.com/binzume/eggconv/geom"
)

// Polygon is a triangulated `<Polygon>`.
type Polygon struct {
	Key       string
	Textures  []string
	Vertices  []int // pool indices in file order
	Triangles []int // pool indices, three per triangle
	Line      int
}

// MultiTexture reports whether the polygon references more than one texture.
func (p *Polygon) MultiTexture() bool {
	return len(p.Textures) > 1
}

// Secondary returns the texture names after the first.
func (p *Polygon) Secondary() []string {
	if len(p.Textures) < 2 {
		return nil
	}
	return p.Textures[1:]
}

// MaterialKey builds the submesh key of a texture reference list.
func MaterialKey(textures []string) string {
	if len(textures) == 0 {
		return DefaultMaterialKey
	}
	return strings.Join(textures, MaterialKeyDelimiter)
}

// SplitMaterialKey is the inverse of MaterialKey.
func SplitMaterialKey(key string) []string {
	if key == DefaultMaterialKey || key == "" {
		return nil
	}
	return strings.Split(key, MaterialKeyDelimiter)
}

// ParsePolygon reads one `<Polygon>` element. It returns nil without error when the polygon
// is a collision polygon and collision import is disabled.
func ParsePolygon(el *Element, pool *VertexPool, opts *Options) (*Polygon, error) {
	if !opts.ImportCollision && el.Child("Collide") != nil {
		return nil, nil
	}
	poly := &Polygon{Line: el.Line + 1}
	for _, c := range el.Children {
		switch {
		case c.Is("TRef"):
			if len(c.Values) > 0 {
				poly.Textures = append(poly.Textures, c.Values[0])
			}
		case c.Is("VertexRef"):
			ids, err := pool.ResolveRefs(c)
			if err != nil {
				return nil, err
			}
			poly.Vertices = append(poly.Vertices, ids...)
		}
	}
	poly.Key = MaterialKey(poly.Textures)
	poly.Triangles = triangulate(poly.Vertices, pool, opts.EarClipPolygons)
	return poly, nil
}

// triangulate emits triangles with the winding flipped for the Y-up conversion.
func triangulate(v []int, pool *VertexPool, earClip bool) []int {
	switch {
	case len(v) < 3:
		return nil
	case len(v) == 3:
		return []int{v[0], v[2], v[1]}
	case len(v) == 4:
		return []int{v[0], v[2], v[1], v[0], v[3], v[2]}
	}
	if earClip {
		points := make([]*geom.Vector3, len(v))
		for i, idx := range v {
			points[i] = &pool.Vertices[idx].Position
		}
		tris := geom.Triangulate(points)
		if len(tris) == len(v)-2 {
			r := make([]int, 0, len(tris)*3)
			for _, t := range tris {
				r = append(r, v[t[0]], v[t[2]], v[t[1]])
			}
			return r
		}
	}
	r := make([]int, 0, (len(v)-2)*3)
	for i := 1; i < len(v)-1; i++ {
		r = append(r, v[0], v[i+1], v[i])
	}
	return r
}

// Geometry accumulates the polygons of one hierarchy path.
type Geometry struct {
	Path    string
	Keys    []string // submesh keys in first use order
	Buckets map[string][]int
}

// NewGeometry returns an empty accumulator for path.
func NewGeometry(path string) *Geometry {
	return &Geometry{Path: path, Buckets: map[string][]int{}}
}

func (g *Geometry) Add(p *Polygon) {
	if len(p.Triangles) == 0 {
		return
	}
	if _, ok := g.Buckets[p.Key]; !ok {
		g.Keys = append(g.Keys, p.Key)
	}
	g.Buckets[p.Key] = append(g.Buckets[p.Key], p.Triangles...)
}

// Empty reports whether no triangle was added.
func (g *Geometry) Empty() bool {
	return len(g.Keys) == 0
}
