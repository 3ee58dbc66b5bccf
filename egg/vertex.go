package egg

import (
	"sort"
	"strconv"
	"strings"

	"github.com/binzume/eggconv/geom"
)

// overlayUVSynonyms are the uv-set names treated as the overlay channel.
var overlayUVSynonyms = map[string]bool{
	"ov": true, "ov0": true, "ov1": true, "overlay": true,
	"multitex": true, "multi": true,
	"uvset1": true, "uv1": true, "uvmap1": true, "map2": true, "lightmap": true,
}

// CanonicalUVName maps the overlay synonyms to OverlayUVName and lower-cases other names.
func CanonicalUVName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if overlayUVSynonyms[n] {
		return OverlayUVName
	}
	return n
}

// Vertex is a `<Vertex>` entry converted to Y-up.
type Vertex struct {
	Index     int // position in the pool, file order
	Pool      string
	ID        int
	Position  geom.Vector3
	Normal    geom.Vector3
	HasNormal bool
	UV        geom.Vector2
	HasUV     bool
	NamedUVs  map[string]geom.Vector2
	Color     geom.Vector4
	// BoneWeights from `// joint:weight` comments.
	BoneWeights map[string]float32
	Line        int
}

// Overlay returns the overlay UV. Any other named set is used when no overlay synonym was declared.
func (v *Vertex) Overlay() (geom.Vector2, bool) {
	if uv, ok := v.NamedUVs[OverlayUVName]; ok {
		return uv, true
	}
	if len(v.NamedUVs) == 0 {
		return geom.Vector2{}, false
	}
	names := make([]string, 0, len(v.NamedUVs))
	for n := range v.NamedUVs {
		names = append(names, n)
	}
	sort.Strings(names)
	return v.NamedUVs[names[0]], true
}

// VertexPool holds every vertex of a file in file order.
type VertexPool struct {
	Vertices []*Vertex
	byRef    map[string]map[int]int
}

// NewVertexPool returns an empty pool.
func NewVertexPool() *VertexPool {
	return &VertexPool{byRef: map[string]map[int]int{}}
}

func (p *VertexPool) Len() int {
	return len(p.Vertices)
}

func (p *VertexPool) Add(v *Vertex) {
	v.Index = len(p.Vertices)
	p.Vertices = append(p.Vertices, v)
	ids := p.byRef[v.Pool]
	if ids == nil {
		ids = map[int]int{}
		p.byRef[v.Pool] = ids
	}
	if _, exists := ids[v.ID]; !exists {
		ids[v.ID] = v.Index
	}
}

// Resolve maps a vertex reference to a pool index. An unknown or empty pool name
// treats id as a pool index.
func (p *VertexPool) Resolve(pool string, id int) (int, bool) {
	if ids, ok := p.byRef[pool]; ok {
		i, ok := ids[id]
		return i, ok
	}
	if id < 0 || id >= len(p.Vertices) {
		return 0, false
	}
	return id, true
}

// ResolveRefs resolves the ids of a `<VertexRef>` element.
func (p *VertexPool) ResolveRefs(ref *Element) ([]int, error) {
	ids, err := ref.Ints()
	if err != nil {
		return nil, err
	}
	pool := ""
	if r := ref.Child("Ref"); r != nil && len(r.Values) > 0 {
		pool = r.Values[0]
	}
	result := make([]int, len(ids))
	for i, id := range ids {
		g, ok := p.Resolve(pool, id)
		if !ok {
			return nil, &StructureError{Line: ref.Line + 1, Msg: "vertex " + strconv.Itoa(id) + " not found in pool " + strconv.Quote(pool)}
		}
		result[i] = g
	}
	return result, nil
}

// ParseAllTexturesAndVertices collects texture declarations and vertex pools anywhere in the tree.
func ParseAllTexturesAndVertices(root []*Element) (*VertexPool, map[string]*Texture, error) {
	textures := map[string]*Texture{}
	walkElements(root, func(e *Element) bool {
		if e.Is("Texture") {
			t := parseTexture(e)
			textures[t.Name] = t
			return false
		}
		return !e.Is("VertexPool")
	})
	uvSets := map[string]bool{}
	for _, t := range textures {
		if t.UVName != "" {
			uvSets[t.UVName] = true
		}
	}

	pool := NewVertexPool()
	var err error
	walkElements(root, func(e *Element) bool {
		if err != nil {
			return false
		}
		if !e.Is("VertexPool") {
			return !e.Is("Texture")
		}
		for _, ve := range e.ChildrenByTag("Vertex") {
			var v *Vertex
			v, err = parseVertex(ve, e.Name, uvSets)
			if err != nil {
				return false
			}
			if v.ID < 0 {
				v.ID = len(pool.byRef[e.Name])
			}
			pool.Add(v)
		}
		return false
	})
	if err != nil {
		return nil, nil, err
	}
	return pool, textures, nil
}

func parseTexture(e *Element) *Texture {
	t := &Texture{Name: e.Name, Scalars: map[string]string{}}
	if len(e.Values) > 0 {
		t.Path = e.Values[0]
	}
	for _, s := range e.ChildrenByTag("Scalar") {
		if len(s.Values) > 0 {
			t.Scalars[strings.ToLower(s.Name)] = s.Values[0]
		}
	}
	if uv, ok := t.Scalars["uv-name"]; ok {
		t.RawUVName = uv
		t.UVName = CanonicalUVName(uv)
	}
	return t
}

func parseVertex(e *Element, pool string, uvSets map[string]bool) (*Vertex, error) {
	v := &Vertex{Pool: pool, ID: -1, Color: geom.Vector4{X: 1, Y: 1, Z: 1, W: 1}, Line: e.Line + 1}
	if e.Name != "" {
		id, err := strconv.Atoi(e.Name)
		if err != nil {
			return nil, &ParseError{Line: e.Line + 1, Tag: e.Tag, Text: e.Name, Err: err}
		}
		v.ID = id
	}
	p, err := e.FloatsN(3)
	if err != nil {
		return nil, err
	}
	v.Position = *geom.NewVector3ZUp(p[0], p[1], p[2])

	for _, c := range e.Children {
		switch {
		case c.Is("Normal"):
			n, err := c.FloatsN(3)
			if err != nil {
				return nil, err
			}
			v.Normal = *geom.NewVector3ZUp(n[0], n[1], n[2])
			v.HasNormal = true
		case c.Is("UV"):
			uv, err := c.FloatsN(2)
			if err != nil {
				return nil, err
			}
			name := CanonicalUVName(c.Name)
			if name == "" || (!uvSets[name] && name != OverlayUVName && !v.HasUV) {
				v.UV = geom.Vector2{X: uv[0], Y: uv[1]}
				v.HasUV = true
				continue
			}
			if v.NamedUVs == nil {
				v.NamedUVs = map[string]geom.Vector2{}
			}
			v.NamedUVs[name] = geom.Vector2{X: uv[0], Y: uv[1]}
		case c.Is("RGBA"):
			rgba, err := c.FloatsN(4)
			if err != nil {
				return nil, err
			}
			v.Color = geom.Vector4{X: rgba[0], Y: rgba[1], Z: rgba[2], W: rgba[3]}
		}
	}
	for _, comment := range e.Comments {
		for name, w := range parseWeightComment(comment) {
			if v.BoneWeights == nil {
				v.BoneWeights = map[string]float32{}
			}
			v.BoneWeights[name] = w
		}
	}
	return v, nil
}

// parseWeightComment reads `joint:weight` pairs. Other words are ignored.
func parseWeightComment(s string) map[string]float32 {
	var r map[string]float32
	for _, f := range strings.Fields(s) {
		i := strings.LastIndexByte(f, ':')
		if i <= 0 || i == len(f)-1 {
			continue
		}
		w, err := parseFloat(strings.TrimRight(f[i+1:], ","))
		if err != nil {
			continue
		}
		if r == nil {
			r = map[string]float32{}
		}
		r[f[:i]] = w
	}
	return r
}
