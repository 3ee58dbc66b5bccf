package egg

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/binzume/eggconv/geom"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

type importState struct {
	opts          *Options
	scene         *Scene
	pool          *VertexPool
	geometries    map[string]*Geometry
	geometryOrder []string
	multiTexture  map[int]bool
	polygons      int
}

// Import converts the lines of an EGG file into a scene.
func Import(lines []string, name string, opts *Options) (*Scene, error) {
	return importLines(lines, name, opts, nil)
}

// Load reads an EGG file. Texture paths are checked relative to the file's directory.
func Load(path string, opts *Options) (*Scene, error) {
	if opts != nil && opts.SkipPath(path) {
		return nil, ErrSkipped
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	lines, err := readLines(f)
	if err != nil {
		return nil, fmt.Errorf("egg: %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	exists := func(p string) bool {
		if !filepath.IsAbs(p) {
			p = filepath.Join(dir, filepath.FromSlash(p))
		}
		_, err := os.Stat(p)
		return err == nil
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return importLines(lines, name, opts, exists)
}

// LoadReader reads an EGG file from r.
func LoadReader(r io.Reader, name string, opts *Options) (*Scene, error) {
	lines, err := readLines(r)
	if err != nil {
		return nil, fmt.Errorf("egg: %s: %w", name, err)
	}
	return Import(lines, name, opts)
}

// readLines decodes UTF-8 (BOM stripped) or, for invalid UTF-8, Windows-1252.
func readLines(r io.Reader) ([]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var dec transform.Transformer = unicode.BOMOverride(unicode.UTF8.NewDecoder())
	if !utf8.Valid(b) {
		dec = charmap.Windows1252.NewDecoder()
	}
	text, _, err := transform.Bytes(dec, b)
	if err != nil {
		return nil, err
	}
	return strings.Split(string(text), "\n"), nil
}

func importLines(lines []string, name string, opts *Options, exists func(string) bool) (*Scene, error) {
	o, err := opts.Clone()
	if err != nil {
		return nil, err
	}
	root := &Node{Name: name}
	st := &importState{
		opts: o,
		scene: &Scene{
			Name:              name,
			Root:              root,
			Nodes:             map[string]*Node{"": root},
			SecondaryTextures: map[string]bool{},
		},
		geometries:   map[string]*Geometry{},
		multiTexture: map[int]bool{},
	}
	if err := st.run(lines, exists); err != nil {
		return nil, err
	}
	return st.scene, nil
}

func (st *importState) run(lines []string, exists func(string) bool) error {
	scene := st.scene
	elements, serrs := ParseLines(lines)
	for _, e := range serrs {
		scene.warn(e)
	}
	for _, e := range elements {
		if e.Is("CoordinateSystem") && len(e.Values) > 0 {
			scene.CoordinateSystem = e.Values[0]
		}
	}

	pool, textures, err := ParseAllTexturesAndVertices(elements)
	if err != nil {
		return fmt.Errorf("egg: %s: %w", scene.Name, err)
	}
	st.pool = pool
	scene.Textures = textures

	var skel *Skeleton
	if !st.opts.SkipSkeletal {
		skel, err = collectJoints(elements, pool, scene.warn)
		if err != nil {
			return fmt.Errorf("egg: %s: %w", scene.Name, err)
		}
	}

	if err := st.walk(elements, scene.Root); err != nil {
		return fmt.Errorf("egg: %s: %w", scene.Name, err)
	}

	bundles := collectBundles(elements)
	if st.polygons == 0 && len(bundles) > 0 && st.opts.SkipAnimationOnly {
		return ErrSkipped
	}

	if skel != nil {
		skel.applyCommentWeights(pool, scene.warn)
		for _, b := range bundles {
			clip, err := ParseBundle(b, skel)
			if err != nil {
				return fmt.Errorf("egg: %s: %w", scene.Name, err)
			}
			if clip == nil {
				scene.warn(&StructureError{Line: b.Line + 1, Msg: "animation " + b.Name + " has no curves"})
				continue
			}
			scene.Clips = append(scene.Clips, clip)
		}
		if skel.Len() > 0 {
			scene.Skeleton = skel
		}
	}

	st.fillOverlayUVs()

	total := len(st.geometryOrder)
	for i, path := range st.geometryOrder {
		st.opts.progress("assemble", i, total)
		g := st.geometries[path]
		delete(st.geometries, path)
		if g.Empty() {
			continue
		}
		node := scene.Nodes[path]
		mesh, err := assembleMesh(node.Name, g, pool, scene.Skeleton, scene.warn)
		if err != nil {
			return err
		}
		st.repairUVs(mesh)
		node.Mesh = mesh
		scene.Meshes = append(scene.Meshes, mesh)
	}
	st.opts.progress("assemble", total, total)

	ResolveMaterials(scene, exists)
	return nil
}

// fillOverlayUVs gives multi-texture vertices without an overlay set their primary UV.
func (st *importState) fillOverlayUVs() {
	indices := make([]int, 0, len(st.multiTexture))
	for idx := range st.multiTexture {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	for _, idx := range indices {
		v := st.pool.Vertices[idx]
		if _, ok := v.Overlay(); ok {
			continue
		}
		if v.NamedUVs == nil {
			v.NamedUVs = map[string]geom.Vector2{}
		}
		v.NamedUVs[OverlayUVName] = v.UV
	}
}

func (st *importState) repairUVs(mesh *Mesh) {
	materials := mesh.Materials()
	mesh.UVDecision = ClassifyUVs(UVInput{
		Name:         mesh.Path,
		Materials:    materials,
		VertexCount:  len(mesh.Positions),
		UVs:          mesh.UVs,
		MultiTexture: mesh.isMultiTexture(),
	})
	RepairUVs(mesh.UVs, mesh.UVDecision)
	if mesh.UVDecision.Action != UVKeep {
		log.Printf("%s: uv %s (%s, %s)", mesh.Path, mesh.UVDecision.Action, mesh.UVDecision.Rule, mesh.UVDecision.Bracket)
	}
	if mesh.OverlayUVs == nil {
		return
	}
	mesh.OverlayDecision = ClassifyUVs(UVInput{
		Name:         mesh.Path,
		Materials:    materials,
		VertexCount:  len(mesh.Positions),
		UVs:          mesh.OverlayUVs,
		MultiTexture: true,
	})
	RepairUVs(mesh.OverlayUVs, mesh.OverlayDecision)
}
