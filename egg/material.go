package egg

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/binzume/eggconv/geom"
)

type fallbackColor struct {
	keywords []string
	color    geom.Vector4
}

var fallbackColors = []fallbackColor{
	{[]string{"grass"}, geom.Vector4{X: 0.30, Y: 0.55, Z: 0.20, W: 1}},
	{[]string{"leaf", "leaves"}, geom.Vector4{X: 0.25, Y: 0.50, Z: 0.15, W: 1}},
	{[]string{"water"}, geom.Vector4{X: 0.20, Y: 0.40, Z: 0.70, W: 0.8}},
	{[]string{"sand"}, geom.Vector4{X: 0.85, Y: 0.78, Z: 0.55, W: 1}},
	{[]string{"rock", "stone"}, geom.Vector4{X: 0.50, Y: 0.50, Z: 0.50, W: 1}},
	{[]string{"wood", "bark"}, geom.Vector4{X: 0.50, Y: 0.35, Z: 0.20, W: 1}},
	{[]string{"snow"}, geom.Vector4{X: 0.95, Y: 0.95, Z: 0.97, W: 1}},
	{[]string{"lava"}, geom.Vector4{X: 0.90, Y: 0.30, Z: 0.05, W: 1}},
	{[]string{"dirt", "mud"}, geom.Vector4{X: 0.40, Y: 0.30, Z: 0.20, W: 1}},
}

// DefaultFallbackColor is used when no keyword matches.
var DefaultFallbackColor = geom.Vector4{X: 0.8, Y: 0.8, Z: 0.8, W: 1}

// FallbackColor guesses a base color from a texture or material name.
func FallbackColor(name string) geom.Vector4 {
	n := strings.ToLower(name)
	for _, c := range fallbackColors {
		if containsAny(n, c.keywords) {
			return c.color
		}
	}
	return DefaultFallbackColor
}

func (s *Scene) warn(err error) {
	log.Print("WARNING: ", err)
	s.Warnings = append(s.Warnings, err.Error())
}

// findTexture looks a name up exactly, then as a case-insensitive substring of texture names.
func findTexture(textures map[string]*Texture, name string) *Texture {
	if t, ok := textures[name]; ok {
		return t
	}
	names := make([]string, 0, len(textures))
	for n := range textures {
		names = append(names, n)
	}
	sort.Strings(names)
	lower := strings.ToLower(name)
	for _, n := range names {
		ln := strings.ToLower(n)
		if ln == "" {
			continue
		}
		if strings.Contains(ln, lower) || strings.Contains(lower, ln) {
			return textures[n]
		}
	}
	return nil
}

// ResolveMaterials builds one material per distinct submesh key. exists reports whether a
// texture file is present; nil skips the check.
func ResolveMaterials(scene *Scene, exists func(path string) bool) {
	if scene.SecondaryTextures == nil {
		scene.SecondaryTextures = map[string]bool{}
	}
	seen := map[string]bool{}
	for _, m := range scene.Meshes {
		for _, key := range m.Materials() {
			if seen[key] {
				continue
			}
			seen[key] = true
			scene.Materials = append(scene.Materials, resolveMaterial(scene, key, exists))
		}
	}
}

func resolveMaterial(scene *Scene, key string, exists func(path string) bool) *Material {
	mat := &Material{Name: key}
	if key == DefaultMaterialKey {
		c := DefaultFallbackColor
		mat.FallbackColor = &c
		mat.Synthesized = true
		return mat
	}

	var components []string
	if _, ok := scene.Textures[key]; ok {
		components = []string{key}
	} else {
		components = SplitMaterialKey(key)
	}

	bind := func(name, role, uvSet string) *TextureBinding {
		t := findTexture(scene.Textures, name)
		if t == nil {
			scene.warn(fmt.Errorf("material %s: texture %s not declared", key, name))
			return nil
		}
		if t.Name != name {
			scene.warn(fmt.Errorf("material %s: texture %s resolved as %s", key, name, t.Name))
		}
		b := &TextureBinding{Texture: t, Role: role, UVSet: uvSet}
		if exists != nil && t.Path != "" && !exists(t.Path) {
			b.Missing = true
			scene.warn(fmt.Errorf("material %s: texture file %s not found", key, t.Path))
		}
		return b
	}

	mat.Base = bind(components[0], "base", baseUVSet(scene.Textures[components[0]]))
	for _, name := range components[1:] {
		scene.SecondaryTextures[name] = true
		if b := bind(name, "overlay", OverlayUVName); b != nil {
			mat.Layers = append(mat.Layers, b)
		}
	}
	if mat.Base == nil {
		mat.Synthesized = true
	}
	if mat.Base == nil || mat.Base.Missing {
		c := FallbackColor(components[0])
		mat.FallbackColor = &c
	}
	return mat
}

func baseUVSet(t *Texture) string {
	if t == nil {
		return ""
	}
	return t.UVName
}
