package converter

import (
	"bytes"
	"log"
	"path/filepath"

	"github.com/binzume/eggconv/egg"
	"github.com/binzume/eggconv/geom"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

const unlitMaterialExt = "KHR_materials_unlit"

type EGGToGLTFOption struct {
	Scale      float32 // Default: 1
	ForceUnlit bool

	TextureReCompress      bool
	TextureBytesThreshold  int64 // 0: unlimited
	TextureResolutionLimit int   // 0: unlimited
	TextureScale           float32
	TextureWebP            bool

	SkipAnimations bool
}

type eggToGltf struct {
	*EGGToGLTFOption
	*gltf.Document
	materials  map[string]uint32
	jointNodes []uint32 // by joint index
}

func NewEGGToGLTFConverter(options *EGGToGLTFOption) *eggToGltf {
	if options == nil {
		options = &EGGToGLTFOption{}
	}
	if options.Scale == 0 {
		options.Scale = 1
	}
	if options.TextureScale == 0 {
		options.TextureScale = 1.0
	}
	return &eggToGltf{
		EGGToGLTFOption: options,
		Document:        gltf.NewDocument(),
		materials:       map[string]uint32{},
	}
}

// scaled returns m with its translation multiplied by the output scale.
func (m *eggToGltf) scaled(mat *geom.Matrix4) *geom.Matrix4 {
	r := mat.Clone()
	r[12] *= m.Scale
	r[13] *= m.Scale
	r[14] *= m.Scale
	return r
}

func (m *eggToGltf) addMatrices(mat []*geom.Matrix4) uint32 {
	a := make([][4]float32, len(mat)*4)
	for i, mm := range mat {
		for c := 0; c < 4; c++ {
			a[i*4+c] = [4]float32{mm[c*4], mm[c*4+1], mm[c*4+2], mm[c*4+3]}
		}
	}
	acc := modeler.WriteTangent(m.Document, a)
	m.Accessors[acc].Type = gltf.AccessorMat4
	m.Accessors[acc].Count /= 4
	m.BufferViews[*m.Accessors[acc].BufferView].ByteStride *= 4
	return acc
}

func (m *eggToGltf) addJointNodes(skel *egg.Skeleton) {
	m.jointNodes = make([]uint32, skel.Len())
	for i, j := range skel.Joints {
		m.jointNodes[i] = uint32(len(m.Nodes))
		t, r, s := m.scaled(j.Local).Decompose()
		m.Nodes = append(m.Nodes, &gltf.Node{
			Name:        j.Name,
			Translation: t.Array(),
			Rotation:    r.Array(),
			Scale:       s.Array(),
		})
	}
	for i, j := range skel.Joints {
		node := m.Nodes[m.jointNodes[i]]
		for _, c := range j.Children {
			node.Children = append(node.Children, m.jointNodes[c.Index])
		}
		if j.Parent == nil {
			m.Scenes[0].Nodes = append(m.Scenes[0].Nodes, m.jointNodes[i])
		}
	}
}

func (m *eggToGltf) addSkin(skin *egg.Skin) uint32 {
	joints := make([]uint32, len(skin.Joints))
	invmats := make([]*geom.Matrix4, len(skin.Joints))
	for i, j := range skin.Joints {
		joints[i] = m.jointNodes[j.Index]
		invmats[i] = m.scaled(skin.BindPoses[i])
	}
	m.Skins = append(m.Skins, &gltf.Skin{
		Joints:              joints,
		Skeleton:            gltf.Index(joints[0]),
		InverseBindMatrices: gltf.Index(m.addMatrices(invmats)),
	})
	return uint32(len(m.Skins) - 1)
}

// fillNormals replaces zero normals with the area weighted average of adjacent faces.
func fillNormals(mesh *egg.Mesh) [][3]float32 {
	normals := make([]geom.Vector3, len(mesh.Positions))
	missing := false
	for i := range normals {
		if i < len(mesh.Normals) && mesh.Normals[i].LenSqr() > 0 {
			normals[i] = mesh.Normals[i]
		} else {
			missing = true
		}
	}
	if missing {
		acc := make([]geom.Vector3, len(normals))
		for _, s := range mesh.Submeshes {
			for t := 0; t+2 < len(s.Indices); t += 3 {
				i0, i1, i2 := s.Indices[t], s.Indices[t+1], s.Indices[t+2]
				p0 := &mesh.Positions[i0]
				n := mesh.Positions[i1].Sub(p0).Cross(mesh.Positions[i2].Sub(p0))
				for _, i := range []int{i0, i1, i2} {
					acc[i] = *acc[i].Add(n)
				}
			}
		}
		for i := range normals {
			if normals[i].LenSqr() == 0 {
				if acc[i].LenSqr() > 0 {
					normals[i] = *acc[i].Normalize()
				} else {
					normals[i] = geom.Vector3{Y: 1}
				}
			}
		}
	}
	r := make([][3]float32, len(normals))
	for i, n := range normals {
		r[i] = n.Array()
	}
	return r
}

func texcoords(uvs []geom.Vector2) [][2]float32 {
	r := make([][2]float32, len(uvs))
	for i := range uvs {
		if uvs[i].IsFinite() {
			r[i] = uvs[i].FlipV().Array()
		} else {
			r[i] = [2]float32{0, 1}
		}
	}
	return r
}

func (m *eggToGltf) convertMesh(mesh *egg.Mesh) *gltf.Mesh {
	scale := m.Scale
	vertexes := make([][3]float32, len(mesh.Positions))
	for i, v := range mesh.Positions {
		vertexes[i] = [3]float32{v.X * scale, v.Y * scale, v.Z * scale}
	}

	attributes := map[string]uint32{}
	attributes["POSITION"] = modeler.WritePosition(m.Document, vertexes)
	if !m.ForceUnlit {
		attributes["NORMAL"] = modeler.WriteNormal(m.Document, fillNormals(mesh))
	}
	if len(mesh.UVs) > 0 {
		attributes["TEXCOORD_0"] = modeler.WriteTextureCoord(m.Document, texcoords(mesh.UVs))
	}
	if len(mesh.OverlayUVs) > 0 {
		attributes["TEXCOORD_1"] = modeler.WriteTextureCoord(m.Document, texcoords(mesh.OverlayUVs))
	}

	colored := false
	colors := make([][4]float32, len(mesh.Colors))
	for i, c := range mesh.Colors {
		colors[i] = [4]float32{c.X, c.Y, c.Z, c.W}
		if colors[i] != [4]float32{1, 1, 1, 1} {
			colored = true
		}
	}
	if colored {
		attributes["COLOR_0"] = modeler.WriteAccessor(m.Document, gltf.TargetArrayBuffer, colors)
	}

	if skin := mesh.Skin; skin != nil {
		joints0 := make([][4]uint16, len(skin.BoneIndices))
		for i, b := range skin.BoneIndices {
			joints0[i] = [4]uint16{uint16(b[0]), uint16(b[1]), uint16(b[2]), uint16(b[3])}
		}
		attributes["JOINTS_0"] = modeler.WriteJoints(m.Document, joints0)
		attributes["WEIGHTS_0"] = modeler.WriteWeights(m.Document, skin.BoneWeights)
	}

	// make primitive for each submesh
	var primitives []*gltf.Primitive
	for _, s := range mesh.Submeshes {
		if len(s.Indices) == 0 {
			continue
		}
		indices := make([]uint32, len(s.Indices))
		for i, idx := range s.Indices {
			indices[i] = uint32(idx)
		}
		p := &gltf.Primitive{
			Indices:    gltf.Index(modeler.WriteIndices(m.Document, indices)),
			Attributes: attributes,
		}
		if mat, ok := m.materials[s.Material]; ok {
			p.Material = gltf.Index(mat)
		}
		primitives = append(primitives, p)
	}
	return &gltf.Mesh{
		Name:       mesh.Name,
		Primitives: primitives,
		Extras: map[string]interface{}{
			"uv":        mesh.UVDecision.Action.String(),
			"uvRule":    mesh.UVDecision.Rule,
			"uvBracket": mesh.UVDecision.Bracket,
		},
	}
}

func (m *eggToGltf) addTexture(binding *egg.TextureBinding, secondary bool, textures *textureCache) (*uint32, error) {
	texture := binding.Texture.Path
	t := textures.get(texture)
	if t.id != nil {
		return t.id, nil
	}
	t, err := textures.getData(texture)
	if err != nil {
		return nil, err
	}

	encode := m.TextureReCompress || m.TextureScale != 1.0 || m.TextureResolutionLimit > 0
	if m.TextureBytesThreshold > 0 && int64(len(t.data)) > m.TextureBytesThreshold {
		encode = true
	}

	mimeType := t.mime
	if mimeType != "image/jpeg" && mimeType != "image/png" {
		mimeType = "image/png"
		encode = true
	}
	if m.TextureWebP {
		mimeType = "image/webp"
		encode = true
	}

	var img uint32
	if encode {
		r, err := scaleTexture(texture, mimeType, textures, m.TextureScale, m.TextureResolutionLimit)
		if err != nil {
			return nil, err
		}
		img, err = modeler.WriteImage(m.Document, filepath.Base(texture), mimeType, r)
		if err != nil {
			return nil, err
		}
	} else {
		img, err = modeler.WriteImage(m.Document, filepath.Base(texture), mimeType, bytes.NewReader(t.data))
		if err != nil {
			return nil, err
		}
	}
	m.Buffers[0].ByteLength = uint32(len(m.Buffers[0].Data)) // avoid AddImage bug

	tex := &gltf.Texture{Name: binding.Texture.Name, Sampler: gltf.Index(0)}
	if mimeType == "image/webp" {
		tex.Extensions = map[string]interface{}{webpExtension: map[string]interface{}{"source": img}}
	} else {
		tex.Source = gltf.Index(img)
	}
	if secondary {
		tex.Extras = map[string]interface{}{"secondary": true}
	}
	m.Textures = append(m.Textures, tex)

	t.id = gltf.Index(uint32(len(m.Textures)) - 1)
	return t.id, nil
}

func (m *eggToGltf) convertMaterial(scene *egg.Scene, mat *egg.Material, textures *textureCache) *gltf.Material {
	var rf float32 = 0.9
	var mf float32 = 0
	color := [4]float32{1, 1, 1, 1}
	if mat.FallbackColor != nil {
		color = mat.FallbackColor.Array()
	}
	mm := &gltf.Material{
		Name: mat.Name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &color,
			RoughnessFactor: &rf,
			MetallicFactor:  &mf,
		},
	}
	if m.ForceUnlit {
		mm.Extensions = map[string]interface{}{unlitMaterialExt: map[string]string{}}
	}

	extras := map[string]interface{}{}
	if mat.Synthesized {
		extras["synthesized"] = true
	}
	if b := mat.Base; b != nil && !b.Missing {
		if tex, err := m.addTexture(b, scene.SecondaryTextures[b.Texture.Name], textures); err == nil {
			mm.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: *tex}
			if hasAlpha(b.Texture.Path, textures) {
				mm.AlphaMode = gltf.AlphaBlend
			}
		} else {
			log.Print("WARNING: texture read error: ", err)
		}
	}
	var layers []map[string]interface{}
	for _, l := range mat.Layers {
		if l.Missing {
			continue
		}
		tex, err := m.addTexture(l, true, textures)
		if err != nil {
			log.Print("WARNING: texture read error: ", err)
			continue
		}
		layers = append(layers, map[string]interface{}{
			"texture":  *tex,
			"role":     l.Role,
			"texCoord": 1,
		})
	}
	if len(layers) > 0 {
		extras["overlay"] = layers[0]["texture"]
		extras["layers"] = layers
	}
	if len(extras) > 0 {
		mm.Extras = extras
	}
	return mm
}

func (m *eggToGltf) addNode(n *egg.Node) uint32 {
	node := &gltf.Node{Name: n.Name}
	if n.Transform != nil && !n.Transform.IsIdentity() {
		m.scaled(n.Transform).ToArray(node.Matrix[:])
	}
	if n.LOD != nil {
		node.Extras = map[string]interface{}{"lod": [2]float32{n.LOD.Max * m.Scale, n.LOD.Min * m.Scale}}
	}
	if n.Mesh != nil {
		mesh := m.convertMesh(n.Mesh)
		if len(mesh.Primitives) > 0 {
			node.Mesh = gltf.Index(uint32(len(m.Document.Meshes)))
			m.Document.Meshes = append(m.Document.Meshes, mesh)
			if n.Mesh.Skin != nil && len(m.jointNodes) > 0 {
				node.Skin = gltf.Index(m.addSkin(n.Mesh.Skin))
			}
		}
	}
	index := uint32(len(m.Nodes))
	m.Nodes = append(m.Nodes, node)
	for _, c := range n.Children {
		ci := m.addNode(c)
		m.Nodes[index].Children = append(m.Nodes[index].Children, ci)
	}
	return index
}

func (m *eggToGltf) Convert(scene *egg.Scene, textureDir string) (*gltf.Document, error) {
	textures := newTextureCache(textureDir)
	useUnlit := false
	for _, mat := range scene.Materials {
		mm := m.convertMaterial(scene, mat, textures)
		if mm.Extensions[unlitMaterialExt] != nil {
			useUnlit = true
		}
		m.materials[mat.Name] = uint32(len(m.Document.Materials))
		m.Document.Materials = append(m.Document.Materials, mm)
	}
	if useUnlit {
		m.ExtensionsUsed = append(m.ExtensionsUsed, unlitMaterialExt)
	}
	for _, t := range m.Document.Textures {
		if t.Extensions[webpExtension] != nil {
			m.ExtensionsUsed = append(m.ExtensionsUsed, webpExtension)
			m.ExtensionsRequired = append(m.ExtensionsRequired, webpExtension)
			break
		}
	}

	if scene.Skeleton != nil {
		m.addJointNodes(scene.Skeleton)
	}
	if scene.Root != nil {
		m.Scenes[0].Nodes = append(m.Scenes[0].Nodes, m.addNode(scene.Root))
	}
	m.Scenes[0].Name = scene.Name

	if scene.Skeleton != nil && !m.SkipAnimations {
		for _, clip := range scene.Clips {
			addClip(m.Document, clip, scene.Skeleton, m.jointNodes, m.Scale)
		}
	}

	if len(m.Document.Textures) > 0 {
		m.Document.Samplers = []*gltf.Sampler{{WrapS: gltf.WrapRepeat, WrapT: gltf.WrapRepeat}}
	}
	return m.Document, nil
}

// ConvertFile loads an egg file and converts it with textures resolved next to it.
func ConvertFile(path string, importOpts *egg.Options, opts *EGGToGLTFOption) (*gltf.Document, *egg.Scene, error) {
	scene, err := egg.Load(path, importOpts)
	if err != nil {
		return nil, nil, err
	}
	doc, err := NewEGGToGLTFConverter(opts).Convert(scene, filepath.Dir(path))
	return doc, scene, err
}
