package gltfutil

import (
	"errors"
	"fmt"
	"math"

	"github.com/binzume/eggconv/geom"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/binary"
	"github.com/qmuntal/gltf/modeler"
)

var errSparse = errors.New("sparse accessor is not supported")

func Load(path string) (*gltf.Document, error) {
	return gltf.Open(path)
}

func accessorData(doc *gltf.Document, acr *gltf.Accessor) ([]byte, uint32, error) {
	if acr.Sparse != nil {
		return nil, 0, errSparse
	}
	if acr.BufferView == nil {
		return nil, 0, nil
	}
	bufferView := doc.BufferViews[*acr.BufferView]
	data := doc.Buffers[bufferView.Buffer].Data
	if len(data) == 0 {
		return nil, 0, nil
	}
	return data[bufferView.ByteOffset+acr.ByteOffset:], bufferView.ByteStride, nil
}

func transformVec3(doc *gltf.Document, a uint32, mat *geom.Matrix4) error {
	acr := doc.Accessors[a]
	data, stride, err := accessorData(doc, acr)
	if err != nil || data == nil {
		return err
	}
	pos, err := modeler.ReadPosition(doc, acr, [][3]float32{})
	if err != nil {
		return err
	}

	acr.Min = []float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	acr.Max = []float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for i := range pos {
		mat.ApplyTo(geom.NewVector3FromArray(pos[i])).ToArray(pos[i][:])
		for t, v := range pos[i] {
			acr.Min[t] = float32(math.Min(float64(acr.Min[t]), float64(v)))
			acr.Max[t] = float32(math.Max(float64(acr.Max[t]), float64(v)))
		}
	}
	return binary.Write(data, stride, pos)
}

// readMatrix reads 16 floats in storage order, which is column-major as in geom.Matrix4.
func readMatrix(data []byte) (*geom.Matrix4, error) {
	var mat geom.Matrix4
	if err := binary.Read(data, 0, mat[:]); err != nil {
		return nil, err
	}
	return &mat, nil
}

func writeMatrix(data []byte, mat *geom.Matrix4) error {
	return binary.Write(data, 0, mat[:])
}

// Transform rescales the document. Offset moves mesh positions only.
func Transform(doc *gltf.Document, scale *geom.Vector3, offset *geom.Vector3) error {
	if scale == nil && offset == nil {
		return nil
	}
	scaleMat := geom.NewMatrix4()
	if scale != nil {
		scaleMat = geom.NewScaleMatrix4(scale.X, scale.Y, scale.Z)
	}
	scaleOffsetMat := scaleMat
	if offset != nil {
		scaleOffsetMat = geom.NewTranslateMatrix4(offset.X, offset.Y, offset.Z).Mul(scaleMat)
	}

	accs := map[uint32]bool{}
	for _, m := range doc.Meshes {
		for _, p := range m.Primitives {
			if a, ok := p.Attributes["POSITION"]; ok {
				accs[a] = false
			}
			for _, t := range p.Targets {
				if a, ok := t["POSITION"]; ok {
					accs[a] = true
				}
			}
		}
	}
	for _, anim := range doc.Animations {
		for _, ch := range anim.Channels {
			if ch.Target.Path == gltf.TRSTranslation && ch.Sampler != nil {
				if s := anim.Samplers[*ch.Sampler]; s.Output != nil {
					accs[*s.Output] = true
				}
			}
		}
	}
	for a, diff := range accs {
		mat := scaleOffsetMat
		if diff {
			mat = scaleMat
		}
		if err := transformVec3(doc, a, mat); err != nil {
			return fmt.Errorf("accessor %d: %w", a, err)
		}
	}

	for _, node := range doc.Nodes {
		scaleMat.ApplyTo(geom.NewVector3FromArray(node.Translation)).ToArray(node.Translation[:])
		if node.Matrix != gltf.DefaultMatrix && node.Matrix != [16]float32{} {
			scaleMat.ApplyTo(geom.NewVector3FromSlice(node.Matrix[12:15])).ToArray(node.Matrix[12:15])
		}
	}
	invScale := scaleMat.Inverse()
	for _, skin := range doc.Skins {
		if skin.InverseBindMatrices == nil {
			continue
		}
		data, stride, err := accessorData(doc, doc.Accessors[*skin.InverseBindMatrices])
		if err != nil {
			return fmt.Errorf("skin %s: %w", skin.Name, err)
		}
		if data == nil {
			continue
		}
		if stride == 0 {
			stride = 64
		}
		for i := range skin.Joints {
			offset := uint32(i) * stride
			mat, err := readMatrix(data[offset : offset+64])
			if err != nil {
				return err
			}
			if err := writeMatrix(data[offset:offset+64], scaleMat.Mul(mat).Mul(invScale)); err != nil {
				return err
			}
		}
	}
	return nil
}
