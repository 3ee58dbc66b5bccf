package converter

import (
	"github.com/binzume/eggconv/egg"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func isUnitScale(samples [][3]float32) bool {
	for _, s := range samples {
		if s != [3]float32{1, 1, 1} {
			return false
		}
	}
	return true
}

func addSampler(a *gltf.Animation, node uint32, path gltf.TRSProperty, keysAcc, samplesAcc uint32) {
	a.Samplers = append(a.Samplers, &gltf.AnimationSampler{
		Input:         gltf.Index(keysAcc),
		Output:        gltf.Index(samplesAcc),
		Interpolation: gltf.InterpolationLinear,
	})
	a.Channels = append(a.Channels, &gltf.Channel{
		Sampler: gltf.Index(uint32(len(a.Samplers) - 1)),
		Target: gltf.ChannelTarget{
			Node: gltf.Index(node),
			Path: path,
		},
	})
}

// addClip writes one clip as an animation targeting the joint nodes.
func addClip(doc *gltf.Document, clip *egg.Clip, skel *egg.Skeleton, jointNodes []uint32, scale float32) {
	a := gltf.Animation{Name: clip.Name}
	if clip.Loop || clip.AutoPlay {
		a.Extras = map[string]interface{}{"loop": clip.Loop, "autoPlay": clip.AutoPlay}
	}
	fps := clip.FPS
	if fps <= 0 {
		fps = egg.DefaultFPS
	}

	// channels of the same length share the key accessor
	keysByLength := map[int]uint32{}
	for _, ch := range clip.Channels {
		j := skel.Joint(ch.Joint)
		n := len(ch.Translations)
		if j == nil || j.Index >= len(jointNodes) || n == 0 {
			continue
		}
		node := jointNodes[j.Index]

		keysAcc, ok := keysByLength[n]
		if !ok {
			keys := make([]float32, n)
			for i := range keys {
				keys[i] = float32(i) / fps
			}
			keysAcc = modeler.WriteAccessor(doc, gltf.TargetArrayBuffer, keys)
			doc.Accessors[keysAcc].Min = []float32{0}
			doc.Accessors[keysAcc].Max = []float32{keys[n-1]}
			keysByLength[n] = keysAcc
		}

		translations := make([][3]float32, n)
		for i, t := range ch.Translations {
			translations[i] = [3]float32{t.X * scale, t.Y * scale, t.Z * scale}
		}
		addSampler(&a, node, gltf.TRSTranslation, keysAcc, modeler.WritePosition(doc, translations))

		rotations := make([][4]float32, len(ch.Rotations))
		for i, q := range ch.Rotations {
			r := q.Array()
			// keep consecutive keys on the same hemisphere
			if i > 0 {
				p := rotations[i-1]
				if p[0]*r[0]+p[1]*r[1]+p[2]*r[2]+p[3]*r[3] < 0 {
					r = [4]float32{-r[0], -r[1], -r[2], -r[3]}
				}
			}
			rotations[i] = r
		}
		if len(rotations) == n {
			addSampler(&a, node, gltf.TRSRotation, keysAcc, modeler.WriteTangent(doc, rotations))
		}

		scales := make([][3]float32, len(ch.Scales))
		for i, s := range ch.Scales {
			scales[i] = s.Array()
		}
		if len(scales) == n && !isUnitScale(scales) {
			addSampler(&a, node, gltf.TRSScale, keysAcc, modeler.WritePosition(doc, scales))
		}
	}

	if len(a.Channels) > 0 {
		doc.Animations = append(doc.Animations, &a)
	}
}
