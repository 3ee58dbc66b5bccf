package egg

import (
	"math"
	"strings"

	"github.com/binzume/eggconv/geom"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween/ease"
)

const DefaultFPS = 24

// Channel is the sampled transform track of one joint.
type Channel struct {
	Joint        string
	Translations []geom.Vector3
	Rotations    []geom.Quaternion
	Scales       []geom.Vector3
	Matrices     []geom.Matrix4
}

// Clip is one `<Bundle>`.
type Clip struct {
	Name     string
	FPS      float32
	Frames   int
	Loop     bool
	AutoPlay bool
	Channels []*Channel
}

func (c *Clip) Channel(joint string) *Channel {
	for _, ch := range c.Channels {
		if ch.Joint == joint {
			return ch
		}
	}
	return nil
}

// Duration in seconds.
func (c *Clip) Duration() float32 {
	if c.FPS <= 0 || c.Frames == 0 {
		return 0
	}
	return float32(c.Frames-1) / c.FPS
}

// Sample interpolates the transform of a joint at time t (seconds).
// Looping clips wrap with the period Duration().
func (c *Clip) Sample(joint string, t float32) (*geom.Vector3, *geom.Quaternion, *geom.Vector3, bool) {
	ch := c.Channel(joint)
	if ch == nil || len(ch.Translations) == 0 {
		return nil, nil, nil, false
	}
	n := len(ch.Translations)
	last := float32(n - 1)
	f := t * c.FPS
	if f < 0 {
		f = 0
	}
	if c.Loop && n > 1 && f > last {
		f = float32(math.Mod(float64(f), float64(last)))
	}
	if f > last {
		f = last
	}
	i0 := int(f)
	alpha := f - float32(i0)
	i1 := i0 + 1
	if i1 >= n {
		i1 = n - 1
	}
	lerp := func(a, b *geom.Vector3) *geom.Vector3 {
		return &geom.Vector3{
			X: ease.Linear(alpha, a.X, b.X-a.X, 1),
			Y: ease.Linear(alpha, a.Y, b.Y-a.Y, 1),
			Z: ease.Linear(alpha, a.Z, b.Z-a.Z, 1),
		}
	}
	q := ch.Rotations[i0].Slerp(&ch.Rotations[i1], alpha)
	return lerp(&ch.Translations[i0], &ch.Translations[i1]), q, lerp(&ch.Scales[i0], &ch.Scales[i1]), true
}

// xfmFrame holds the Z-up components of one frame. Missing channels keep their defaults.
type xfmFrame struct {
	i, j, k float32
	h, p, r float32
	x, y, z float32
}

func (f *xfmFrame) set(ch byte, v float32) {
	switch ch {
	case 'i':
		f.i = v
	case 'j':
		f.j = v
	case 'k':
		f.k = v
	case 'h':
		f.h = v
	case 'p':
		f.p = v
	case 'r':
		f.r = v
	case 'x':
		f.x = v
	case 'y':
		f.y = v
	case 'z':
		f.z = v
	}
}

// matrix returns T * Rh * Rp * Rr * S converted to Y-up.
func (f *xfmFrame) matrix() *geom.Matrix4 {
	q := mgl32.QuatRotate(mgl32.DegToRad(f.h), mgl32.Vec3{0, 0, 1}).
		Mul(mgl32.QuatRotate(mgl32.DegToRad(f.p), mgl32.Vec3{1, 0, 0})).
		Mul(mgl32.QuatRotate(mgl32.DegToRad(f.r), mgl32.Vec3{0, 1, 0}))
	m := mgl32.Translate3D(f.x, f.y, f.z).Mul4(q.Mat4()).Mul4(mgl32.Scale3D(f.i, f.j, f.k))
	gm := geom.Matrix4(m)
	return gm.SwapYZ()
}

// channelValues maps channel letters to per frame values.
type channelValues map[byte][]float32

func (cv channelValues) frames() int {
	n := 0
	for _, v := range cv {
		if len(v) > n {
			n = len(v)
		}
	}
	return n
}

func (cv channelValues) frame(n int) *xfmFrame {
	f := &xfmFrame{i: 1, j: 1, k: 1}
	for ch, v := range cv {
		if len(v) == 0 {
			continue
		}
		if n >= len(v) {
			f.set(ch, v[len(v)-1])
		} else {
			f.set(ch, v[n])
		}
	}
	return f
}

func (cv channelValues) channel(joint string) *Channel {
	n := cv.frames()
	ch := &Channel{
		Joint:        joint,
		Translations: make([]geom.Vector3, n),
		Rotations:    make([]geom.Quaternion, n),
		Scales:       make([]geom.Vector3, n),
		Matrices:     make([]geom.Matrix4, n),
	}
	for i := 0; i < n; i++ {
		m := cv.frame(i).matrix()
		t, r, s := m.Decompose()
		ch.Translations[i] = *t
		ch.Rotations[i] = *r
		ch.Scales[i] = *s
		ch.Matrices[i] = *m
	}
	return ch
}

// parseXfmSAnim reads `<Xfm$Anim_S$>` with one `<S$Anim>` per channel.
func parseXfmSAnim(el *Element) (channelValues, float32, error) {
	cv := channelValues{}
	fps, err := elementFPS(el)
	if err != nil {
		return nil, 0, err
	}
	for _, s := range el.ChildrenByTag("S$Anim") {
		name := strings.ToLower(s.Name)
		if len(name) != 1 {
			continue
		}
		var values []float32
		if v := s.Child("V"); v != nil {
			values, err = v.Floats()
		} else {
			values, err = s.Floats()
		}
		if err != nil {
			return nil, 0, err
		}
		cv[name[0]] = values
	}
	return cv, fps, nil
}

// parseXfmAnim reads `<Xfm$Anim>` with interleaved values described by `<Char*> contents`.
func parseXfmAnim(el *Element) (channelValues, float32, error) {
	fps, err := elementFPS(el)
	if err != nil {
		return nil, 0, err
	}
	contents := "ijkprhxyz"
	for _, c := range el.ChildrenByTag("Char*") {
		if strings.EqualFold(c.Name, "contents") && len(c.Values) > 0 {
			contents = strings.ToLower(c.Values[0])
		}
	}
	cv := channelValues{}
	v := el.Child("V")
	if v == nil || len(contents) == 0 {
		return cv, fps, nil
	}
	values, err := v.Floats()
	if err != nil {
		return nil, 0, err
	}
	for i, val := range values {
		ch := contents[i%len(contents)]
		cv[ch] = append(cv[ch], val)
	}
	return cv, fps, nil
}

func elementFPS(el *Element) (float32, error) {
	s, ok := el.Scalar("fps")
	if !ok {
		return 0, nil
	}
	fps, err := parseFloat(s)
	if err != nil {
		return 0, &ParseError{Line: el.Line + 1, Tag: "Scalar", Text: s, Err: err}
	}
	return fps, nil
}

// ParseBundle reads a `<Bundle>` into a clip. Joint tables unknown to skel are added to it.
// It returns nil when the bundle holds no transform tables.
func ParseBundle(el *Element, skel *Skeleton) (*Clip, error) {
	clip := &Clip{Name: el.Name, Loop: true, AutoPlay: true}
	if err := parseAnimTables(el.Children, nil, clip, skel); err != nil {
		return nil, err
	}
	if len(clip.Channels) == 0 {
		return nil, nil
	}
	if clip.FPS <= 0 {
		clip.FPS = DefaultFPS
	}
	return clip, nil
}

func parseAnimTables(elements []*Element, parent *Joint, clip *Clip, skel *Skeleton) error {
	for _, t := range elements {
		if !t.Is("Table") {
			continue
		}
		switch strings.ToLower(t.Name) {
		case "<skeleton>":
			if err := parseAnimTables(t.Children, parent, clip, skel); err != nil {
				return err
			}
			continue
		case "morph":
			continue
		}
		joint := skel.Joint(t.Name)
		if joint == nil {
			joint = &Joint{Name: t.Name, Local: geom.NewMatrix4(), Parent: parent, Weights: map[int]float32{}, Line: t.Line + 1}
			if parent != nil {
				parent.Children = append(parent.Children, joint)
			}
			skel.Add(joint)
		}
		for _, c := range t.Children {
			var cv channelValues
			var fps float32
			var err error
			switch {
			case c.Is("Xfm$Anim_S$"):
				cv, fps, err = parseXfmSAnim(c)
			case c.Is("Xfm$Anim"):
				cv, fps, err = parseXfmAnim(c)
			default:
				continue
			}
			if err != nil {
				return err
			}
			if fps > 0 && clip.FPS <= 0 {
				clip.FPS = fps
			}
			ch := cv.channel(joint.Name)
			if len(ch.Translations) == 0 {
				continue
			}
			clip.Channels = append(clip.Channels, ch)
			if len(ch.Translations) > clip.Frames {
				clip.Frames = len(ch.Translations)
			}
		}
		if err := parseAnimTables(t.Children, joint, clip, skel); err != nil {
			return err
		}
	}
	return nil
}

// collectBundles returns every `<Bundle>` in the tree.
func collectBundles(root []*Element) []*Element {
	var bundles []*Element
	walkElements(root, func(e *Element) bool {
		if e.Is("Bundle") {
			bundles = append(bundles, e)
			return false
		}
		return !e.Is("VertexPool")
	})
	return bundles
}
