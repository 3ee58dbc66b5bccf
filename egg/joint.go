package egg

import (
	"errors"
	"log"
	"sort"

	"github.com/binzume/eggconv/geom"
)

// Joint is one bone of a skeleton.
type Joint struct {
	Name     string
	Index    int
	Local    *geom.Matrix4 // bind transform relative to the parent, Y-up
	Parent   *Joint
	Children []*Joint
	// Weights maps pool indices to membership.
	Weights map[int]float32
	Line    int
}

// World returns the bind transform in model space.
func (j *Joint) World() *geom.Matrix4 {
	m := j.Local.Clone()
	for p := j.Parent; p != nil; p = p.Parent {
		m = p.Local.Mul(m)
	}
	return m
}

// Skeleton is the joint hierarchy of a file.
type Skeleton struct {
	Root   *Joint
	Joints []*Joint // depth first
	byName map[string]*Joint
}

// NewSkeleton returns an empty skeleton.
func NewSkeleton() *Skeleton {
	return &Skeleton{byName: map[string]*Joint{}}
}

func (s *Skeleton) Len() int {
	return len(s.Joints)
}

// Joint returns a joint by name, or nil.
func (s *Skeleton) Joint(name string) *Joint {
	return s.byName[name]
}

// Add registers a joint tree.
func (s *Skeleton) Add(j *Joint) {
	j.Index = len(s.Joints)
	s.Joints = append(s.Joints, j)
	if _, exists := s.byName[j.Name]; !exists {
		s.byName[j.Name] = j
	}
	if s.Root == nil && j.Parent == nil {
		s.Root = j
	}
	for _, c := range j.Children {
		s.Add(c)
	}
}

// ParseJoint reads a `<Joint>` tree. `<DefaultPose>` is ignored: the `<Transform>` is the bind pose.
func ParseJoint(el *Element, parent *Joint, pool *VertexPool) (*Joint, error) {
	return parseJoint(el, parent, pool, func(err error) { log.Print("WARNING: ", err) })
}

func parseJoint(el *Element, parent *Joint, pool *VertexPool, warn func(error)) (*Joint, error) {
	j := &Joint{
		Name:    el.Name,
		Local:   geom.NewMatrix4(),
		Parent:  parent,
		Weights: map[int]float32{},
		Line:    el.Line + 1,
	}
	for _, c := range el.Children {
		switch {
		case c.Is("Transform"):
			m, err := ParseTransform(c)
			if err != nil {
				return nil, err
			}
			j.Local = m
		case c.Is("VertexRef"):
			membership := float32(1)
			if s, ok := c.Scalar("membership"); ok {
				w, err := parseFloat(s)
				if err != nil {
					return nil, &ParseError{Line: c.Line + 1, Tag: "Scalar", Text: s, Err: err}
				}
				membership = w
			}
			ids, err := pool.ResolveRefs(c)
			var serr *StructureError
			if errors.As(err, &serr) {
				warn(serr)
				continue
			} else if err != nil {
				return nil, err
			}
			for _, id := range ids {
				j.Weights[id] = membership
			}
		case c.Is("Joint"):
			child, err := parseJoint(c, j, pool, warn)
			if err != nil {
				return nil, err
			}
			j.Children = append(j.Children, child)
		}
	}
	return j, nil
}

// collectJoints parses every top-most `<Joint>` tree outside animation tables.
func collectJoints(root []*Element, pool *VertexPool, warn func(error)) (*Skeleton, error) {
	skel := NewSkeleton()
	var err error
	walkElements(root, func(e *Element) bool {
		if err != nil || e.Is("Table") || e.Is("Bundle") || e.Is("VertexPool") {
			return false
		}
		if e.Is("Joint") {
			var j *Joint
			j, err = parseJoint(e, nil, pool, warn)
			if err == nil {
				skel.Add(j)
			}
			return false
		}
		return true
	})
	return skel, err
}

// applyCommentWeights copies `// joint:weight` vertex comments into joints that have no
// membership for that vertex yet.
func (s *Skeleton) applyCommentWeights(pool *VertexPool, warn func(error)) {
	unknown := map[string]bool{}
	for _, v := range pool.Vertices {
		for name, w := range v.BoneWeights {
			j := s.Joint(name)
			if j == nil {
				unknown[name] = true
				continue
			}
			if _, ok := j.Weights[v.Index]; !ok {
				j.Weights[v.Index] = w
			}
		}
	}
	names := make([]string, 0, len(unknown))
	for n := range unknown {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		warn(&StructureError{Msg: "vertex weight for unknown joint " + n})
	}
}
