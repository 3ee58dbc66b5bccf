package egg

import (
	"errors"
	"strconv"
	"strings"
)

var collisionKeywords = []string{"collision", "collide"}

// isCollisionGroup reports groups named as collision geometry or holding a direct `<Collide>`.
func isCollisionGroup(el *Element) bool {
	return containsAny(strings.ToLower(el.Name), collisionKeywords) || el.Child("Collide") != nil
}

// lodRange returns the `<SwitchCondition> { <Distance> { max min ... } }` of a group, or nil.
func lodRange(el *Element) (*LODRange, error) {
	sw := el.Child("SwitchCondition")
	if sw == nil {
		return nil, nil
	}
	d := sw.Child("Distance")
	if d == nil {
		return nil, nil
	}
	v, err := d.FloatsN(2)
	if err != nil {
		return nil, err
	}
	return &LODRange{Max: v[0], Min: v[1]}, nil
}

func (st *importState) addNode(parent *Node, name string, line int) *Node {
	if name == "" {
		name = "group"
	}
	path := name
	if parent.Path != "" {
		path = parent.Path + "/" + name
	}
	if _, exists := st.scene.Nodes[path]; exists {
		base := path
		for i := 1; ; i++ {
			path = base + "." + strconv.Itoa(i)
			if _, exists := st.scene.Nodes[path]; !exists {
				break
			}
		}
	}
	n := &Node{Name: name, Path: path, Parent: parent, Line: line}
	parent.Children = append(parent.Children, n)
	st.scene.Nodes[path] = n
	return n
}

func (st *importState) geometry(node *Node) *Geometry {
	g, ok := st.geometries[node.Path]
	if !ok {
		g = NewGeometry(node.Path)
		st.geometries[node.Path] = g
		st.geometryOrder = append(st.geometryOrder, node.Path)
	}
	return g
}

// walk builds the hierarchy below node and collects polygons into the geometry of their group.
func (st *importState) walk(elements []*Element, node *Node) error {
	for _, el := range elements {
		var err error
		switch {
		case el.Is("Group"), el.Is("Instance"):
			err = st.walkGroup(el, node)
		case el.Is("Polygon"):
			err = st.addPolygon(el, node)
		case el.Is("VertexPool"), el.Is("Texture"), el.Is("Joint"), el.Is("Table"), el.Is("Bundle"),
			el.Is("Transform"), el.Is("SwitchCondition"), el.Is("Collide"),
			el.Is("CoordinateSystem"), el.Is("Comment"):
		default:
			err = st.walk(el.Children, node)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (st *importState) walkGroup(el *Element, parent *Node) error {
	if !st.opts.ImportCollision && isCollisionGroup(el) {
		return nil
	}
	if st.opts.SkipFootprints && isFootprintName(el.Name) {
		return nil
	}
	lod, err := lodRange(el)
	if err != nil {
		return err
	}
	if lod != nil && st.opts.LODPolicy == LODHighestOnly && lod.Min != 0 {
		return nil
	}
	node := st.addNode(parent, el.Name, el.Line+1)
	node.LOD = lod
	// vertices of polygon groups are already in model space
	if t := el.Child("Transform"); t != nil && !el.Contains("Polygon") {
		m, err := ParseTransform(t)
		if err != nil {
			return err
		}
		node.Transform = m
	}
	return st.walk(el.Children, node)
}

func (st *importState) addPolygon(el *Element, node *Node) error {
	poly, err := ParsePolygon(el, st.pool, st.opts)
	var serr *StructureError
	if errors.As(err, &serr) {
		st.scene.warn(serr)
		return nil
	} else if err != nil {
		return err
	}
	if poly == nil {
		return nil
	}
	st.polygons++
	st.geometry(node).Add(poly)
	if poly.MultiTexture() {
		for _, v := range poly.Vertices {
			st.multiTexture[v] = true
		}
		for _, name := range poly.Secondary() {
			st.scene.SecondaryTextures[name] = true
		}
	}
	return nil
}
