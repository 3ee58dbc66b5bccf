package geom

// polygonNormal returns the unnormalized Newell normal. It points along the
// right-handed winding of the polygon.
func polygonNormal(poly []*Vector3) *Vector3 {
	n := &Vector3{}
	for i, cur := range poly {
		next := poly[(i+1)%len(poly)]
		n.X += (cur.Y - next.Y) * (cur.Z + next.Z)
		n.Y += (cur.Z - next.Z) * (cur.X + next.X)
		n.Z += (cur.X - next.X) * (cur.Y + next.Y)
	}
	return n
}

// insideTriangle reports whether p lies strictly inside abc when seen along n.
func insideTriangle(p, a, b, c, n *Vector3) bool {
	return b.Sub(a).Cross(p.Sub(a)).Dot(n) > 0 &&
		c.Sub(b).Cross(p.Sub(b)).Dot(n) > 0 &&
		a.Sub(c).Cross(p.Sub(c)).Dot(n) > 0
}

func findEar(poly []*Vector3, rest []int, n *Vector3) int {
	count := len(rest)
	for i := range rest {
		a := poly[rest[(i+count-1)%count]]
		b := poly[rest[i]]
		c := poly[rest[(i+1)%count]]
		if b.Sub(a).Cross(c.Sub(b)).Dot(n) <= 0 {
			continue // reflex or degenerate corner
		}
		ear := true
		for j, k := range rest {
			if j == i || j == (i+count-1)%count || j == (i+1)%count {
				continue
			}
			if insideTriangle(poly[k], a, b, c, n) {
				ear = false
				break
			}
		}
		if ear {
			return i
		}
	}
	return -1
}

// Triangulate splits a simple polygon into triangles by ear clipping.
// Triangles keep the winding of the input. When no ear can be found
// (self-intersecting input) the remaining vertices are fanned.
func Triangulate(poly []*Vector3) [][3]int {
	if len(poly) < 3 {
		return nil
	}
	n := polygonNormal(poly)
	rest := make([]int, len(poly))
	for i := range rest {
		rest[i] = i
	}
	tris := make([][3]int, 0, len(poly)-2)
	for len(rest) > 3 {
		ear := findEar(poly, rest, n)
		if ear < 0 {
			break
		}
		count := len(rest)
		tris = append(tris, [3]int{rest[(ear+count-1)%count], rest[ear], rest[(ear+1)%count]})
		rest = append(rest[:ear], rest[ear+1:]...)
	}
	for i := 1; i+1 < len(rest); i++ {
		tris = append(tris, [3]int{rest[0], rest[i], rest[i+1]})
	}
	return tris
}
