package egg

import (
	"math"

	"github.com/binzume/eggconv/geom"
)

func degToRad(d float32) float32 {
	return d * math.Pi / 180
}

// ParseTransform composes the components of a `<Transform>` in file order, each one applied
// after the previous, and returns the result in Y-up space.
func ParseTransform(el *Element) (*geom.Matrix4, error) {
	m := geom.NewMatrix4()
	for _, c := range el.Children {
		var t *geom.Matrix4
		switch {
		case c.Is("Translate"):
			v, err := c.FloatsN(3)
			if err != nil {
				return nil, err
			}
			t = geom.NewTranslateMatrix4(v[0], v[1], v[2])
		case c.Is("Rotate"):
			v, err := c.FloatsN(4)
			if err != nil {
				return nil, err
			}
			t = geom.NewAxisRotationMatrix4(&geom.Vector3{X: v[1], Y: v[2], Z: v[3]}, degToRad(v[0]))
		case c.Is("RotX"), c.Is("RotY"), c.Is("RotZ"):
			v, err := c.FloatsN(1)
			if err != nil {
				return nil, err
			}
			axis := &geom.Vector3{X: 1}
			if c.Is("RotY") {
				axis = &geom.Vector3{Y: 1}
			} else if c.Is("RotZ") {
				axis = &geom.Vector3{Z: 1}
			}
			t = geom.NewAxisRotationMatrix4(axis, degToRad(v[0]))
		case c.Is("Scale"):
			v, err := c.Floats()
			if err != nil {
				return nil, err
			}
			switch len(v) {
			case 1:
				t = geom.NewScaleMatrix4(v[0], v[0], v[0])
			case 3:
				t = geom.NewScaleMatrix4(v[0], v[1], v[2])
			default:
				return nil, &ParseError{Line: c.Line + 1, Tag: c.Tag, Err: errTooFewValues}
			}
		case c.Is("Matrix4"):
			v, err := c.FloatsN(16)
			if err != nil {
				return nil, err
			}
			// rows of the file are the columns of a column-vector matrix
			t = geom.NewMatrix4FromSlice(v)
		default:
			continue
		}
		m = t.Mul(m)
	}
	return m.SwapYZ(), nil
}
