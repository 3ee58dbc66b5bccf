package geom

import "math"

// HPR holds heading, pitch and roll in radians. Heading turns around the up axis,
// pitch around X and roll around the forward axis, applied roll first.
type HPR struct {
	H, P, R Element
}

func NewHPR(h, p, r float32) *HPR {
	return &HPR{H: h, P: p, R: r}
}

// NewHPRDegrees converts angles given in degrees.
func NewHPRDegrees(h, p, r float32) *HPR {
	const d = math.Pi / 180
	return &HPR{H: h * d, P: p * d, R: r * d}
}

// NewHPRFromMatrix4 extracts angles from the rotation part of a Y-up matrix without scale.
func NewHPRFromMatrix4(mat *Matrix4) *HPR {
	const eps = 0.00000001
	clamp := func(v float64) float64 { return math.Max(-1, math.Min(v, 1)) }
	m11, m31 := float64(mat[0]), float64(mat[2])
	m21, m22 := float64(mat[1]), float64(mat[5])
	m13, m23, m33 := float64(mat[8]), float64(mat[9]), float64(mat[10])

	// Y-up rotation is Ry(-h) * Rx(-p) * Rz(-r)
	var x, y, z float64
	x = math.Asin(-clamp(m23))
	if math.Abs(m23) < 1-eps {
		y = math.Atan2(m13, m33)
		z = math.Atan2(m21, m22)
	} else {
		y = math.Atan2(-m31, m11)
	}
	return &HPR{H: Element(-y), P: Element(-x), R: Element(-z)}
}

func NewHPRFromQuaternion(q *Quaternion) *HPR {
	return NewHPRFromMatrix4(NewRotationMatrix4FromQuaternion(q))
}

// Degrees returns (h, p, r) in degrees.
func (a *HPR) Degrees() *Vector3 {
	return NewVector3(a.H, a.P, a.R).Scale(180 / math.Pi)
}

// Quaternion returns the rotation in Y-up space.
func (a *HPR) Quaternion() *Quaternion {
	qh := NewAxisAngleQuaternion(&Vector3{Y: 1}, -a.H)
	qp := NewAxisAngleQuaternion(&Vector3{X: 1}, -a.P)
	qr := NewAxisAngleQuaternion(&Vector3{Z: 1}, -a.R)
	return qh.Mul(qp).Mul(qr)
}
