package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Matrix4 is a column-major matrix with the same layout as mgl32.Mat4 and glTF.
type Matrix4 [16]Element

func NewMatrix4() *Matrix4 {
	m := Matrix4(mgl32.Ident4())
	return &m
}

func NewMatrix4FromSlice(a []Element) *Matrix4 {
	mat := &Matrix4{}
	copy(mat[:], a)
	return mat
}

func NewScaleMatrix4(x, y, z Element) *Matrix4 {
	m := Matrix4(mgl32.Scale3D(x, y, z))
	return &m
}

func NewTranslateMatrix4(x, y, z Element) *Matrix4 {
	m := Matrix4(mgl32.Translate3D(x, y, z))
	return &m
}

// NewRotationMatrix4FromQuaternion expects a unit quaternion.
func NewRotationMatrix4FromQuaternion(q *Quaternion) *Matrix4 {
	m := Matrix4(q.Quat().Mat4())
	return &m
}

// NewAxisRotationMatrix4 returns the rotation of rad radians around axis.
func NewAxisRotationMatrix4(axis *Vector3, rad Element) *Matrix4 {
	return NewRotationMatrix4FromQuaternion(NewAxisAngleQuaternion(axis, rad))
}

// NewTRSMatrix4 returns T * R * S.
func NewTRSMatrix4(pos *Vector3, rot *Quaternion, scale *Vector3) *Matrix4 {
	return NewTranslateMatrix4(pos.X, pos.Y, pos.Z).
		Mul(NewRotationMatrix4FromQuaternion(rot)).
		Mul(NewScaleMatrix4(scale.X, scale.Y, scale.Z))
}

// Mul returns b * a. (a is applied first)
func (b *Matrix4) Mul(a *Matrix4) *Matrix4 {
	r := Matrix4(mgl32.Mat4(*b).Mul4(mgl32.Mat4(*a)))
	return &r
}

func (m *Matrix4) Det() float32 {
	return mgl32.Mat4(*m).Det()
}

// Inverse returns the inverse matrix, or a zero matrix if m is singular.
func (m *Matrix4) Inverse() *Matrix4 {
	r := Matrix4(mgl32.Mat4(*m).Inv())
	return &r
}

func (m *Matrix4) Clone() *Matrix4 {
	r := *m
	return &r
}

func (m *Matrix4) IsIdentity() bool {
	return *m == *NewMatrix4()
}

// SwapYZ converts a Z-up matrix into the Y-up convention (C * m * C where C swaps the Y and Z axes).
func (m *Matrix4) SwapYZ() *Matrix4 {
	p := [4]int{0, 2, 1, 3}
	r := &Matrix4{}
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			r[col*4+row] = m[p[col]*4+p[row]]
		}
	}
	return r
}

func (mat *Matrix4) ToArray(a []Element) {
	copy(a, mat[:])
}

// Decompose returns translation, rotation and scale of an affine TRS matrix.
func (m *Matrix4) Decompose() (*Vector3, *Quaternion, *Vector3) {
	pos := &Vector3{X: m[12], Y: m[13], Z: m[14]}
	scale := &Vector3{
		X: NewVector3(m[0], m[1], m[2]).Len(),
		Y: NewVector3(m[4], m[5], m[6]).Len(),
		Z: NewVector3(m[8], m[9], m[10]).Len(),
	}
	if m.Det() < 0 {
		scale.X = -scale.X
	}
	if scale.X == 0 || scale.Y == 0 || scale.Z == 0 {
		return pos, NewQuaternion(0, 0, 0, 1), scale
	}

	m11, m21, m31 := float64(m[0]/scale.X), float64(m[1]/scale.X), float64(m[2]/scale.X)
	m12, m22, m32 := float64(m[4]/scale.Y), float64(m[5]/scale.Y), float64(m[6]/scale.Y)
	m13, m23, m33 := float64(m[8]/scale.Z), float64(m[9]/scale.Z), float64(m[10]/scale.Z)

	q := &Quaternion{}
	trace := m11 + m22 + m33
	if trace > 0 {
		s := 0.5 / math.Sqrt(trace+1.0)
		q.W = Element(0.25 / s)
		q.X = Element((m32 - m23) * s)
		q.Y = Element((m13 - m31) * s)
		q.Z = Element((m21 - m12) * s)
	} else if m11 > m22 && m11 > m33 {
		s := 2.0 * math.Sqrt(1.0+m11-m22-m33)
		q.W = Element((m32 - m23) / s)
		q.X = Element(0.25 * s)
		q.Y = Element((m12 + m21) / s)
		q.Z = Element((m13 + m31) / s)
	} else if m22 > m33 {
		s := 2.0 * math.Sqrt(1.0+m22-m11-m33)
		q.W = Element((m13 - m31) / s)
		q.X = Element((m12 + m21) / s)
		q.Y = Element(0.25 * s)
		q.Z = Element((m23 + m32) / s)
	} else {
		s := 2.0 * math.Sqrt(1.0+m33-m11-m22)
		q.W = Element((m21 - m12) / s)
		q.X = Element((m13 + m31) / s)
		q.Y = Element((m23 + m32) / s)
		q.Z = Element(0.25 * s)
	}
	if q.W < 0 {
		q = &Quaternion{X: -q.X, Y: -q.Y, Z: -q.Z, W: -q.W}
	}
	return pos, q.Normalize(), scale
}
