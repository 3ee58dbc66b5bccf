package geom

import "github.com/go-gl/mathgl/mgl32"

// Vector4 holds colors and rotations. As a rotation, W is the real part.
type Vector4 struct {
	X Element
	Y Element
	Z Element
	W Element
}

type Quaternion = Vector4

func NewVector4(x, y, z, w float32) *Vector4 {
	return &Vector4{X: x, Y: y, Z: z, W: w}
}

func NewQuaternion(x, y, z, w float32) *Quaternion {
	return &Vector4{X: x, Y: y, Z: z, W: w}
}

func NewQuaternionFromQuat(q mgl32.Quat) *Quaternion {
	return &Quaternion{X: q.V[0], Y: q.V[1], Z: q.V[2], W: q.W}
}

// NewAxisAngleQuaternion returns the rotation of rad radians around axis.
func NewAxisAngleQuaternion(axis *Vector3, rad float32) *Quaternion {
	a := *axis
	a.Normalize()
	return NewQuaternionFromQuat(mgl32.QuatRotate(rad, mgl32.Vec3{a.X, a.Y, a.Z}))
}

func (q *Quaternion) Quat() mgl32.Quat {
	return mgl32.Quat{W: q.W, V: mgl32.Vec3{q.X, q.Y, q.Z}}
}

func (v *Vector4) Sub(v2 *Vector4) *Vector4 {
	r := mgl32.Vec4{v.X, v.Y, v.Z, v.W}.Sub(mgl32.Vec4{v2.X, v2.Y, v2.Z, v2.W})
	return &Vector4{X: r[0], Y: r[1], Z: r[2], W: r[3]}
}

func (v *Vector4) Len() Element {
	return mgl32.Vec4{v.X, v.Y, v.Z, v.W}.Len()
}

// Normalize returns a unit quaternion. A zero quaternion becomes the identity.
func (q *Quaternion) Normalize() *Quaternion {
	return NewQuaternionFromQuat(q.Quat().Normalize())
}

func (v *Vector4) Array() [4]Element {
	return [4]Element{v.X, v.Y, v.Z, v.W}
}

// Inverse returns the conjugate. (unit quaternion only)
func (q *Quaternion) Inverse() *Quaternion {
	return NewQuaternionFromQuat(q.Quat().Conjugate())
}

func (q *Quaternion) Mul(b *Quaternion) *Quaternion {
	return NewQuaternionFromQuat(q.Quat().Mul(b.Quat()))
}

func (q *Quaternion) Slerp(b *Quaternion, t float32) *Quaternion {
	return NewQuaternionFromQuat(mgl32.QuatSlerp(q.Quat(), b.Quat(), t))
}

func (q *Quaternion) ApplyTo(v *Vector3) *Vector3 {
	r := q.Quat().Rotate(mgl32.Vec3{v.X, v.Y, v.Z})
	return &Vector3{X: r[0], Y: r[1], Z: r[2]}
}
