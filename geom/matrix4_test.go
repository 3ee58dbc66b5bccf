package geom

import (
	"math"
	"testing"
)

func TestDecomposeMatrix(t *testing.T) {
	const eps = 0.00001

	pos := NewVector3(1, 2, 3)
	rot := NewHPRDegrees(10, 20, 30).Quaternion()
	scale := NewVector3(1.5, 1.6, 1.7)

	mat := NewTRSMatrix4(pos, rot, scale)
	pos1, rot1, scale1 := mat.Decompose()

	if pos.Sub(pos1).Len() > eps {
		t.Error("pos: ", pos, pos1)
	}
	if rot.Sub(rot1).Len() > eps {
		t.Error("rot: ", rot, rot1)
	}
	if scale.Sub(scale1).Len() > eps {
		t.Error("scale: ", scale, scale1)
	}

	mat2 := NewRotationMatrix4FromQuaternion(rot)
	pos1, rot1, scale1 = mat2.Decompose()
	if rot.Sub(rot1).Len() > eps {
		t.Error("rot: ", rot, rot1)
	}
	if pos1.Len() > eps {
		t.Error("pos: ", pos1)
	}
	if scale1.Sub(NewVector3(1, 1, 1)).Len() > eps {
		t.Error("scale: ", scale1)
	}
}

func TestMatrixInverse(t *testing.T) {
	const eps = 0.00001

	mat := NewTRSMatrix4(NewVector3(3, -2, 5), NewAxisAngleQuaternion(NewVector3(0, 1, 0), 0.7), NewVector3(2, 2, 2))
	v := NewVector3(0.5, 1, -4)
	back := mat.Inverse().ApplyTo(mat.ApplyTo(v))
	if back.Sub(v).Len() > eps {
		t.Error("inverse: ", v, back)
	}

	singular := NewScaleMatrix4(1, 0, 1)
	if singular.Det() != 0 || *singular.Inverse() != (Matrix4{}) {
		t.Error("singular matrix should return zero matrix")
	}
}

func TestMatrixSwapYZ(t *testing.T) {
	if !NewMatrix4().SwapYZ().IsIdentity() {
		t.Error("identity should stay identity")
	}

	// translation (1, 2, 3) in Z-up is (1, 3, 2) in Y-up
	m := NewTranslateMatrix4(1, 2, 3).SwapYZ()
	p := m.ApplyTo(&Vector3{})
	if *p != *NewVector3(1, 3, 2) {
		t.Error("translation: ", p)
	}

	// rotating around Z-up axis becomes rotation around Y
	rz := NewAxisRotationMatrix4(NewVector3(0, 0, 1), math.Pi/2)
	ry := rz.SwapYZ()
	v := ry.ApplyTo(NewVector3(1, 0, 0))
	if v.Sub(NewVector3(0, 0, 1)).Len() > 0.00001 {
		t.Error("rotation: ", v)
	}
}
