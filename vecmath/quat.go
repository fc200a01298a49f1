package vecmath

import "math"

// Quat is a rotation quaternion (X, Y, Z imaginary, W real).
type Quat struct {
	X, Y, Z, W float32
}

// IdentityQuat returns the identity rotation.
func IdentityQuat() Quat {
	return Quat{W: 1}
}

// FromAxisAngle builds a quaternion rotating angle radians about the unit axis.
func FromAxisAngle(axis Vec3, angle float32) Quat {
	half := float64(angle) * 0.5
	s := float32(math.Sin(half))
	return Quat{
		X: axis.X * s,
		Y: axis.Y * s,
		Z: axis.Z * s,
		W: float32(math.Cos(half)),
	}
}

// Mul returns the Hamilton product q * r (apply r first, then q).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
	}
}

// Normalized returns q scaled to unit norm. The identity is returned for a
// degenerate zero quaternion.
func (q Quat) Normalized() Quat {
	n := Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if n == 0 {
		return IdentityQuat()
	}
	inv := 1 / n
	return Quat{q.X * inv, q.Y * inv, q.Z * inv, q.W * inv}
}

// Norm returns the quaternion norm.
func (q Quat) Norm() float32 {
	return Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Mat3 returns the rotation matrix for q. q must be unit norm.
func (q Quat) Mat3() Mat3 {
	x2, y2, z2 := q.X+q.X, q.Y+q.Y, q.Z+q.Z
	xx, yy, zz := q.X*x2, q.Y*y2, q.Z*z2
	xy, xz, yz := q.X*y2, q.X*z2, q.Y*z2
	wx, wy, wz := q.W*x2, q.W*y2, q.W*z2

	return Mat3{Cols: [3]Vec3{
		{1 - (yy + zz), xy + wz, xz - wy},
		{xy - wz, 1 - (xx + zz), yz + wx},
		{xz + wy, yz - wx, 1 - (xx + yy)},
	}}
}

// RotateVec rotates v by q without forming the matrix.
func (q Quat) RotateVec(v Vec3) Vec3 {
	u := Vec3{q.X, q.Y, q.Z}
	t := u.Cross(v).Scale(2)
	return v.Add(t.Scale(q.W)).Add(u.Cross(t))
}
