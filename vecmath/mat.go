package vecmath

// Mat3 is a 3x3 matrix stored as three column vectors. Column storage matches
// the shape-matching reduction, which accumulates and consumes columns.
type Mat3 struct {
	Cols [3]Vec3
}

// Identity3 returns the identity matrix.
func Identity3() Mat3 {
	return Mat3{Cols: [3]Vec3{
		{X: 1}, {Y: 1}, {Z: 1},
	}}
}

// MulVec returns m * v.
func (m Mat3) MulVec(v Vec3) Vec3 {
	return m.Cols[0].Scale(v.X).Add(m.Cols[1].Scale(v.Y)).Add(m.Cols[2].Scale(v.Z))
}

// AddOuter accumulates the outer product p*qᵀ into m.
func (m *Mat3) AddOuter(p, q Vec3) {
	m.Cols[0] = m.Cols[0].Add(p.Scale(q.X))
	m.Cols[1] = m.Cols[1].Add(p.Scale(q.Y))
	m.Cols[2] = m.Cols[2].Add(p.Scale(q.Z))
}
