// pkg/core/transform.go
package core

// Vector3 represents a 3D vector in local space.
type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion represents a rotation. Upstream code is expected to keep it
// normalized; this package never renormalizes.
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Identity is the no-rotation quaternion.
func Identity() Quaternion {
	return Quaternion{W: 1}
}

// One is the unit scale vector.
func One() Vector3 {
	return Vector3{X: 1, Y: 1, Z: 1}
}

// TransformSnapshot is the unit of replication: a point-in-time copy of an
// object's local transform.
type TransformSnapshot struct {
	Position Vector3    `json:"position"`
	Rotation Quaternion `json:"rotation"`
	Scale    Vector3    `json:"scale"`
}
