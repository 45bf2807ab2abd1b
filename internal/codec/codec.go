// Package codec serializes transform snapshots into a fixed-capacity,
// stack-ordered wire buffer. Position and rotation are lossy-compressed;
// scale rides along uncompressed.
package codec

import (
	"math"

	"github.com/distsim/transformsync/pkg/core"
)

const (
	// PositionBytes is the fixed width of a compressed position.
	PositionBytes = 12

	// RotationMaxBytes bounds the variable-width compressed rotation:
	// one header byte plus up to three 16-bit components.
	RotationMaxBytes = 7

	// SnapshotMaxSize is the byte capacity reserved for compressed
	// position+rotation. Both ends must agree on it; scale bytes are
	// appended beyond this budget.
	SnapshotMaxSize = PositionBytes + RotationMaxBytes

	scaleBytes = 12

	// positionScale quantizes each axis to millimeters in an int32,
	// bounding the coordinate range to roughly ±2.1e6 meters.
	positionScale = 1000.0

	// PositionPrecision is the quantization step for position axes.
	PositionPrecision = 1.0 / positionScale

	// rotationScale maps the smallest-three component range [-1/√2, 1/√2]
	// onto the int16 range.
	rotationScale = 32767.0 * math.Sqrt2

	// RotationPrecision is the quantization step for quaternion components.
	RotationPrecision = 1.0 / rotationScale
)

// Encode serializes a snapshot. Fields are pushed scale-first so that the
// natural pop order on the receiving side yields position, rotation, scale.
func Encode(snap core.TransformSnapshot) []byte {
	st := NewStack(SnapshotMaxSize + scaleBytes)
	PushScale(st, snap.Scale)
	PushRotation(st, snap.Rotation)
	PushPosition(st, snap.Position)
	return st.Bytes()
}

// Decode is the inverse of Encode. Malformed buffers are an integration bug,
// not a runtime condition; see Stack.
func Decode(buf []byte) core.TransformSnapshot {
	st := FromBytes(buf)
	return core.TransformSnapshot{
		Position: PopPosition(st),
		Rotation: PopRotation(st),
		Scale:    PopScale(st),
	}
}

// PushPosition compresses a position to three quantized int32 axes.
func PushPosition(s *Stack, v core.Vector3) {
	// Axes pushed in reverse so pops return X, Y, Z.
	s.PushUint32(quantizePos(v.Z))
	s.PushUint32(quantizePos(v.Y))
	s.PushUint32(quantizePos(v.X))
}

// PopPosition mirrors PushPosition.
func PopPosition(s *Stack) core.Vector3 {
	return core.Vector3{
		X: dequantizePos(s.PopUint32()),
		Y: dequantizePos(s.PopUint32()),
		Z: dequantizePos(s.PopUint32()),
	}
}

// PushRotation compresses a unit quaternion using smallest-three encoding.
// The largest component is reconstructed from the other three; components
// that quantize to exactly zero are omitted from the wire, so the chunk is
// variable-sized but never exceeds RotationMaxBytes. The header byte is
// pushed last so it pops first on the receiving side.
func PushRotation(s *Stack, q core.Quaternion) {
	comps := [4]float64{q.X, q.Y, q.Z, q.W}

	largest := 0
	for i := 1; i < 4; i++ {
		if math.Abs(comps[i]) > math.Abs(comps[largest]) {
			largest = i
		}
	}

	var quantized [3]uint16
	var mask uint8
	k := 0
	for i := 0; i < 4; i++ {
		if i == largest {
			continue
		}
		qv := quantizeRot(comps[i])
		quantized[k] = qv
		if qv != 0 {
			mask |= 1 << k
		}
		k++
	}

	// Components pushed in reverse so pops return them in ascending order.
	for k := 2; k >= 0; k-- {
		if mask&(1<<k) != 0 {
			s.PushUint16(quantized[k])
		}
	}

	header := uint8(largest) << 6
	if comps[largest] < 0 {
		header |= 1 << 5
	}
	header |= mask
	s.PushUint8(header)
}

// PopRotation mirrors PushRotation.
func PopRotation(s *Stack) core.Quaternion {
	header := s.PopUint8()
	largest := int(header >> 6)
	negative := header&(1<<5) != 0
	mask := header & 0x07

	var smalls [3]float64
	sumSq := 0.0
	for k := 0; k < 3; k++ {
		if mask&(1<<k) != 0 {
			smalls[k] = dequantizeRot(s.PopUint16())
			sumSq += smalls[k] * smalls[k]
		}
	}

	reconstructed := math.Sqrt(math.Max(0, 1-sumSq))
	if negative {
		reconstructed = -reconstructed
	}

	var comps [4]float64
	k := 0
	for i := 0; i < 4; i++ {
		if i == largest {
			comps[i] = reconstructed
			continue
		}
		comps[i] = smalls[k]
		k++
	}

	return core.Quaternion{X: comps[0], Y: comps[1], Z: comps[2], W: comps[3]}
}

// PushScale writes three raw float32 axes, uncompressed.
func PushScale(s *Stack, v core.Vector3) {
	s.PushFloat32(float32(v.Z))
	s.PushFloat32(float32(v.Y))
	s.PushFloat32(float32(v.X))
}

// PopScale mirrors PushScale.
func PopScale(s *Stack) core.Vector3 {
	return core.Vector3{
		X: float64(s.PopFloat32()),
		Y: float64(s.PopFloat32()),
		Z: float64(s.PopFloat32()),
	}
}

func quantizePos(v float64) uint32 {
	q := math.Round(v * positionScale)
	if q > math.MaxInt32 {
		q = math.MaxInt32
	} else if q < math.MinInt32 {
		q = math.MinInt32
	}
	return uint32(int32(q))
}

func dequantizePos(q uint32) float64 {
	return float64(int32(q)) / positionScale
}

func quantizeRot(v float64) uint16 {
	q := math.Round(v * rotationScale)
	if q > math.MaxInt16 {
		q = math.MaxInt16
	} else if q < math.MinInt16 {
		q = math.MinInt16
	}
	return uint16(int16(q))
}

func dequantizeRot(q uint16) float64 {
	return float64(int16(q)) / rotationScale
}
