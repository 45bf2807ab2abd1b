package codec

import (
	"encoding/binary"
	"math"
)

// Stack is a LIFO byte buffer. Values pushed are popped back in the exact
// reverse order of the push calls; the sending and receiving side must agree
// on that pairing, not on the absolute byte layout.
//
// Pops past the buffer are not guarded: both ends agree on SnapshotMaxSize
// and field order by protocol version, so an underflow is an integration bug
// and panics rather than returning an error.
type Stack struct {
	buf []byte
}

// NewStack creates an empty stack with the given capacity hint.
func NewStack(capacity int) *Stack {
	return &Stack{buf: make([]byte, 0, capacity)}
}

// FromBytes wraps a received buffer for popping. The slice is consumed in
// place; callers must not reuse it.
func FromBytes(b []byte) *Stack {
	return &Stack{buf: b}
}

// Bytes returns the accumulated wire bytes.
func (s *Stack) Bytes() []byte {
	return s.buf
}

// Len returns the number of bytes currently held.
func (s *Stack) Len() int {
	return len(s.buf)
}

// PushUint8 pushes a single byte.
func (s *Stack) PushUint8(v uint8) {
	s.buf = append(s.buf, v)
}

// PopUint8 pops a single byte.
func (s *Stack) PopUint8() uint8 {
	v := s.buf[len(s.buf)-1]
	s.buf = s.buf[:len(s.buf)-1]
	return v
}

// PushUint16 pushes a 16-bit value.
func (s *Stack) PushUint16(v uint16) {
	s.buf = binary.BigEndian.AppendUint16(s.buf, v)
}

// PopUint16 pops a 16-bit value.
func (s *Stack) PopUint16() uint16 {
	v := binary.BigEndian.Uint16(s.buf[len(s.buf)-2:])
	s.buf = s.buf[:len(s.buf)-2]
	return v
}

// PushUint32 pushes a 32-bit value.
func (s *Stack) PushUint32(v uint32) {
	s.buf = binary.BigEndian.AppendUint32(s.buf, v)
}

// PopUint32 pops a 32-bit value.
func (s *Stack) PopUint32() uint32 {
	v := binary.BigEndian.Uint32(s.buf[len(s.buf)-4:])
	s.buf = s.buf[:len(s.buf)-4]
	return v
}

// PushFloat32 pushes an uncompressed IEEE-754 float.
func (s *Stack) PushFloat32(v float32) {
	s.PushUint32(math.Float32bits(v))
}

// PopFloat32 pops an uncompressed IEEE-754 float.
func (s *Stack) PopFloat32() float32 {
	return math.Float32frombits(s.PopUint32())
}
