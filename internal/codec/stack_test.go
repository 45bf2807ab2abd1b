package codec

import "testing"

func TestStack_PopsInReverseOrder(t *testing.T) {
	s := NewStack(16)
	s.PushUint8(1)
	s.PushUint16(2)
	s.PushUint32(3)
	s.PushFloat32(4.5)

	if got := s.PopFloat32(); got != 4.5 {
		t.Errorf("expected 4.5, got %f", got)
	}
	if got := s.PopUint32(); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
	if got := s.PopUint16(); got != 2 {
		t.Errorf("expected 2, got %d", got)
	}
	if got := s.PopUint8(); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty stack, %d bytes left", s.Len())
	}
}

func TestStack_BytesSurviveTransit(t *testing.T) {
	s := NewStack(8)
	s.PushUint32(0xDEADBEEF)
	s.PushUint16(0x0102)

	rd := FromBytes(s.Bytes())
	if got := rd.PopUint16(); got != 0x0102 {
		t.Errorf("expected 0x0102, got %#x", got)
	}
	if got := rd.PopUint32(); got != 0xDEADBEEF {
		t.Errorf("expected 0xDEADBEEF, got %#x", got)
	}
}
