package common

import "testing"

// ---------- WipeByteArray ----------

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

// ---------- MakeRandToken ----------

func TestMakeRandToken_LengthAndAlphabet(t *testing.T) {
	s, err := MakeRandToken(TokenLength)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != TokenLength {
		t.Fatalf("expected length %d, got %d", TokenLength, len(s))
	}
	for _, r := range s {
		if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			t.Fatalf("unexpected character %q in %q", r, s)
		}
	}
}
