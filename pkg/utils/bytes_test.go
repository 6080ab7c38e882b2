package utils

import "testing"

func TestFloat32BytesRoundTrip(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4e38, 1.4e-45}
	got := BytesToFloat32Slice(Float32SliceToBytes(in))
	if len(got) != len(in) {
		t.Fatalf("got %d values, want %d", len(got), len(in))
	}
	for i := range in {
		if got[i] != in[i] {
			t.Errorf("value %d = %v, want %v", i, got[i], in[i])
		}
	}
}

func TestFloat32SliceToBytes_empty(t *testing.T) {
	if b := Float32SliceToBytes(nil); len(b) != 0 {
		t.Errorf("got %d bytes, want 0", len(b))
	}
	if s := BytesToFloat32Slice(nil); len(s) != 0 {
		t.Errorf("got %d values, want 0", len(s))
	}
}

func TestFloat32SliceToBytes_littleEndian(t *testing.T) {
	// 1.0 is 0x3F800000.
	b := Float32SliceToBytes([]float32{1})
	want := []byte{0x00, 0x00, 0x80, 0x3F}
	for i := range want {
		if b[i] != want[i] {
			t.Fatalf("bytes = %v, want %v", b, want)
		}
	}
}
