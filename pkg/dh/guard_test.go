package dh

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		setup func(v *[ValueSize]byte)
		want  bool
	}{
		{"all zero", func(*[ValueSize]byte) {}, false},
		{"only last byte", func(v *[ValueSize]byte) { v[ValueSize-1] = 1 }, false},
		{"byte 8 set", func(v *[ValueSize]byte) { v[8] = 0xff }, false},
		{"byte 0 set", func(v *[ValueSize]byte) { v[0] = 1 }, true},
		{"byte 7 set", func(v *[ValueSize]byte) { v[7] = 0x80 }, true},
		{"all ones", func(v *[ValueSize]byte) {
			for i := range v {
				v[i] = 0xff
			}
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v [ValueSize]byte
			tt.setup(&v)
			if got := Validate(&v); got != tt.want {
				t.Errorf("Validate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsWeakShortInput(t *testing.T) {
	for _, b := range [][]byte{nil, {}, {1, 2, 3, 4, 5, 6, 7}} {
		if !IsWeak(b) {
			t.Errorf("IsWeak(%x) = false, want true", b)
		}
	}
	if IsWeak([]byte{0, 0, 0, 0, 0, 0, 0, 1}) {
		t.Error("8-byte input with a non-zero byte reported weak")
	}
}

func FuzzIsWeak(f *testing.F) {
	f.Add([]byte{})
	f.Add(make([]byte, 8))
	f.Add([]byte{0, 0, 0, 0, 0, 0, 0, 1, 0})

	f.Fuzz(func(t *testing.T, b []byte) {
		want := true
		if len(b) >= 8 {
			for _, c := range b[:8] {
				if c != 0 {
					want = false
				}
			}
		}
		if got := IsWeak(b); got != want {
			t.Errorf("IsWeak(%x) = %v, want %v", b, got, want)
		}
	})
}
