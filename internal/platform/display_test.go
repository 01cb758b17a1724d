package platform

import "testing"

func testDisplay(name string, x int, primary bool) Display {
	bounds := Rect{X: x, Y: 0, Width: 1920, Height: 1080}
	return Display{Name: name, Bounds: bounds, WorkArea: bounds, Primary: primary, Scale: 1}
}

func TestSameTopology(t *testing.T) {
	a := []Display{testDisplay("DP-1", 0, true), testDisplay("HDMI-1", 1920, false)}

	tests := []struct {
		name string
		next func() []Display
		want bool
	}{
		{"identical", func() []Display { return append([]Display(nil), a...) }, true},
		{"scale only", func() []Display {
			b := append([]Display(nil), a...)
			b[0].Scale = 2
			return b
		}, true},
		{"count differs", func() []Display { return a[:1] }, false},
		{"primary moved", func() []Display {
			b := append([]Display(nil), a...)
			b[0].Primary, b[1].Primary = false, true
			return b
		}, false},
		{"work area shrunk", func() []Display {
			b := append([]Display(nil), a...)
			b[1].WorkArea.Height -= 30
			return b
		}, false},
		{"order swapped", func() []Display { return []Display{a[1], a[0]} }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SameTopology(a, tt.next()); got != tt.want {
				t.Fatalf("SameTopology = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVirtualBounds(t *testing.T) {
	displays := []Display{testDisplay("DP-1", 0, true), testDisplay("HDMI-1", 1920, false)}
	displays[1].Bounds.Y = -200

	got := VirtualBounds(displays)
	want := Rect{X: 0, Y: -200, Width: 3840, Height: 1280}
	if got != want {
		t.Fatalf("VirtualBounds = %+v, want %+v", got, want)
	}
}

func TestDisplayForRect(t *testing.T) {
	displays := []Display{testDisplay("DP-1", 0, true), testDisplay("HDMI-1", 1920, false)}

	d, ok := DisplayForRect(displays, Rect{X: 2000, Y: 10, Width: 800, Height: 600})
	if !ok || d.Name != "HDMI-1" {
		t.Fatalf("expected HDMI-1, got %q (ok=%v)", d.Name, ok)
	}
	if _, ok := DisplayForRect(displays, Rect{X: 5000, Y: 0, Width: 10, Height: 10}); ok {
		t.Fatalf("expected no display for off-screen rect")
	}
}

func TestNormalizePrimary(t *testing.T) {
	tests := []struct {
		name string
		in   []Display
		want []bool
	}{
		{"none reported", []Display{testDisplay("DP-1", 0, false), testDisplay("HDMI-1", 1920, false)}, []bool{true, false}},
		{"second reported", []Display{testDisplay("DP-1", 0, false), testDisplay("HDMI-1", 1920, true)}, []bool{false, true}},
		{"two reported", []Display{testDisplay("DP-1", 0, true), testDisplay("HDMI-1", 1920, true)}, []bool{true, false}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizePrimary(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d displays, want %d", len(got), len(tt.want))
			}
			for i, d := range got {
				if d.Primary != tt.want[i] {
					t.Fatalf("display %s primary = %v, want %v", d.Name, d.Primary, tt.want[i])
				}
			}
		})
	}
}
