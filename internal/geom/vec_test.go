package geom

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   Vec2
		want Vec2
	}{
		{"zero stays zero", V(0, 0), V(0, 0)},
		{"axis", V(0, -5), V(0, -1)},
		{"diagonal", V(3, 4), V(0.6, 0.8)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize()
			if math.Abs(got.X-tt.want.X) > 1e-9 || math.Abs(got.Y-tt.want.Y) > 1e-9 {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestPerpIsOrthogonal(t *testing.T) {
	v := V(7, -2)
	if d := v.Dot(v.Perp()); d != 0 {
		t.Errorf("Expected perpendicular dot 0, got %f", d)
	}
}

func TestSign(t *testing.T) {
	if Sign(0.3) != 1 || Sign(-2) != -1 || Sign(0) != 0 {
		t.Error("Sign returned unexpected values")
	}
}
