package actor

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestAABBOverlaps(t *testing.T) {
	unit := AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}

	tests := []struct {
		name     string
		other    AABB
		expected bool
	}{
		{"separated on X", AABB{Min: mgl64.Vec3{2, 0, 0}, Max: mgl64.Vec3{3, 1, 1}}, false},
		{"separated on Y", AABB{Min: mgl64.Vec3{0, -2, 0}, Max: mgl64.Vec3{1, -1, 1}}, false},
		{"separated on Z", AABB{Min: mgl64.Vec3{0, 0, 2}, Max: mgl64.Vec3{1, 1, 3}}, false},
		{"partial overlap", AABB{Min: mgl64.Vec3{0.5, 0.5, 0.5}, Max: mgl64.Vec3{1.5, 1.5, 1.5}}, true},
		{"face touching", AABB{Min: mgl64.Vec3{1, 0, 0}, Max: mgl64.Vec3{2, 1, 1}}, true},
		{"contained", AABB{Min: mgl64.Vec3{0.25, 0.25, 0.25}, Max: mgl64.Vec3{0.75, 0.75, 0.75}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := unit.Overlaps(tt.other); got != tt.expected {
				t.Errorf("Overlaps() = %v, want %v", got, tt.expected)
			}
			if got := tt.other.Overlaps(unit); got != tt.expected {
				t.Errorf("Overlaps() not symmetric: got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAABBContainsPoint(t *testing.T) {
	box := AABB{Min: mgl64.Vec3{-1, -1, -1}, Max: mgl64.Vec3{1, 1, 1}}

	if !box.ContainsPoint(mgl64.Vec3{0, 0, 0}) {
		t.Error("center should be contained")
	}
	if !box.ContainsPoint(mgl64.Vec3{1, 1, 1}) {
		t.Error("corner should be contained")
	}
	if box.ContainsPoint(mgl64.Vec3{1.01, 0, 0}) {
		t.Error("point outside on X should not be contained")
	}
}

func TestBoundPoints(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		if got := BoundPoints(nil); got != (AABB{}) {
			t.Errorf("BoundPoints(nil) = %v, want zero AABB", got)
		}
	})

	t.Run("scattered points", func(t *testing.T) {
		points := []mgl64.Vec3{{1, -2, 3}, {-4, 5, 0}, {2, 0, -6}}
		got := BoundPoints(points)

		want := AABB{Min: mgl64.Vec3{-4, -2, -6}, Max: mgl64.Vec3{2, 5, 3}}
		if got != want {
			t.Errorf("BoundPoints() = %v, want %v", got, want)
		}
		for _, p := range points {
			if !got.ContainsPoint(p) {
				t.Errorf("bounds %v should contain %v", got, p)
			}
		}
	})
}
