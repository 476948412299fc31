package scene

import (
	"testing"

	"github.com/relief-data/terrain.studio/internal/terrain"
)

func TestIsPlanar(t *testing.T) {
	tests := []struct {
		name   string
		points []terrain.Point3
		tol    float64
		want   bool
	}{
		{
			name: "flat quad",
			points: []terrain.Point3{
				{X: 0, Y: 0, Z: 1}, {X: 4, Y: 0, Z: 1}, {X: 4, Y: 4, Z: 1}, {X: 0, Y: 4, Z: 1},
			},
			tol:  1e-6,
			want: true,
		},
		{
			name: "tilted but planar quad",
			points: []terrain.Point3{
				{X: 0, Y: 0, Z: 0}, {X: 2, Y: 0, Z: 2}, {X: 2, Y: 2, Z: 2}, {X: 0, Y: 2, Z: 0},
			},
			tol:  1e-6,
			want: true,
		},
		{
			name: "twisted quad",
			points: []terrain.Point3{
				{X: 0, Y: 0, Z: 0}, {X: 4, Y: 0, Z: 5}, {X: 4, Y: 4, Z: 0}, {X: 0, Y: 4, Z: 5},
			},
			tol:  1e-6,
			want: false,
		},
		{
			name: "twisted quad within tolerance",
			points: []terrain.Point3{
				{X: 0, Y: 0, Z: 0}, {X: 4, Y: 0, Z: 0.01}, {X: 4, Y: 4, Z: 0}, {X: 0, Y: 4, Z: 0.01},
			},
			tol:  0.1,
			want: true,
		},
		{
			name: "triangle is trivially planar",
			points: []terrain.Point3{
				{X: 0, Y: 0, Z: 0}, {X: 1, Y: 0, Z: 9}, {X: 0, Y: 1, Z: -9},
			},
			tol:  1e-6,
			want: true,
		},
		{
			name: "collinear ring encloses nothing",
			points: []terrain.Point3{
				{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 1}, {X: 2, Y: 2, Z: 2}, {X: 3, Y: 3, Z: 3},
			},
			tol:  1e-6,
			want: true,
		},
		{
			name:   "empty ring",
			points: nil,
			tol:    1e-6,
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isPlanar(tt.points, tt.tol); got != tt.want {
				t.Fatalf("isPlanar = %v, want %v", got, tt.want)
			}
		})
	}
}
