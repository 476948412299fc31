package scene

import (
	"math"

	"github.com/relief-data/terrain.studio/internal/terrain"
)

// isPlanar reports whether every point of the ring lies within tol of the
// ring's best-fit plane. The plane normal comes from Newell's method, which
// is stable for arbitrary (also non-convex) rings. Rings with fewer than
// four points are trivially planar, and a ring whose normal degenerates to
// zero (collinear points) encloses no area to be non-planar in.
func isPlanar(points []terrain.Point3, tol float64) bool {
	if len(points) < 4 {
		return true
	}

	var nx, ny, nz float64
	for i := range points {
		p := points[i]
		q := points[(i+1)%len(points)]
		nx += (p.Y - q.Y) * (p.Z + q.Z)
		ny += (p.Z - q.Z) * (p.X + q.X)
		nz += (p.X - q.X) * (p.Y + q.Y)
	}
	norm := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if norm == 0 {
		return true
	}
	nx, ny, nz = nx/norm, ny/norm, nz/norm

	// Plane through the centroid.
	var cx, cy, cz float64
	for _, p := range points {
		cx += p.X
		cy += p.Y
		cz += p.Z
	}
	n := float64(len(points))
	cx, cy, cz = cx/n, cy/n, cz/n

	for _, p := range points {
		d := (p.X-cx)*nx + (p.Y-cy)*ny + (p.Z-cz)*nz
		if math.Abs(d) > tol {
			return false
		}
	}
	return true
}
