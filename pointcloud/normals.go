package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

// Defaults for normal estimation, matching the hybrid search the alignment
// step expects: a small radius with a capped neighbor count.
const (
	DefaultNormalRadius       = 0.1
	DefaultNormalMaxNeighbors = 30
)

// EstimateNormals computes a unit surface normal for every point in the
// cloud from a PCA over its spatial neighborhood, orienting each normal
// toward the sensor origin. Estimation is lazy with respect to the cloud:
// clouds whose metadata already reports normals are returned untouched, so
// frames carried over from a previous step are not re-estimated. Each
// normal is written back through the cloud's own Set so the metadata flag
// is maintained by any implementation that tracks attributes there.
func EstimateNormals(cloud PointCloud, radius float64, maxNeighbors int) PointCloud {
	if cloud.MetaData().HasNormals || cloud.Size() == 0 {
		return cloud
	}

	// bin points once; neighborhoods are gathered from the 27 cells around
	// each query point
	cells := make(map[VoxelCoords][]r3.Vector, cloud.Size())
	cloud.Iterate(func(p r3.Vector, d Data) bool {
		c := GetVoxelCoordinates(p, radius)
		cells[c] = append(cells[c], p)
		return true
	})

	radiusSq := radius * radius
	type pendingNormal struct {
		p r3.Vector
		d Data
	}
	// payloads are written back after iteration so the cloud records the
	// normals in its metadata
	var pending []pendingNormal
	cloud.Iterate(func(p r3.Vector, d Data) bool {
		neighbors := gatherNeighbors(cells, p, radius, radiusSq, maxNeighbors)
		if len(neighbors) < 3 {
			return true
		}
		normal, ok := planeNormalFromPoints(neighbors)
		if !ok {
			return true
		}
		// orient toward the sensor at the frame origin
		if normal.Dot(p) > 0 {
			normal = normal.Mul(-1)
		}
		if d == nil {
			d = NewBasicData()
		}
		pending = append(pending, pendingNormal{p: p, d: d.SetNormal(normal)})
		return true
	})
	for _, pn := range pending {
		if err := cloud.Set(pn.p, pn.d); err != nil {
			break
		}
	}
	return cloud
}

func gatherNeighbors(
	cells map[VoxelCoords][]r3.Vector,
	p r3.Vector,
	radius, radiusSq float64,
	maxNeighbors int,
) []r3.Vector {
	center := GetVoxelCoordinates(p, radius)
	neighbors := make([]r3.Vector, 0, maxNeighbors)
	for di := int64(-1); di <= 1; di++ {
		for dj := int64(-1); dj <= 1; dj++ {
			for dk := int64(-1); dk <= 1; dk++ {
				key := VoxelCoords{I: center.I + di, J: center.J + dj, K: center.K + dk}
				for _, q := range cells[key] {
					d := q.Sub(p)
					if d.Dot(d) <= radiusSq {
						neighbors = append(neighbors, q)
						if len(neighbors) >= maxNeighbors {
							return neighbors
						}
					}
				}
			}
		}
	}
	return neighbors
}

// planeNormalFromPoints returns the direction of least variance of the
// neighborhood, the normal of the best fit plane through it.
func planeNormalFromPoints(pts []r3.Vector) (r3.Vector, bool) {
	var c r3.Vector
	for _, p := range pts {
		c = c.Add(p)
	}
	c = c.Mul(1 / float64(len(pts)))

	var xx, xy, xz, yy, yz, zz float64
	for _, p := range pts {
		d := p.Sub(c)
		xx += d.X * d.X
		xy += d.X * d.Y
		xz += d.X * d.Z
		yy += d.Y * d.Y
		yz += d.Y * d.Z
		zz += d.Z * d.Z
	}

	cov := mat.NewSymDense(3, []float64{
		xx, xy, xz,
		xy, yy, yz,
		xz, yz, zz,
	})
	var eig mat.EigenSym
	if !eig.Factorize(cov, true) {
		return r3.Vector{}, false
	}
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	// EigenSym returns eigenvalues in ascending order; the first eigenvector
	// spans the direction of least variance.
	normal := r3.Vector{X: vecs.At(0, 0), Y: vecs.At(1, 0), Z: vecs.At(2, 0)}
	n := normal.Norm()
	if n == 0 || math.IsNaN(n) {
		return r3.Vector{}, false
	}
	return normal.Mul(1 / n), true
}
