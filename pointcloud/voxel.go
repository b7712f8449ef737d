package pointcloud

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// VoxelCoords stores voxel coordinates on the compaction grid.
type VoxelCoords struct {
	I, J, K int64
}

// IsEqual tests if two VoxelCoords are the same.
func (c VoxelCoords) IsEqual(c2 VoxelCoords) bool {
	return c.I == c2.I && c.J == c2.J && c.K == c2.K
}

// GetVoxelCoordinates computes the voxel coordinates of a point on a fixed
// grid of the given resolution. The grid is anchored at the world origin
// rather than the cloud minimum so a cell's representative always re-bins
// into the same cell, making compaction idempotent.
func GetVoxelCoordinates(p r3.Vector, resolution float64) VoxelCoords {
	return VoxelCoords{
		I: int64(math.Floor(p.X / resolution)),
		J: int64(math.Floor(p.Y / resolution)),
		K: int64(math.Floor(p.Z / resolution)),
	}
}

type voxelAccumulator struct {
	sum       r3.Vector
	normalSum r3.Vector
	count     int
	data      Data // payload of the first point to land in the cell
	order     int
}

// VoxelDownsample reduces a cloud to one representative point per occupied
// cell of a fixed spatial grid with the given edge length. The
// representative is the centroid of the cell's points; it carries the color
// and intensity of the first point binned into the cell and the averaged
// normal when normals are present. An empty cloud reduces to an empty
// cloud. The result never has more points than the input and compacting a
// compacted cloud again at the same resolution is a no-op.
func VoxelDownsample(cloud PointCloud, resolution float64) (PointCloud, error) {
	if resolution <= 0 {
		return nil, errors.Errorf("invalid compaction resolution %f", resolution)
	}
	if cloud.Size() == 0 {
		return New(), nil
	}

	cells := make(map[VoxelCoords]*voxelAccumulator, cloud.Size())
	order := make([]VoxelCoords, 0, cloud.Size())
	cloud.Iterate(func(p r3.Vector, d Data) bool {
		coords := GetVoxelCoordinates(p, resolution)
		acc, ok := cells[coords]
		if !ok {
			acc = &voxelAccumulator{data: d, order: len(order)}
			cells[coords] = acc
			order = append(order, coords)
		}
		acc.sum = acc.sum.Add(p)
		if d != nil && d.HasNormal() {
			acc.normalSum = acc.normalSum.Add(d.Normal())
		}
		acc.count++
		return true
	})

	out := NewWithPrealloc(len(cells))
	// insertion order of the source cloud keys the output order
	for _, coords := range order {
		acc := cells[coords]
		centroid := acc.sum.Mul(1 / float64(acc.count))
		d := CloneData(acc.data)
		if acc.normalSum.Norm() > 0 {
			if d == nil {
				d = NewBasicData()
			}
			d.SetNormal(acc.normalSum.Normalize())
		}
		if err := out.Set(centroid, d); err != nil {
			return nil, err
		}
	}
	return out, nil
}
