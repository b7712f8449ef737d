// Package pointcloud defines the point cloud containers used for sensor
// frames, the running model, and reference clouds, along with compaction and
// file persistence for them.
package pointcloud

import "math"

// MetaData is data about what's stored in the point cloud.
type MetaData struct {
	HasColor   bool
	HasNormals bool

	MinX, MaxX float64
	MinY, MaxY float64
	MinZ, MaxZ float64

	totalX, totalY, totalZ float64
}

// PointCloud is a general purpose container of points. Positions key the
// cloud; per-point attributes (color, intensity, surface normal) ride along
// in the Data payload so they stay index-aligned with positions by
// construction.
type PointCloud interface {
	// Size returns the number of points in the cloud.
	Size() int

	// MetaData returns meta data.
	MetaData() MetaData

	// Set places the given point in the cloud.
	Set(p Vec3, d Data) error

	// At returns the point in the cloud at the given position.
	// The 2nd return is if the point exists, the first is data if any.
	At(x, y, z float64) (Data, bool)

	// Iterate iterates over all points in the cloud and calls the given
	// function for each point. If the supplied function returns false,
	// iteration will stop after the function returns.
	Iterate(fn func(p Vec3, d Data) bool)
}

// NewMetaData returns a new meta data struct with bounds ready to be merged.
func NewMetaData() MetaData {
	return MetaData{
		MinX: math.MaxFloat64,
		MinY: math.MaxFloat64,
		MinZ: math.MaxFloat64,
		MaxX: -math.MaxFloat64,
		MaxY: -math.MaxFloat64,
		MaxZ: -math.MaxFloat64,
	}
}

// Merge updates the meta data with the new point.
func (meta *MetaData) Merge(p Vec3, data Data) {
	if data != nil {
		if data.HasColor() {
			meta.HasColor = true
		}
		if data.HasNormal() {
			meta.HasNormals = true
		}
	}

	if p.X > meta.MaxX {
		meta.MaxX = p.X
	}
	if p.Y > meta.MaxY {
		meta.MaxY = p.Y
	}
	if p.Z > meta.MaxZ {
		meta.MaxZ = p.Z
	}

	if p.X < meta.MinX {
		meta.MinX = p.X
	}
	if p.Y < meta.MinY {
		meta.MinY = p.Y
	}
	if p.Z < meta.MinZ {
		meta.MinZ = p.Z
	}

	meta.totalX += p.X
	meta.totalY += p.Y
	meta.totalZ += p.Z
}

// Center returns the centroid of all points merged into the meta data.
func (meta *MetaData) Center(size int) Vec3 {
	if size == 0 {
		return Vec3{}
	}
	n := float64(size)
	return Vec3{X: meta.totalX / n, Y: meta.totalY / n, Z: meta.totalZ / n}
}

// BoundingBoxMiddle returns the middle of the cloud's axis-aligned bounding
// box, used when centering reference clouds.
func (meta *MetaData) BoundingBoxMiddle() Vec3 {
	return Vec3{
		X: (meta.MinX + meta.MaxX) / 2,
		Y: (meta.MinY + meta.MaxY) / 2,
		Z: (meta.MinZ + meta.MaxZ) / 2,
	}
}
