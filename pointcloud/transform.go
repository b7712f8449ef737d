package pointcloud

import (
	"github.com/golang/geo/r3"

	"github.com/roadscan/lidarnav/spatialmath"
)

// Transformed returns a new cloud with every point moved by the given rigid
// transform. Surface normals are rotated but not translated. The source
// cloud is not modified.
func Transformed(cloud PointCloud, pose spatialmath.Pose) (PointCloud, error) {
	out := NewWithPrealloc(cloud.Size())
	var err error
	cloud.Iterate(func(p r3.Vector, d Data) bool {
		moved := pose.TransformPoint(p)
		dd := CloneData(d)
		if dd != nil && dd.HasNormal() {
			dd.SetNormal(pose.RotatePoint(dd.Normal()))
		}
		err = out.Set(moved, dd)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MergeInto fuses all points of src into dst. Points of src that collide
// exactly with existing dst positions replace their payloads, matching set
// semantics of the underlying storage.
func MergeInto(dst, src PointCloud) error {
	var err error
	src.Iterate(func(p r3.Vector, d Data) bool {
		err = dst.Set(p, d)
		return err == nil
	})
	return err
}

// Clone returns a deep copy of the cloud.
func Clone(cloud PointCloud) (PointCloud, error) {
	out := NewWithPrealloc(cloud.Size())
	var err error
	cloud.Iterate(func(p r3.Vector, d Data) bool {
		err = out.Set(p, CloneData(d))
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
