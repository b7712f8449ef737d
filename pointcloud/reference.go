package pointcloud

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"github.com/roadscan/lidarnav/spatialmath"
)

// ReferenceCloud is a fixed cloud that frames are aligned against in
// absolute mode. Offset records how far the cloud was translated from its
// original coordinate system toward the origin; any independent positioning
// source must be translated by the same offset to stay comparable.
type ReferenceCloud struct {
	Cloud  PointCloud
	Offset r3.Vector
}

// referenceSidecar is the small descriptor persisted next to a pre-processed
// reference cloud.
type referenceSidecar struct {
	CloudFile string     `json:"cloud_file"`
	Offset    [3]float64 `json:"offset"`
}

// LoadReference loads a reference cloud for absolute-mode alignment. The
// path may name either a raw point cloud file, which is centered to its
// bounding box middle with normals estimated, or a sidecar descriptor
// referencing an already centered cloud plus its stored offset. Either path
// yields the same in-memory state. Failures here are fatal for a run; there
// is no alignment reference without it.
func LoadReference(fn string, logger golog.Logger) (*ReferenceCloud, error) {
	if filepath.Ext(fn) == ".json" {
		return loadReferenceSidecar(fn, logger)
	}

	cloud, err := loadCloudFile(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load reference cloud %q", fn)
	}
	if cloud.Size() == 0 {
		return nil, errors.Errorf("reference cloud %q is empty", fn)
	}

	meta := cloud.MetaData()
	offset := meta.BoundingBoxMiddle()
	logger.Infow("centering reference cloud", "points", cloud.Size(), "offset", offset)
	centered, err := Transformed(cloud, spatialmath.NewPoseFromTranslation(offset.Mul(-1)))
	if err != nil {
		return nil, err
	}
	centered = EstimateNormals(centered, DefaultNormalRadius, DefaultNormalMaxNeighbors)

	return &ReferenceCloud{Cloud: centered, Offset: offset}, nil
}

func loadReferenceSidecar(fn string, logger golog.Logger) (*ReferenceCloud, error) {
	raw, err := os.ReadFile(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read reference sidecar %q", fn)
	}
	var sidecar referenceSidecar
	if err := json.Unmarshal(raw, &sidecar); err != nil {
		return nil, errors.Wrapf(err, "malformed reference sidecar %q", fn)
	}
	if sidecar.CloudFile == "" {
		return nil, errors.Errorf("reference sidecar %q names no cloud file", fn)
	}

	cloudPath := sidecar.CloudFile
	if !filepath.IsAbs(cloudPath) {
		cloudPath = filepath.Join(filepath.Dir(fn), cloudPath)
	}
	cloud, err := loadCloudFile(cloudPath)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot load pre-processed reference cloud %q", cloudPath)
	}
	if cloud.Size() == 0 {
		return nil, errors.Errorf("pre-processed reference cloud %q is empty", cloudPath)
	}
	logger.Infow("loaded pre-processed reference cloud", "points", cloud.Size())
	cloud = EstimateNormals(cloud, DefaultNormalRadius, DefaultNormalMaxNeighbors)

	return &ReferenceCloud{
		Cloud:  cloud,
		Offset: r3.Vector{X: sidecar.Offset[0], Y: sidecar.Offset[1], Z: sidecar.Offset[2]},
	}, nil
}

// SaveProcessed persists the centered reference cloud plus a sidecar
// descriptor so later runs can skip the raw load.
func (rc *ReferenceCloud) SaveProcessed(cloudPath, sidecarPath string) (err error) {
	f, err := os.Create(cloudPath)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()
	if err = WritePCD(rc.Cloud, f, PCDBinary); err != nil {
		return
	}

	sidecar := referenceSidecar{
		CloudFile: filepath.Base(cloudPath),
		Offset:    [3]float64{rc.Offset.X, rc.Offset.Y, rc.Offset.Z},
	}
	raw, err := json.MarshalIndent(sidecar, "", "  ")
	if err != nil {
		return
	}
	err = os.WriteFile(sidecarPath, raw, 0o644)
	//nolint:nakedret
	return
}

// loadCloudFile reads a point cloud file by extension.
func loadCloudFile(fn string) (PointCloud, error) {
	switch filepath.Ext(fn) {
	case ".las":
		return NewFromLASFile(fn)
	case ".pcd":
		f, err := os.Open(fn)
		if err != nil {
			return nil, err
		}
		defer utils.UncheckedErrorFunc(f.Close)
		return ReadPCD(f)
	default:
		return nil, errors.Errorf("do not know how to read file %q", fn)
	}
}
