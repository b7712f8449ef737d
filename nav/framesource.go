package nav

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"github.com/roadscan/lidarnav/pointcloud"
)

// FrameSource produces the sequence of point cloud frames a run consumes.
// A nil frame with a nil error signals end of stream, which is normal
// termination, not an error. The read cursor is explicit state inside the
// source, never ambient.
type FrameSource interface {
	// NextFrame returns the next filtered frame, or (nil, nil) at end of
	// stream.
	NextFrame(ctx context.Context) (pointcloud.PointCloud, error)

	// Reset rewinds the cursor to the first frame.
	Reset()

	// Count returns the total number of frames the source can produce.
	Count() int

	// CurrentPosition returns the sensor stream's own position record for
	// the frame most recently returned, used in absolute mode for
	// cross-validation. The second return is false when the source carries
	// no position records.
	CurrentPosition() (r3.Vector, bool)
}

// FileSourceConfig filters and augments a directory-backed frame source.
type FileSourceConfig struct {
	// Skip discards this many frames from the front of the sequence.
	Skip int
	// MaxRange drops points farther than this from the sensor origin; 0
	// disables the filter.
	MaxRange float64
	// RemoveForeground drops points within ForegroundRadius of the sensor.
	RemoveForeground bool
	// ForegroundRadius is the foreground removal radius.
	ForegroundRadius float64
	// Positions optionally carries one independent position record per
	// frame, index-aligned with the frame sequence.
	Positions []r3.Vector
}

// FileSource reads frames from a directory of PCD files in lexical order.
type FileSource struct {
	files  []string
	cfg    FileSourceConfig
	cursor int
}

// NewFileSource lists the PCD files under dir as the frame sequence.
func NewFileSource(dir string, cfg FileSourceConfig) (*FileSource, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.pcd"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no frames found under %q", dir)
	}
	sort.Strings(files)
	if cfg.Skip > 0 {
		if cfg.Skip >= len(files) {
			return nil, errors.Errorf("skip %d leaves no frames of the %d found", cfg.Skip, len(files))
		}
		files = files[cfg.Skip:]
		// position records belong to the skipped frames too; a list shorter
		// than the skip count has nothing left to serve
		cfg.Positions = cfg.Positions[min(cfg.Skip, len(cfg.Positions)):]
	}
	if cfg.RemoveForeground && cfg.ForegroundRadius <= 0 {
		cfg.ForegroundRadius = DefaultForegroundRadius
	}
	return &FileSource{files: files, cfg: cfg}, nil
}

// NextFrame implements FrameSource.
func (fs *FileSource) NextFrame(ctx context.Context) (pointcloud.PointCloud, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fs.cursor >= len(fs.files) {
		return nil, nil
	}
	fn := fs.files[fs.cursor]
	fs.cursor++

	f, err := os.Open(fn)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open frame %q", fn)
	}
	defer utils.UncheckedErrorFunc(f.Close)
	frame, err := pointcloud.ReadPCD(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode frame %q", fn)
	}
	return fs.filter(frame)
}

// filter applies the distance and foreground filters. A frame reduced to
// zero points is still returned; the aligner reports it as a zero fitness
// step rather than the source hiding it.
func (fs *FileSource) filter(frame pointcloud.PointCloud) (pointcloud.PointCloud, error) {
	if fs.cfg.MaxRange <= 0 && !fs.cfg.RemoveForeground {
		return frame, nil
	}
	out := pointcloud.NewWithPrealloc(frame.Size())
	var err error
	frame.Iterate(func(p r3.Vector, d pointcloud.Data) bool {
		dist := p.Norm()
		if fs.cfg.MaxRange > 0 && dist > fs.cfg.MaxRange {
			return true
		}
		if fs.cfg.RemoveForeground && dist < fs.cfg.ForegroundRadius {
			return true
		}
		err = out.Set(p, d)
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Reset implements FrameSource.
func (fs *FileSource) Reset() {
	fs.cursor = 0
}

// Count implements FrameSource.
func (fs *FileSource) Count() int {
	return len(fs.files)
}

// CurrentPosition implements FrameSource.
func (fs *FileSource) CurrentPosition() (r3.Vector, bool) {
	idx := fs.cursor - 1
	if idx < 0 || idx >= len(fs.cfg.Positions) {
		return r3.Vector{}, false
	}
	return fs.cfg.Positions[idx], true
}
