// Package nav contains the trajectory and fusion engine: it drains a frame
// source, aligns each frame against a reference, accumulates the sensor
// trajectory, fuses aligned points into the running model, and periodically
// compacts the model.
package nav

// Defaults for run parameters.
const (
	DefaultCompactEveryNFrames = 10
	DefaultVoxelResolution     = 0.2
	DefaultForegroundRadius    = 2.0
)

// Config holds the CLI-level run parameters the engine consumes.
type Config struct {
	// FrameLimit caps the number of frames processed; 0 means drain the
	// source.
	FrameLimit int
	// SkipFrames discards this many frames before processing begins.
	SkipFrames int
	// CompactEveryNFrames triggers model compaction periodically rather
	// than every step to bound cost. Zero selects the default.
	CompactEveryNFrames int
	// VoxelResolution is the compaction cell edge length. Zero selects the
	// default.
	VoxelResolution float64
	// MaxAlignDistance is the aligner's correspondence radius. Zero keeps
	// the aligner default.
	MaxAlignDistance float64
	// MaxAlignIterations caps the aligner's iteration budget. Zero keeps
	// the aligner default.
	MaxAlignIterations int
	// Strategy names the alignment variant ("icp", "downsample-first",
	// "coarse-seeded").
	Strategy string
	// MaxRange drops frame points farther than this from the sensor; 0
	// disables the filter.
	MaxRange float64
	// RemoveForeground drops points within ForegroundRadius of the sensor,
	// removing the vehicle the scanner is mounted on.
	RemoveForeground bool
	// ForegroundRadius is the removal radius when RemoveForeground is set.
	// Zero selects the default.
	ForegroundRadius float64
	// Preview enables live view observers while the run progresses.
	Preview bool
	// SavePathTemplate is the output path base; the tokens [time] and
	// [source] are substituted at save time.
	SavePathTemplate string
}

func (c Config) withDefaults() Config {
	if c.CompactEveryNFrames <= 0 {
		c.CompactEveryNFrames = DefaultCompactEveryNFrames
	}
	if c.VoxelResolution <= 0 {
		c.VoxelResolution = DefaultVoxelResolution
	}
	if c.ForegroundRadius <= 0 {
		c.ForegroundRadius = DefaultForegroundRadius
	}
	return c
}
