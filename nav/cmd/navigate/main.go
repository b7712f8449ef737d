// Command navigate builds a 3D model and driving trajectory from a
// directory of scanner frames, aligning each frame to the previous one.
package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/edaniels/golog"
	"go.viam.com/utils"

	"github.com/roadscan/lidarnav/align"
	"github.com/roadscan/lidarnav/nav"
	"github.com/roadscan/lidarnav/plotobs"
	"github.com/roadscan/lidarnav/pointcloud"
)

var logger = golog.NewDevelopmentLogger("navigate")

func main() {
	utils.ContextualMainQuit(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	FramesDir       string       `flag:"0,required,usage=directory of PCD frames"`
	FrameLimit      int          `flag:"frame-limit,usage=stop after this many frames (0 means all)"`
	SkipFrames      int          `flag:"skip-frames,usage=discard this many frames from the start"`
	DownsampleAfter int          `flag:"downsample-after,default=10,usage=compact the model every N frames"`
	VoxelSize       distanceFlag `flag:"voxel-size,default=0.2,usage=compaction voxel edge length in meters"`
	MaxDistance     distanceFlag `flag:"max-distance,usage=alignment correspondence radius in meters"`
	Iterations      int          `flag:"iterations,usage=alignment iteration budget"`
	Strategy        string       `flag:"strategy,default=icp,usage=alignment strategy (icp|downsample-first|coarse-seeded)"`
	MaxRange        distanceFlag `flag:"max-range,usage=drop frame points farther than this (0 keeps all)"`
	RemoveVehicle   bool         `flag:"remove-vehicle,usage=drop points close to the sensor (the vehicle itself)"`
	Preview         bool         `flag:"preview,usage=log per-step progress while the run executes"`
	SaveTo          string       `flag:"save-to,usage=output path base; [time] and [source] are substituted"`
}

// distanceFlag parses a meter value; ParseFlags has no native float kind.
type distanceFlag float64

func (df *distanceFlag) String() string {
	return strconv.FormatFloat(float64(*df), 'f', -1, 64)
}

func (df *distanceFlag) Set(val string) error {
	if val == "" {
		*df = 0
		return nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return err
	}
	*df = distanceFlag(parsed)
	return nil
}

func (df *distanceFlag) Get() interface{} {
	return float64(*df)
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}

	cfg := nav.Config{
		FrameLimit:          argsParsed.FrameLimit,
		SkipFrames:          argsParsed.SkipFrames,
		CompactEveryNFrames: argsParsed.DownsampleAfter,
		VoxelResolution:     float64(argsParsed.VoxelSize),
		MaxAlignDistance:    float64(argsParsed.MaxDistance),
		MaxAlignIterations:  argsParsed.Iterations,
		Strategy:            argsParsed.Strategy,
		MaxRange:            float64(argsParsed.MaxRange),
		RemoveForeground:    argsParsed.RemoveVehicle,
		Preview:             argsParsed.Preview,
		SavePathTemplate:    argsParsed.SaveTo,
	}

	aligner, err := align.ByName(cfg.Strategy, logger)
	if err != nil {
		return err
	}

	source, err := nav.NewFileSource(argsParsed.FramesDir, nav.FileSourceConfig{
		Skip:             cfg.SkipFrames,
		MaxRange:         cfg.MaxRange,
		RemoveForeground: cfg.RemoveForeground,
		ForegroundRadius: cfg.ForegroundRadius,
	})
	if err != nil {
		return err
	}
	logger.Infow("frame source ready", "dir", argsParsed.FramesDir, "frames", source.Count())

	var saveBase string
	var observers []nav.Observer
	if cfg.Preview {
		observers = append(observers, progressObserver(logger))
	}
	if cfg.SavePathTemplate != "" {
		saveBase = nav.ExpandSavePath(cfg.SavePathTemplate, argsParsed.FramesDir, time.Now())
		observers = append(observers, plotobs.NewMetricsPlotter(saveBase+"_plot.png", logger))
	}

	navigator := nav.NewNavigator(cfg, source, aligner, logger, observers...)
	if err := navigator.Run(ctx); err != nil {
		return err
	}

	if saveBase == "" {
		return nil
	}
	return saveArtifacts(navigator.Model(), navigator.Results(), saveBase, logger)
}

// progressObserver logs one line per completed step.
func progressObserver(logger golog.Logger) nav.Observer {
	return nav.ObserverFuncs{
		OnStep: func(info nav.StepInfo) {
			steps := info.Metrics.Steps()
			logger.Infow("step complete",
				"frame", info.Index,
				"fitness", info.Metrics.Fitnesses[steps-1],
				"model points", info.Model.Size(),
			)
		},
	}
}

func saveArtifacts(model pointcloud.PointCloud, results *nav.Results, base string, logger golog.Logger) error {
	if dir := filepath.Dir(base); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	cloudPath := base + "_cloud.pcd"
	f, err := os.Create(cloudPath)
	if err != nil {
		return err
	}
	if err := pointcloud.WritePCD(model, f, pointcloud.PCDBinary); err != nil {
		utils.UncheckedErrorFunc(f.Close)
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if err := pointcloud.WriteToLASFile(model, base+"_cloud.las"); err != nil {
		return err
	}
	if err := results.Save(base + "_data.json"); err != nil {
		return err
	}
	logger.Infow("artifacts saved", "base", base, "points", model.Size())
	return nil
}
