package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/adrift/pkg/adrift"
	"github.com/himanishpuri/adrift/pkg/adrift/media"
	"github.com/himanishpuri/adrift/pkg/logger"
	"github.com/himanishpuri/adrift/pkg/models"
	"github.com/himanishpuri/adrift/pkg/utils"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var outDir string
	var format string
	var noExtract bool

	cmd := &cobra.Command{
		Use:   "scan <input...>",
		Short: "Detect, fingerprint and extract commercials and station IDs",
		Long: "Scan video files, or directories of video files, for commercials and station IDs.\n" +
			"Each segment is fingerprinted and matched against the database so repeats are reported as duplicates.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("format") {
				cfg.Output.Format = format
			}
			outFormat, err := cfg.OutputFormat()
			if err != nil {
				return err
			}
			if outDir == "" {
				outDir = cfg.Paths.OutputDir
			}
			extract := cfg.Output.Extract && !noExtract

			videos, err := utils.CollectVideos(args)
			if err != nil {
				return err
			}
			if len(videos) == 0 {
				return errors.New("no video files found in the given inputs")
			}

			progress := newProgressObserver(cmd.ErrOrStderr())
			svc, err := ctx.newService(progress)
			if err != nil {
				return err
			}
			defer svc.Close()

			prober := media.New(media.Config{
				FFmpegPath:  cfg.FFmpeg.FFmpegPath,
				FFprobePath: cfg.FFmpeg.FFprobePath,
				TempDir:     cfg.Paths.TempDir,
			})

			run := scanRun{
				svc:      svc,
				prober:   prober,
				progress: progress,
				out:      cmd.OutOrStdout(),
				errOut:   cmd.ErrOrStderr(),
				outDir:   outDir,
				format:   outFormat,
				extract:  extract,
			}
			return run.all(cmd.Context(), videos)
		},
	}

	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Directory for extracted segments (defaults to paths.output_dir)")
	cmd.Flags().StringVarP(&format, "format", "f", "same", "Output container: same, mp4, webm, mkv, mov")
	cmd.Flags().BoolVar(&noExtract, "no-extract", false, "Only detect and fingerprint; do not write segment files")
	return cmd
}

type scanRun struct {
	svc      adrift.Service
	prober   *media.FFmpeg
	progress *progressObserver
	out      io.Writer
	errOut   io.Writer
	outDir   string
	format   media.OutputFormat
	extract  bool
}

// all processes each video in turn. Per-file failures are reported and
// skipped; store and compatibility failures stop the run.
func (r *scanRun) all(ctx context.Context, videos []string) error {
	log := logger.GetLogger()
	failed := 0
	for i, video := range videos {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "[%d/%d] %s\n", i+1, len(videos), video)

		err := r.one(ctx, video)
		if err == nil {
			continue
		}
		if adrift.IsFatalForRun(err) || errors.Is(err, context.Canceled) {
			return err
		}
		failed++
		log.Errorf("Failed to scan %s: %v", video, err)
		fmt.Fprintf(r.errOut, "  failed: %v\n", err)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d file(s) failed", failed, len(videos))
	}
	return nil
}

func (r *scanRun) one(ctx context.Context, video string) error {
	r.progress.start(video, r.duration(ctx, video))
	res, err := r.svc.ProcessVideo(ctx, video)
	r.progress.finish()
	if err != nil {
		return err
	}

	printResult(r.out, res)

	if !r.extract || len(res.Segments) == 0 {
		return nil
	}
	paths, err := r.svc.ExtractSegments(ctx, video, r.outDir, r.format, res.Segments)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "  extracted %d file(s) to %s\n", len(paths), r.outDir)
	return nil
}

func (r *scanRun) duration(ctx context.Context, video string) time.Duration {
	meta, err := r.prober.Probe(ctx, video)
	if err != nil {
		logger.Debugf("Probe failed for %s: %v", filepath.Base(video), err)
		return 0
	}
	return time.Duration(meta.DurationSec * float64(time.Second))
}

func printResult(w io.Writer, res *models.VideoResult) {
	if len(res.Segments) == 0 {
		fmt.Fprintf(w, "  no segments found (%d black intervals, %d scene changes)\n",
			len(res.Analysis.BlackFrames), len(res.Analysis.SceneChanges))
		printFailures(w, res.Failed)
		return
	}

	rows := make([][]string, 0, len(res.Segments))
	var commercials, stationIDs, duplicates int
	for i, seg := range res.Segments {
		switch seg.Type {
		case models.SegmentCommercial:
			commercials++
		case models.SegmentStationID:
			stationIDs++
		}
		dup := "-"
		if seg.IsDuplicate() {
			duplicates++
			dup = "#" + strconv.FormatInt(*seg.DuplicateOf, 10)
		}
		label := typeLabel(seg.Type)
		if seg.Reclassified() {
			label += " (detected " + typeLabel(seg.DetectedType) + ")"
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			label,
			formatTimestamp(seg.StartTime),
			formatTimestamp(seg.EndTime),
			formatSeconds(seg.Duration),
			dup,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"#", "Type", "Start", "End", "Duration", "Duplicate of"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(w, "  %d commercial(s), %d station ID(s), %d duplicate(s)\n", commercials, stationIDs, duplicates)
	printFailures(w, res.Failed)
}

func printFailures(w io.Writer, failures []models.SegmentFailure) {
	for _, f := range failures {
		fmt.Fprintf(w, "  skipped %s-%s: %s\n", formatTimestamp(f.StartTime), formatTimestamp(f.EndTime), f.Err)
	}
}
