package framesim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"

	"github.com/okian/visage/pkg/logger"
)

const directoryPermission = 0o750

// Run executes a complete simulation: enroll, replay frames answering each
// with ground-truth feedback, then compare observed and reported accuracy.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("framesim")
	stats := &Stats{StartTime: time.Now()}
	sc := cfg.Scenario

	log.Info(ctx, "starting frame simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("identities", len(sc.Identities)),
		logger.Int("framesPerIdentity", sc.FramesPerIdentity),
		logger.Int("dimension", sc.Dimension),
		logger.Float64("noise", sc.Noise),
	)

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	gen := NewGenerator(sc)
	n, err := enrollAll(ctx, client, gen, sc, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("enrollment failed: %w", err)
	}
	stats.Enrolled = n
	log.Info(ctx, "identities enrolled", logger.Int("count", n))

	frames := gen.Frames()
	bar := newReplayBar(len(frames), cfg.Progress)
	for _, f := range frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err := replay(ctx, client, f, stats)
		if bar != nil {
			_ = bar.Add(1)
		}
		if err != nil {
			stats.Failed++
			log.Warn(ctx, "frame failed", logger.String("frame", f.ID), logger.Error(err))
			continue
		}
		if cfg.Verbose {
			log.Debug(ctx, "frame replayed", logger.String("frame", f.ID))
		}
	}
	if bar != nil {
		_ = bar.Finish()
	}

	report, err := client.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("stats retrieval failed: %w", err)
	}
	stats.Observed = stats.accuracy()
	stats.Reported = report.Accuracy
	stats.FeedbackCount = report.TotalFeedback
	stats.Thresholds = report.AdaptiveThresholds

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, stats); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	return stats, nil
}

// newReplayBar returns a progress bar over count frames, or nil when w is nil.
func newReplayBar(count int, w io.Writer) *progressbar.ProgressBar {
	if w == nil {
		return nil
	}
	return progressbar.NewOptions(count,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("Replaying frames"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("frames"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
	)
}

// enrollAll registers every enrolled identity concurrently.
func enrollAll(ctx context.Context, client *Client, gen *Generator, sc Scenario, workers int) (int, error) {
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	count := 0
	for _, id := range sc.Identities {
		if !id.Enrolled {
			continue
		}
		count++
		name, centroid := id.Name, gen.Centroid(id.Name)
		g.Go(func() error {
			return client.Enroll(gctx, name, centroid)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	return count, nil
}

// replay ticks one frame and answers it. A wrong prediction is corrected with
// the ground truth, which enrolls identities the service has not seen.
func replay(ctx context.Context, client *Client, f Frame, stats *Stats) error {
	res, err := client.Tick(ctx, f)
	if err != nil {
		return err
	}
	if res.Result == nil {
		return fmt.Errorf("frame %s: no result", f.ID)
	}
	stats.Frames++
	if res.Result.Predicted == f.Truth {
		stats.Correct++
		stats.Confirmed++
		return client.Confirm(ctx)
	}
	stats.Corrected++
	return client.Correct(ctx, f.Truth)
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var framesPerSecond float64
	if stats.Duration > 0 {
		framesPerSecond = float64(stats.Frames) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.Int("enrolled", stats.Enrolled),
		logger.Int("frames", stats.Frames),
		logger.Int("confirmed", stats.Confirmed),
		logger.Int("corrected", stats.Corrected),
		logger.Int("failed", stats.Failed),
		logger.Float64("observedAccuracy", stats.Observed),
		logger.Float64("reportedAccuracy", stats.Reported),
		logger.Int("reportedFeedback", stats.FeedbackCount),
		logger.Duration("duration", stats.Duration),
		logger.Float64("framesPerSecond", framesPerSecond),
	)
}

func saveReport(path string, stats *Stats) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
