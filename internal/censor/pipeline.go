package censor

import (
	"context"
	"fmt"
	"image"

	"platecensor/internal/logger"
	"platecensor/internal/track"
)

// DefaultConfThreshold is the detector confidence cutoff used when the
// caller does not override it.
const DefaultConfThreshold = 0.15

// DefaultPadding is the number of pixels added on every side of a
// redacted box for full coverage.
const DefaultPadding = 5

// Options are the plain numeric knobs of a run.
type Options struct {
	ConfThreshold float64 // detector confidence cutoff
	Padding       int     // pixels added around each redacted box
	MaxAge        int     // frames a track survives without a detection
	IoUThreshold  float64 // minimum IoU to match detection to track
	SmoothFactor  float64 // EMA weight of the previous box
}

// DefaultOptions returns the documented defaults.
func DefaultOptions() Options {
	return Options{
		ConfThreshold: DefaultConfThreshold,
		Padding:       DefaultPadding,
		MaxAge:        track.DefaultMaxAge,
		IoUThreshold:  track.DefaultIoUThreshold,
		SmoothFactor:  track.DefaultSmoothFactor,
	}
}

// Pipeline processes videos end-to-end: read frame, detect, update the
// tracker, redact, write, report progress. Strictly sequential within
// a run; the tracker's aging and smoothing depend on frame order.
//
// A Pipeline may be reused for several videos one after another (each
// Run owns a fresh tracker), but a single Run must not be shared
// between goroutines.
type Pipeline struct {
	detector Detector
	opts     Options
	log      *logger.Logger

	progress ProgressFunc
	recorder Recorder
}

// New creates a pipeline around a detector. log must not be nil.
func New(detector Detector, opts Options, log *logger.Logger) *Pipeline {
	return &Pipeline{detector: detector, opts: opts, log: log}
}

// OnProgress installs a per-frame progress callback.
func (p *Pipeline) OnProgress(fn ProgressFunc) {
	p.progress = fn
}

// RecordTo installs an optional per-frame redaction recorder.
func (p *Pipeline) RecordTo(r Recorder) {
	p.recorder = r
}

// Run censors one video. The source is opened first; on failure the
// run aborts with ErrSourceOpen before anything else is touched. The
// sink is then created with the source's dimensions and frame rate; on
// failure the source is closed and the run aborts with ErrSinkOpen.
// Both ends are released on every exit path. A partially written
// output file is left in place on failure.
//
// ctx is checked at frame boundaries only; a cancelled run returns
// ctx.Err() after releasing both ends.
func (p *Pipeline) Run(ctx context.Context, open SourceOpener, create SinkFactory) error {
	src, err := open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceOpen, err)
	}
	defer src.Close()

	width, height := src.Size()
	sink, err := create(width, height, src.FPS())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSinkOpen, err)
	}
	defer sink.Close()

	tracker := track.NewTracker(p.opts.MaxAge, p.opts.IoUThreshold, p.opts.SmoothFactor)
	total := src.FrameCount()
	done := 0

	p.log.Info("censoring started: %dx%d, %d frames", width, height, total)

	for {
		if err := ctx.Err(); err != nil {
			p.log.Warning("censoring cancelled after %d frames", done)
			return err
		}

		frame, ok := src.Read()
		if !ok {
			break
		}

		detections, err := p.detector.Detect(frame, p.opts.ConfThreshold)
		if err != nil {
			return fmt.Errorf("%w: frame %d: %v", ErrDetection, done, err)
		}

		covered := tracker.Update(detections)

		fw, fh := frame.Size()
		for _, b := range covered {
			if err := frame.Fill(RedactRect(b, p.opts.Padding, fw, fh)); err != nil {
				return fmt.Errorf("redacting frame %d: %w", done, err)
			}
		}

		if err := sink.Write(frame); err != nil {
			return fmt.Errorf("writing frame %d: %w", done, err)
		}

		done++
		p.record(done, tracker)
		p.notifyProgress(done, total)
	}

	p.log.Info("censoring finished: %d frames, %d live tracks at end", done, tracker.Len())
	return nil
}

// RedactRect converts a track box into the integer rectangle to fill:
// padded by padding pixels on all sides and clamped to
// [0, width] x [0, height]. For any valid box the result satisfies
// 0 <= Min.X <= Max.X <= width and 0 <= Min.Y <= Max.Y <= height.
func RedactRect(b track.Box, padding, width, height int) image.Rectangle {
	x1 := clampInt(int(b.X1)-padding, 0, width)
	y1 := clampInt(int(b.Y1)-padding, 0, height)
	x2 := clampInt(int(b.X2)+padding, 0, width)
	y2 := clampInt(int(b.Y2)+padding, 0, height)
	return image.Rect(x1, y1, x2, y2)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (p *Pipeline) record(frameIndex int, tracker *track.Tracker) {
	if p.recorder == nil {
		return
	}
	if err := p.recorder.RecordFrame(frameIndex, tracker.Tracks()); err != nil {
		p.log.Warning("recording frame %d: %v", frameIndex, err)
	}
}

func (p *Pipeline) notifyProgress(done, total int) {
	if p.progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.log.Warning("progress callback panicked: %v", r)
		}
	}()
	p.progress(done, total)
}
