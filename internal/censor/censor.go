// Package censor drives a video through detection, temporal tracking
// and redaction: every region the tracker considers live is blacked
// out on the frame before it is written to the output.
//
// The detection model, the frame source/sink and progress reporting
// are collaborators supplied by the caller; the package only consumes
// their interfaces.
package censor

import (
	"errors"
	"image"

	"platecensor/internal/track"
)

// Error kinds surfaced by Pipeline.Run. Callers match them with
// errors.Is; the wrapped message carries the underlying cause.
var (
	ErrSourceOpen = errors.New("cannot open input video")
	ErrSinkOpen   = errors.New("cannot create output video")
	ErrDetection  = errors.New("detection failed")
)

// Frame is one decoded raster of video. Fill overwrites the given
// rectangle with solid black in place. A Frame returned by a Source is
// only valid until the next Read call.
type Frame interface {
	Size() (width, height int)
	Fill(r image.Rectangle) error
}

// Source yields a finite sequence of frames plus upfront stream
// properties. Read returns false at end of stream.
type Source interface {
	Read() (Frame, bool)
	Size() (width, height int)
	FPS() float64
	FrameCount() int
	Close() error
}

// Sink accepts frames in the order written, preserving the dimensions
// and frame rate it was created with.
type Sink interface {
	Write(Frame) error
	Close() error
}

// Detector returns zero or more boxes above confThreshold for one
// frame. The ordering of the returned boxes is unspecified. Invoked
// synchronously; it may parallelize internally.
type Detector interface {
	Detect(f Frame, confThreshold float64) ([]track.Box, error)
}

// SourceOpener opens the input of a run. Used so the pipeline owns the
// open/close lifecycle of both ends.
type SourceOpener func() (Source, error)

// SinkFactory creates the output of a run, sized to match the input.
type SinkFactory func(width, height int, fps float64) (Sink, error)

// ProgressFunc is invoked after every processed frame with the number
// of frames done so far and the total reported by the source, in
// increasing order of done. A panic inside the callback is recovered
// and logged; it never aborts the run.
type ProgressFunc func(done, total int)

// Recorder receives the per-frame redaction report: the live tracks,
// with their identities, after the frame's update. Errors are logged
// and ignored: recording is a side channel, not a correctness
// dependency.
type Recorder interface {
	RecordFrame(frameIndex int, tracks []track.Track) error
}
