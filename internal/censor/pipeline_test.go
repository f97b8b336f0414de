package censor

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platecensor/internal/logger"
	"platecensor/internal/track"
)

type stubFrame struct {
	w, h  int
	fills []image.Rectangle
}

func (f *stubFrame) Size() (int, int) { return f.w, f.h }

func (f *stubFrame) Fill(r image.Rectangle) error {
	f.fills = append(f.fills, r)
	return nil
}

type stubSource struct {
	w, h       int
	fps        float64
	frameCount int
	read       int
	frames     []*stubFrame // one per Read, recorded for inspection
	closed     bool
}

func newStubSource(w, h, frames int) *stubSource {
	return &stubSource{w: w, h: h, fps: 30, frameCount: frames}
}

func (s *stubSource) Read() (Frame, bool) {
	if s.read >= s.frameCount {
		return nil, false
	}
	f := &stubFrame{w: s.w, h: s.h}
	s.frames = append(s.frames, f)
	s.read++
	return f, true
}

func (s *stubSource) Size() (int, int) { return s.w, s.h }
func (s *stubSource) FPS() float64     { return s.fps }
func (s *stubSource) FrameCount() int  { return s.frameCount }

func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

type stubSink struct {
	written  int
	closed   bool
	writeErr error
}

func (s *stubSink) Write(Frame) error {
	if s.writeErr != nil {
		return s.writeErr
	}
	s.written++
	return nil
}

func (s *stubSink) Close() error {
	s.closed = true
	return nil
}

// stubDetector returns perFrame[i] on the i-th call, nil past the end.
type stubDetector struct {
	perFrame [][]track.Box
	calls    int
	failAt   int // 1-based call number that errors; 0 disables
}

func (d *stubDetector) Detect(_ Frame, _ float64) ([]track.Box, error) {
	d.calls++
	if d.failAt > 0 && d.calls == d.failAt {
		return nil, errors.New("model exploded")
	}
	if d.calls-1 < len(d.perFrame) {
		return d.perFrame[d.calls-1], nil
	}
	return nil, nil
}

func testPipeline(t *testing.T, det Detector, opts Options) *Pipeline {
	t.Helper()
	log, err := logger.New(t.TempDir())
	require.NoError(t, err)
	return New(det, opts, log)
}

func sourceOpener(s *stubSource) SourceOpener {
	return func() (Source, error) { return s, nil }
}

func sinkFactory(s *stubSink) SinkFactory {
	return func(_, _ int, _ float64) (Sink, error) { return s, nil }
}

func TestRun_RedactionOutlivesDetection(t *testing.T) {
	// One box on frames 1-2, nothing afterwards. With maxAge=5 the
	// persisted track must keep covering through frame 7 and be gone
	// from frame 8 onward.
	det := &stubDetector{perFrame: [][]track.Box{
		{{X1: 100, Y1: 100, X2: 200, Y2: 200}},
		{{X1: 100, Y1: 100, X2: 200, Y2: 200}},
	}}
	src := newStubSource(640, 480, 10)
	sink := &stubSink{}

	opts := DefaultOptions()
	opts.MaxAge = 5
	opts.IoUThreshold = 0.3
	p := testPipeline(t, det, opts)

	err := p.Run(context.Background(), sourceOpener(src), sinkFactory(sink))
	require.NoError(t, err)

	require.Len(t, src.frames, 10)
	for i := 0; i < 7; i++ {
		assert.Len(t, src.frames[i].fills, 1, "frame %d should be redacted", i+1)
	}
	for i := 7; i < 10; i++ {
		assert.Empty(t, src.frames[i].fills, "frame %d should not be redacted", i+1)
	}

	assert.Equal(t, 10, sink.written)
	assert.True(t, src.closed)
	assert.True(t, sink.closed)
}

func TestRun_RedactionPaddedAndClamped(t *testing.T) {
	det := &stubDetector{perFrame: [][]track.Box{
		{{X1: 2, Y1: 2, X2: 638, Y2: 478}},
	}}
	src := newStubSource(640, 480, 1)
	sink := &stubSink{}

	p := testPipeline(t, det, DefaultOptions())
	require.NoError(t, p.Run(context.Background(), sourceOpener(src), sinkFactory(sink)))

	require.Len(t, src.frames[0].fills, 1)
	got := src.frames[0].fills[0]
	assert.Equal(t, image.Rect(0, 0, 640, 480), got, "padding must be clamped to frame bounds")
}

func TestRun_SourceOpenFailureBeforeDetection(t *testing.T) {
	det := &stubDetector{}
	p := testPipeline(t, det, DefaultOptions())

	open := func() (Source, error) { return nil, errors.New("no such file") }
	err := p.Run(context.Background(), open, sinkFactory(&stubSink{}))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceOpen)
	assert.Zero(t, det.calls, "detector must not run when the source cannot be opened")
}

func TestRun_SinkOpenFailureClosesSource(t *testing.T) {
	det := &stubDetector{}
	src := newStubSource(640, 480, 3)
	p := testPipeline(t, det, DefaultOptions())

	create := func(_, _ int, _ float64) (Sink, error) { return nil, errors.New("disk full") }
	err := p.Run(context.Background(), sourceOpener(src), create)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSinkOpen)
	assert.True(t, src.closed, "already-opened source must be released")
	assert.Zero(t, det.calls)
}

func TestRun_DetectionFailureReleasesBothEnds(t *testing.T) {
	det := &stubDetector{failAt: 3}
	src := newStubSource(640, 480, 10)
	sink := &stubSink{}
	p := testPipeline(t, det, DefaultOptions())

	err := p.Run(context.Background(), sourceOpener(src), sinkFactory(sink))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDetection)
	assert.Equal(t, 2, sink.written, "frames before the failure are written")
	assert.True(t, src.closed)
	assert.True(t, sink.closed)
}

func TestRun_ProgressReportedPerFrame(t *testing.T) {
	src := newStubSource(320, 240, 4)
	sink := &stubSink{}
	p := testPipeline(t, &stubDetector{}, DefaultOptions())

	var calls [][2]int
	p.OnProgress(func(done, total int) {
		calls = append(calls, [2]int{done, total})
	})

	require.NoError(t, p.Run(context.Background(), sourceOpener(src), sinkFactory(sink)))

	require.Len(t, calls, 4)
	for i, c := range calls {
		assert.Equal(t, i+1, c[0], "done must increase by one per frame")
		assert.Equal(t, 4, c[1])
	}
}

func TestRun_ProgressPanicDoesNotAbort(t *testing.T) {
	src := newStubSource(320, 240, 5)
	sink := &stubSink{}
	p := testPipeline(t, &stubDetector{}, DefaultOptions())
	p.OnProgress(func(done, total int) {
		panic("progress consumer went away")
	})

	err := p.Run(context.Background(), sourceOpener(src), sinkFactory(sink))

	require.NoError(t, err)
	assert.Equal(t, 5, sink.written)
}

func TestRun_CancelledBetweenFramesReleasesResources(t *testing.T) {
	src := newStubSource(320, 240, 100)
	sink := &stubSink{}
	p := testPipeline(t, &stubDetector{}, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	p.OnProgress(func(done, total int) {
		if done == 3 {
			cancel()
		}
	})

	err := p.Run(ctx, sourceOpener(src), sinkFactory(sink))

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, sink.written, "cancellation is only honored at frame boundaries")
	assert.True(t, src.closed)
	assert.True(t, sink.closed)
}

type stubRecorder struct {
	frames []int
	tracks [][]track.Track
	err    error
}

func (r *stubRecorder) RecordFrame(frameIndex int, tracks []track.Track) error {
	r.frames = append(r.frames, frameIndex)
	r.tracks = append(r.tracks, tracks)
	return r.err
}

func TestRun_RecorderReceivesEveryFrame(t *testing.T) {
	det := &stubDetector{perFrame: [][]track.Box{
		{{X1: 10, Y1: 10, X2: 50, Y2: 50}},
		nil,
		{{X1: 200, Y1: 200, X2: 250, Y2: 250}},
	}}
	src := newStubSource(320, 240, 3)
	rec := &stubRecorder{}

	p := testPipeline(t, det, DefaultOptions())
	p.RecordTo(rec)

	require.NoError(t, p.Run(context.Background(), sourceOpener(src), sinkFactory(&stubSink{})))

	assert.Equal(t, []int{1, 2, 3}, rec.frames)
	require.Len(t, rec.tracks[0], 1)
	assert.Equal(t, uint64(0), rec.tracks[0][0].ID)

	// The distant detection on frame 3 opens a second track; the
	// recorder sees both identities, in ascending ID order.
	require.Len(t, rec.tracks[2], 2)
	assert.Equal(t, uint64(0), rec.tracks[2][0].ID)
	assert.Equal(t, uint64(1), rec.tracks[2][1].ID)
}

func TestRun_RecorderErrorIsNotFatal(t *testing.T) {
	src := newStubSource(320, 240, 3)
	rec := &stubRecorder{err: errors.New("db locked")}
	sink := &stubSink{}

	p := testPipeline(t, &stubDetector{}, DefaultOptions())
	p.RecordTo(rec)

	require.NoError(t, p.Run(context.Background(), sourceOpener(src), sinkFactory(sink)))
	assert.Equal(t, 3, sink.written)
}

func TestRedactRect(t *testing.T) {
	tests := []struct {
		name    string
		box     track.Box
		padding int
		w, h    int
		want    image.Rectangle
	}{
		{"interior", track.Box{X1: 100, Y1: 100, X2: 200, Y2: 200}, 5, 640, 480, image.Rect(95, 95, 205, 205)},
		{"clamped top-left", track.Box{X1: 2, Y1: 3, X2: 50, Y2: 60}, 5, 640, 480, image.Rect(0, 0, 55, 65)},
		{"clamped bottom-right", track.Box{X1: 600, Y1: 450, X2: 700, Y2: 500}, 5, 640, 480, image.Rect(595, 445, 640, 480)},
		{"no padding", track.Box{X1: 10, Y1: 10, X2: 20, Y2: 20}, 0, 640, 480, image.Rect(10, 10, 20, 20)},
		{"fractional coords truncate", track.Box{X1: 10.9, Y1: 10.1, X2: 20.7, Y2: 20.2}, 0, 640, 480, image.Rect(10, 10, 20, 20)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RedactRect(tt.box, tt.padding, tt.w, tt.h)
			assert.Equal(t, tt.want, got)

			assert.GreaterOrEqual(t, got.Min.X, 0)
			assert.GreaterOrEqual(t, got.Min.Y, 0)
			assert.LessOrEqual(t, got.Max.X, tt.w)
			assert.LessOrEqual(t, got.Max.Y, tt.h)
			assert.LessOrEqual(t, got.Min.X, got.Max.X)
			assert.LessOrEqual(t, got.Min.Y, got.Max.Y)
		})
	}
}
