// Package video implements the censor frame source and sink contracts
// over OpenCV video files.
package video

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"platecensor/internal/censor"
)

// black is the redaction fill color.
var black = color.RGBA{}

// MatFrame adapts a gocv.Mat to censor.Frame. The detector and the
// sink reach the underlying Mat through the Mat accessor.
type MatFrame struct {
	mat *gocv.Mat
}

// NewMatFrame wraps an existing Mat. The caller keeps ownership.
func NewMatFrame(mat *gocv.Mat) *MatFrame {
	return &MatFrame{mat: mat}
}

// Size returns the frame dimensions in pixels.
func (f *MatFrame) Size() (int, int) {
	return f.mat.Cols(), f.mat.Rows()
}

// Fill overwrites r with solid black in place.
func (f *MatFrame) Fill(r image.Rectangle) error {
	if err := gocv.Rectangle(f.mat, r, black, -1); err != nil {
		return fmt.Errorf("failed to fill rectangle: %w", err)
	}
	return nil
}

// Mat returns the wrapped matrix.
func (f *MatFrame) Mat() *gocv.Mat {
	return f.mat
}

// FileSource reads frames from a video file. It owns a single Mat that
// is reused for every Read, so a returned frame is only valid until
// the next Read call.
type FileSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	frame   *MatFrame

	width  int
	height int
	fps    float64
	frames int
}

// OpenSource opens a video file for reading and queries its stream
// properties up front.
func OpenSource(path string) (*FileSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("video %s could not be decoded", path)
	}

	s := &FileSource{
		capture: capture,
		mat:     gocv.NewMat(),
		width:   int(capture.Get(gocv.VideoCaptureFrameWidth)),
		height:  int(capture.Get(gocv.VideoCaptureFrameHeight)),
		fps:     capture.Get(gocv.VideoCaptureFPS),
		frames:  int(capture.Get(gocv.VideoCaptureFrameCount)),
	}
	s.frame = NewMatFrame(&s.mat)
	return s, nil
}

// Read decodes the next frame. Returns false at end of stream.
func (s *FileSource) Read() (censor.Frame, bool) {
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, false
	}
	return s.frame, true
}

// Size returns the stream dimensions in pixels.
func (s *FileSource) Size() (int, int) {
	return s.width, s.height
}

// FPS returns the stream frame rate.
func (s *FileSource) FPS() float64 {
	return s.fps
}

// FrameCount returns the total frame count reported by the container.
func (s *FileSource) FrameCount() int {
	return s.frames
}

// Close releases the capture and the reused frame buffer.
func (s *FileSource) Close() error {
	s.mat.Close()
	return s.capture.Close()
}

// FileSink writes frames to an mp4 video file.
type FileSink struct {
	writer *gocv.VideoWriter
	path   string
}

// CreateSink creates an output video sized and paced to match the
// input stream, using the mp4v codec.
func CreateSink(path string, width, height int, fps float64) (*FileSink, error) {
	writer, err := gocv.VideoWriterFile(path, "mp4v", fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to create output video %s: %w", path, err)
	}
	if !writer.IsOpened() {
		writer.Close()
		return nil, fmt.Errorf("output video %s could not be opened for writing", path)
	}
	return &FileSink{writer: writer, path: path}, nil
}

// Write appends one frame to the output.
func (s *FileSink) Write(f censor.Frame) error {
	mf, ok := f.(*MatFrame)
	if !ok {
		return fmt.Errorf("unsupported frame type %T", f)
	}
	if err := s.writer.Write(*mf.Mat()); err != nil {
		return fmt.Errorf("failed to write frame to %s: %w", s.path, err)
	}
	return nil
}

// Path returns the output file path.
func (s *FileSink) Path() string {
	return s.path
}

// Close releases the writer.
func (s *FileSink) Close() error {
	return s.writer.Close()
}
