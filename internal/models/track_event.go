package models

// TrackEvent is one redacted region on one frame of a run. TrackID is
// the tracker's stable identity for the region, so one plate can be
// followed across the frames of a run.
type TrackEvent struct {
	ID         int64   `json:"id"`
	RunID      string  `json:"run_id"`
	FrameIndex int     `json:"frame_index"`
	TrackID    uint64  `json:"track_id"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	X2         float64 `json:"x2"`
	Y2         float64 `json:"y2"`
}
