// Package track stabilizes noisy per-frame detection boxes into
// temporally persistent tracks so that redaction does not flicker when
// the detector misses a frame.
package track

// Default tracker parameters.
const (
	DefaultMaxAge       = 5   // frames a track survives without a matching detection
	DefaultIoUThreshold = 0.3 // minimum IoU to match a detection to a track
	DefaultSmoothFactor = 0.7 // EMA weight of the previous box (higher = smoother)
)

// Track is a persistent identity for a region believed to contain the
// same object across frames. ID is assigned once and never reused.
// Age counts consecutive frames since the last matching detection.
type Track struct {
	ID  uint64
	Box Box
	Age int
}

// Tracker matches per-frame detections against live tracks, smoothing
// matched boxes with an exponential moving average and carrying
// unmatched tracks for up to maxAge frames before eviction.
//
// Tracks are stored in ascending ID order and iterated in that order
// during matching, which makes the greedy assignment's tie-breaks
// deterministic. A Tracker is not safe for concurrent use; each video
// being processed must own its own instance.
type Tracker struct {
	tracks       []*Track // ascending ID order
	nextID       uint64
	maxAge       int
	iouThreshold float64
	smoothFactor float64
}

// NewTracker creates a tracker with the given parameters.
func NewTracker(maxAge int, iouThreshold, smoothFactor float64) *Tracker {
	return &Tracker{
		maxAge:       maxAge,
		iouThreshold: iouThreshold,
		smoothFactor: smoothFactor,
	}
}

// NewDefaultTracker creates a tracker with the default parameters.
func NewDefaultTracker() *Tracker {
	return NewTracker(DefaultMaxAge, DefaultIoUThreshold, DefaultSmoothFactor)
}

// Update consumes one frame's detections and returns the boxes to
// redact this frame, covering both freshly matched detections and
// tracks persisted purely from memory.
//
// Matching is greedy and order-dependent: detections are processed in
// input order, and each one takes the not-yet-matched track with the
// highest IoU at or above the threshold. A matched track's box becomes
// sf*old + (1-sf)*detection componentwise and its age resets to 0.
// Unmatched detections open new tracks; unmatched tracks age by one
// and are evicted once their age exceeds maxAge (a track at exactly
// maxAge is still emitted). Detections with non-finite or inverted
// coordinates are discarded before matching.
func (t *Tracker) Update(detections []Box) []Box {
	matched := make(map[uint64]bool, len(detections))

	var unmatchedDets []Box
	for _, det := range detections {
		if !det.Valid() {
			continue
		}

		var best *Track
		bestIoU := 0.0
		for _, tr := range t.tracks {
			if matched[tr.ID] {
				continue
			}
			iou := IoU(det, tr.Box)
			if iou >= t.iouThreshold && iou > bestIoU {
				bestIoU = iou
				best = tr
			}
		}

		if best == nil {
			unmatchedDets = append(unmatchedDets, det)
			continue
		}

		sf := t.smoothFactor
		best.Box = Box{
			X1: sf*best.Box.X1 + (1-sf)*det.X1,
			Y1: sf*best.Box.Y1 + (1-sf)*det.Y1,
			X2: sf*best.Box.X2 + (1-sf)*det.X2,
			Y2: sf*best.Box.Y2 + (1-sf)*det.Y2,
		}
		best.Age = 0
		matched[best.ID] = true
	}

	// Age unmatched tracks and drop expired ones in one compacting pass.
	kept := t.tracks[:0]
	for _, tr := range t.tracks {
		if !matched[tr.ID] {
			tr.Age++
			if tr.Age > t.maxAge {
				continue
			}
		}
		kept = append(kept, tr)
	}
	for i := len(kept); i < len(t.tracks); i++ {
		t.tracks[i] = nil
	}
	t.tracks = kept

	// Unmatched detections open new tracks with age 0; they are not
	// subject to aging in the call that created them.
	for _, det := range unmatchedDets {
		t.tracks = append(t.tracks, &Track{ID: t.nextID, Box: det})
		t.nextID++
	}

	boxes := make([]Box, len(t.tracks))
	for i, tr := range t.tracks {
		boxes[i] = tr.Box
	}
	return boxes
}

// Len returns the number of live tracks.
func (t *Tracker) Len() int {
	return len(t.tracks)
}

// Tracks returns the live tracks in ascending ID order. The returned
// slice is a snapshot; the Track values are copies.
func (t *Tracker) Tracks() []Track {
	out := make([]Track, len(t.tracks))
	for i, tr := range t.tracks {
		out[i] = *tr
	}
	return out
}
