package models

import "time"

// SegmentType distinguishes timed test intervals from leak intervals.
type SegmentType string

const (
	SegmentTest SegmentType = "TEST"
	SegmentLeak SegmentType = "LEAK"
)

// SegmentStatus represents the lifecycle state of a segment.
type SegmentStatus string

const (
	// TEST segments start running and finish passed or leak.
	SegmentStatusRunning SegmentStatus = "running"
	SegmentStatusPassed  SegmentStatus = "passed"
	SegmentStatusLeak    SegmentStatus = "leak"

	// LEAK segments start open. The next test start closes whatever is
	// still open for the serial: an open LEAK, or a TEST abandoned by a
	// reset or crash. Either closes as closed.
	SegmentStatusOpen   SegmentStatus = "open"
	SegmentStatusClosed SegmentStatus = "closed"
)

// Segment is one timed TEST or LEAK interval in a vessel's timeline.
// A segment is created open (EndTime nil) and amended exactly once to closed;
// segments are never deleted or reopened.
type Segment struct {
	ID          string
	Serial      string
	SegmentType SegmentType
	StartTime   time.Time
	EndTime     *time.Time
	DurationSec *int
	Status      SegmentStatus
	Reason      string
	Remark      string

	// Identity snapshot stamped at creation.
	Vessel   VesselIdentity
	Operator OperatorIdentity
	Manpower int

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// Open reports whether the segment has not been closed yet.
func (s *Segment) Open() bool {
	return s.EndTime == nil
}

// VesselHeader is the denormalized per-serial summary record,
// merge-updated on every test start.
type VesselHeader struct {
	Serial        string
	ProjectName   string
	VesselType    VesselType
	LastUpdatedAt time.Time
}
