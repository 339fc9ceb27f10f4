package store

import (
	"context"
	"time"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
)

// Store defines the persistence interface for the segment ledger.
//
// OpenTest and CloseTestOpenLeak each cover a two-write protocol step
// (amend one segment, create another) and must apply both writes or neither.
type Store interface {
	// OpenTest closes the most recent open LEAK segment for seg.Serial at
	// seg.StartTime (no-op when none is open), creates the new open TEST
	// segment, and merges the vessel header, all in one transaction.
	// Returns the new segment id.
	OpenTest(ctx context.Context, seg *models.Segment, header *models.VesselHeader) (string, error)

	// CloseTestOpenLeak amends the open TEST segment to its leak outcome and
	// creates the new open LEAK segment in one transaction.
	// Returns the leak segment id.
	CloseTestOpenLeak(ctx context.Context, testID string, end time.Time, durationSec int, reason, remark string, leak *models.Segment) (string, error)

	// CloseSegment amends an open segment exactly once: end time, duration,
	// final status, remark. Fails if the segment is missing or already closed.
	CloseSegment(ctx context.Context, id string, end time.Time, durationSec int, status models.SegmentStatus, remark string) error

	GetSegment(ctx context.Context, id string) (*models.Segment, error)

	// FindOpenSegment returns the most recently started open segment of the
	// given type for a serial, or nil when none exists.
	FindOpenSegment(ctx context.Context, serial string, segType models.SegmentType) (*models.Segment, error)

	ListSegments(ctx context.Context, serial string, limit int) ([]*models.Segment, error)

	GetVesselHeader(ctx context.Context, serial string) (*models.VesselHeader, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
