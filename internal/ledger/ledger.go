// Package ledger implements the segment-ledger protocol: how TEST and LEAK
// intervals are opened, amended, and auto-chained against the durable store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/store"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/timer"
)

// DefaultTimeout bounds every ledger-mutating call.
const DefaultTimeout = 12 * time.Second

// Ledger wraps the store with the segment protocol and a fixed per-call
// timeout. There is no automatic retry: a failed call requires a new user
// action.
type Ledger struct {
	store   store.Store
	timeout time.Duration

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// New creates a Ledger over the given store. A non-positive timeout selects
// DefaultTimeout.
func New(s store.Store, timeout time.Duration) *Ledger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Ledger{store: s, timeout: timeout, now: time.Now}
}

// OpenTestSegment closes whatever is still open for the vessel's serial at
// the new test's start time - an open LEAK segment, or a TEST abandoned by an
// earlier session - then creates a new open TEST segment stamped with the
// identity snapshot and merges the vessel header. All writes happen in one
// store transaction. Returns the new segment id and its start time.
func (l *Ledger) OpenTestSegment(ctx context.Context, vessel models.VesselIdentity, operator models.OperatorIdentity) (string, time.Time, error) {
	start := l.now().UTC()

	seg := &models.Segment{
		Serial:      vessel.Serial,
		SegmentType: models.SegmentTest,
		StartTime:   start,
		Status:      models.SegmentStatusRunning,
		Vessel:      vessel,
		Operator:    operator,
		Manpower:    operator.Manpower,
	}
	header := &models.VesselHeader{
		Serial:      vessel.Serial,
		ProjectName: vessel.ProjectName,
		VesselType:  vessel.VesselType,
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	id, err := l.store.OpenTest(ctx, seg, header)
	if err != nil {
		return "", time.Time{}, l.wrap(ctx, "open test segment", err)
	}
	return id, start, nil
}

// CloseTestAsPass amends the open TEST segment to its passed outcome.
// Calling it on an already-closed segment is a caller error, never retried.
func (l *Ledger) CloseTestAsPass(ctx context.Context, segmentID, remark string) (*models.Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	seg, err := l.openTestByID(ctx, segmentID)
	if err != nil {
		return nil, err
	}

	end := l.now().UTC()
	dur := timer.DurationSec(seg.StartTime, end)
	if err := l.store.CloseSegment(ctx, segmentID, end, dur, models.SegmentStatusPassed, remark); err != nil {
		return nil, l.wrap(ctx, "close test segment", err)
	}

	seg.EndTime = &end
	seg.DurationSec = &dur
	seg.Status = models.SegmentStatusPassed
	seg.Remark = remark
	return seg, nil
}

// CloseTestAsLeakAndOpenLeak amends the open TEST segment to its leak outcome
// at endTime (the instant the leak was flagged, before any dialog time), then
// creates a new open LEAK segment carrying the same reason, remark, and
// identity snapshot. Both writes happen in one store transaction; the leak
// segment stays open until the next test start closes it.
func (l *Ledger) CloseTestAsLeakAndOpenLeak(ctx context.Context, segmentID string, endTime time.Time, vessel models.VesselIdentity, operator models.OperatorIdentity, reason, remark string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	seg, err := l.openTestByID(ctx, segmentID)
	if err != nil {
		return "", err
	}
	dur := timer.DurationSec(seg.StartTime, endTime)

	leak := &models.Segment{
		Serial:      vessel.Serial,
		SegmentType: models.SegmentLeak,
		StartTime:   endTime,
		Status:      models.SegmentStatusOpen,
		Reason:      reason,
		Remark:      remark,
		Vessel:      vessel,
		Operator:    operator,
		Manpower:    operator.Manpower,
	}

	leakID, err := l.store.CloseTestOpenLeak(ctx, segmentID, endTime, dur, reason, remark, leak)
	if err != nil {
		return "", l.wrap(ctx, "close test and open leak segment", err)
	}
	return leakID, nil
}

// History returns the serial's segments, most recent start first.
func (l *Ledger) History(ctx context.Context, serial string, limit int) ([]*models.Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	segs, err := l.store.ListSegments(ctx, serial, limit)
	if err != nil {
		return nil, l.wrap(ctx, "list segments", err)
	}
	return segs, nil
}

// Header returns the vessel's denormalized summary record.
func (l *Ledger) Header(ctx context.Context, serial string) (*models.VesselHeader, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	h, err := l.store.GetVesselHeader(ctx, serial)
	if err != nil {
		return nil, l.wrap(ctx, "get vessel header", err)
	}
	return h, nil
}

func (l *Ledger) openTestByID(ctx context.Context, segmentID string) (*models.Segment, error) {
	seg, err := l.store.GetSegment(ctx, segmentID)
	if err != nil {
		return nil, l.wrap(ctx, "get test segment", err)
	}
	if seg.SegmentType != models.SegmentTest {
		return nil, &LedgerError{Op: "get test segment", Err: fmt.Errorf("segment %s is %s, not TEST", segmentID, seg.SegmentType)}
	}
	if !seg.Open() {
		return nil, &LedgerError{Op: "get test segment", Err: fmt.Errorf("segment %s is already closed", segmentID)}
	}
	return seg, nil
}

// wrap maps a store failure to the error taxonomy: deadline expiry becomes
// TimeoutError, everything else LedgerError.
func (l *Ledger) wrap(ctx context.Context, op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &TimeoutError{Op: op, Timeout: l.timeout}
	}
	return &LedgerError{Op: op, Err: err}
}
