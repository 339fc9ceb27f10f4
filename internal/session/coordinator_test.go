package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/identity"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/ledger"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/recovery"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/store"
)

type fixture struct {
	store *store.SQLiteStore
	led   *ledger.Ledger
	snaps *recovery.FileStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	s, err := store.NewSQLiteStore(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })

	return &fixture{
		store: s,
		led:   ledger.New(s, 0),
		snaps: recovery.NewFileStore(filepath.Join(dir, "session.yaml")),
	}
}

func (f *fixture) coordinator(t *testing.T) *Coordinator {
	t.Helper()
	c, err := New(f.led, f.snaps)
	require.NoError(t, err)
	return c
}

// confirmBoth walks the wizard with valid sample payloads.
func confirmBoth(t *testing.T, c *Coordinator, serial string) {
	t.Helper()
	op, err := identity.ParseOperator("EMP;E100;Jane_Doe;StationA")
	require.NoError(t, err)
	require.NoError(t, c.ConfirmOperator(op, 3))

	v, err := identity.ParseVessel("V1;ProjectX;" + serial + ";EVAPORATOR")
	require.NoError(t, err)
	require.NoError(t, c.ConfirmVessel(v))
}

type fakePrompter struct {
	remark     string
	reason     string
	leakRemark string
	cancel     bool
	err        error
}

func (p *fakePrompter) PassRemark() (string, bool, error) {
	return p.remark, !p.cancel, p.err
}

func (p *fakePrompter) LeakDetails() (string, string, bool, error) {
	return p.reason, p.leakRemark, !p.cancel, p.err
}

func TestWizardOrder(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)

	assert.Equal(t, models.PhaseAwaitingOperator, c.Phase())

	// Vessel before operator is guarded.
	v, err := identity.ParseVessel("V1;ProjectX;SN-001;EVAPORATOR")
	require.NoError(t, err)
	err = c.ConfirmVessel(v)
	var gerr *GuardError
	require.ErrorAs(t, err, &gerr)

	// Start before any confirmation is guarded.
	_, err = c.Start(context.Background())
	require.ErrorAs(t, err, &gerr)

	// Operator without manpower is a validation error, not a transition.
	op, err := identity.ParseOperator("EMP;E100;Jane_Doe;StationA")
	require.NoError(t, err)
	err = c.ConfirmOperator(op, 0)
	var verr *identity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.PhaseAwaitingOperator, c.Phase())

	require.NoError(t, c.ConfirmOperator(op, 3))
	assert.Equal(t, models.PhaseAwaitingVessel, c.Phase())

	// Confirming the operator twice is guarded.
	err = c.ConfirmOperator(op, 3)
	require.ErrorAs(t, err, &gerr)

	require.NoError(t, c.ConfirmVessel(v))
	assert.Equal(t, models.PhaseReady, c.Phase())
	assert.True(t, c.CanStart())
	assert.False(t, c.CanPass())
}

func TestStartThenPass(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)
	ctx := context.Background()
	confirmBoth(t, c, "SN-001")

	id, err := c.Start(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, models.PhaseRunning, c.Phase())

	seg, err := f.store.GetSegment(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.SegmentTest, seg.SegmentType)
	assert.True(t, seg.Open())
	assert.Equal(t, "SN-001", seg.Serial)
	assert.Equal(t, 3, seg.Manpower)

	// The committed run state is mirrored for recovery.
	snap, err := f.snaps.Load()
	require.NoError(t, err)
	assert.True(t, snap.CanResume())
	assert.Equal(t, id, snap.SegmentID)

	closed, err := c.Pass(ctx, &fakePrompter{remark: "ok"})
	require.NoError(t, err)
	require.NotNil(t, closed)
	assert.Equal(t, models.SegmentStatusPassed, closed.Status)
	assert.Equal(t, "ok", closed.Remark)
	require.NotNil(t, closed.DurationSec)
	assert.Equal(t, timerDuration(closed), *closed.DurationSec)

	// The local session clears entirely.
	assert.Equal(t, models.PhaseAwaitingOperator, c.Phase())
	snap, err = f.snaps.Load()
	require.NoError(t, err)
	assert.False(t, snap.CanResume())
	assert.False(t, snap.OperatorConfirmed)
}

func timerDuration(seg *models.Segment) int {
	d := seg.EndTime.Sub(seg.StartTime)
	return int(d.Round(time.Second) / time.Second)
}

func TestPassCancelKeepsRunning(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)
	ctx := context.Background()
	confirmBoth(t, c, "SN-001")

	id, err := c.Start(ctx)
	require.NoError(t, err)
	startInstant := c.Stopwatch().Instant()

	closed, err := c.Pass(ctx, &fakePrompter{cancel: true})
	require.NoError(t, err)
	assert.Nil(t, closed)

	// Still running from the original reference instant, ledger untouched.
	assert.True(t, c.State().Running)
	assert.Equal(t, startInstant, c.Stopwatch().Instant())
	seg, err := f.store.GetSegment(ctx, id)
	require.NoError(t, err)
	assert.True(t, seg.Open())
}

func TestLeakCancelKeepsRunning(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)
	ctx := context.Background()
	confirmBoth(t, c, "SN-002")

	id, err := c.Start(ctx)
	require.NoError(t, err)
	startInstant := c.Stopwatch().Instant()

	leakID, err := c.Leak(ctx, &fakePrompter{cancel: true})
	require.NoError(t, err)
	assert.Empty(t, leakID)
	assert.True(t, c.State().Running)
	assert.Equal(t, startInstant, c.Stopwatch().Instant())

	seg, err := f.store.GetSegment(ctx, id)
	require.NoError(t, err)
	assert.True(t, seg.Open())
}

func TestLeakValidation(t *testing.T) {
	f := newFixture(t)
	c := f.coordinator(t)
	ctx := context.Background()
	confirmBoth(t, c, "SN-002")

	_, err := c.Start(ctx)
	require.NoError(t, err)

	// Others without remark is rejected; the session stays running.
	_, err = c.Leak(ctx, &fakePrompter{reason: "Others"})
	var verr *identity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.True(t, c.State().Running)

	// Unknown reasons are rejected too.
	_, err = c.Leak(ctx, &fakePrompter{reason: "Gremlins"})
	require.ErrorAs(t, err, &verr)
	assert.True(t, c.State().Running)
}

func TestLeakChainAcrossSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.coordinator(t)
	confirmBoth(t, c, "SN-002")
	testID, err := c.Start(ctx)
	require.NoError(t, err)

	leakID, err := c.Leak(ctx, &fakePrompter{reason: "O-ring"})
	require.NoError(t, err)
	require.NotEmpty(t, leakID)

	// The TEST closed as leak, the LEAK segment stays open, and the local
	// session cleared.
	closedTest, err := f.store.GetSegment(ctx, testID)
	require.NoError(t, err)
	assert.Equal(t, models.SegmentStatusLeak, closedTest.Status)
	assert.Equal(t, "O-ring", closedTest.Reason)

	openLeak, err := f.store.GetSegment(ctx, leakID)
	require.NoError(t, err)
	assert.True(t, openLeak.Open())
	assert.Equal(t, models.PhaseAwaitingOperator, c.Phase())

	// A fresh session's Start closes the leak automatically.
	c2 := f.coordinator(t)
	confirmBoth(t, c2, "SN-002")
	_, err = c2.Start(ctx)
	require.NoError(t, err)

	closedLeak, err := f.store.GetSegment(ctx, leakID)
	require.NoError(t, err)
	assert.False(t, closedLeak.Open())
	require.NotNil(t, closedLeak.DurationSec)
	assert.Equal(t, timerDuration(closedLeak), *closedLeak.DurationSec)
}

func TestStartAfterResetSupersedesAbandonedTest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.coordinator(t)
	confirmBoth(t, c, "SN-003")
	abandonedID, err := c.Start(ctx)
	require.NoError(t, err)

	// Reset discards the session but leaves the TEST open in the ledger.
	require.NoError(t, c.Reset())
	abandoned, err := f.store.GetSegment(ctx, abandonedID)
	require.NoError(t, err)
	assert.True(t, abandoned.Open())

	// The next start on the serial closes it; one open TEST remains.
	c2 := f.coordinator(t)
	confirmBoth(t, c2, "SN-003")
	newID, err := c2.Start(ctx)
	require.NoError(t, err)

	abandoned, err = f.store.GetSegment(ctx, abandonedID)
	require.NoError(t, err)
	assert.False(t, abandoned.Open())
	assert.Equal(t, models.SegmentStatusClosed, abandoned.Status)

	open, err := f.store.FindOpenSegment(ctx, "SN-003", models.SegmentTest)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, newID, open.ID)
}

// failingStore rejects every ledger mutation.
type failingStore struct{}

var errStoreDown = errors.New("store unavailable")

func (failingStore) OpenTest(context.Context, *models.Segment, *models.VesselHeader) (string, error) {
	return "", errStoreDown
}

func (failingStore) CloseTestOpenLeak(context.Context, string, time.Time, int, string, string, *models.Segment) (string, error) {
	return "", errStoreDown
}

func (failingStore) CloseSegment(context.Context, string, time.Time, int, models.SegmentStatus, string) error {
	return errStoreDown
}

func (failingStore) GetSegment(context.Context, string) (*models.Segment, error) {
	return nil, errStoreDown
}

func (failingStore) FindOpenSegment(context.Context, string, models.SegmentType) (*models.Segment, error) {
	return nil, errStoreDown
}

func (failingStore) ListSegments(context.Context, string, int) ([]*models.Segment, error) {
	return nil, errStoreDown
}

func (failingStore) GetVesselHeader(context.Context, string) (*models.VesselHeader, error) {
	return nil, errStoreDown
}

func (failingStore) Migrate(context.Context) error { return nil }
func (failingStore) Close() error                  { return nil }

func TestStartRollbackOnLedgerFailure(t *testing.T) {
	dir := t.TempDir()
	snaps := recovery.NewFileStore(filepath.Join(dir, "session.yaml"))
	led := ledger.New(failingStore{}, 0)

	c, err := New(led, snaps)
	require.NoError(t, err)
	confirmBoth(t, c, "SN-001")

	_, err = c.Start(context.Background())
	require.Error(t, err)
	var lerr *ledger.LedgerError
	assert.ErrorAs(t, err, &lerr)

	// Everything local rolled back: not running, stopwatch discarded,
	// snapshot still shows the pre-start wizard state.
	assert.False(t, c.State().Running)
	assert.Equal(t, models.PhaseReady, c.Phase())
	assert.True(t, c.Stopwatch().Instant().IsZero())

	snap, err := snaps.Load()
	require.NoError(t, err)
	assert.False(t, snap.Running)
	assert.True(t, snap.OperatorConfirmed)
	assert.True(t, snap.VesselConfirmed)
}

func TestResumeAfterRestart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	c := f.coordinator(t)
	confirmBoth(t, c, "SN-001")
	id, err := c.Start(ctx)
	require.NoError(t, err)
	startInstant := c.Stopwatch().Instant()

	// A new process trusts the local mirror and re-enters RUNNING without
	// re-querying the ledger.
	c2 := f.coordinator(t)
	assert.Equal(t, models.PhaseRunning, c2.Phase())
	assert.Equal(t, id, c2.State().ActiveSegmentID)
	assert.Equal(t, startInstant.UnixMilli(), c2.Stopwatch().Instant().UnixMilli())
	assert.True(t, c2.CanPass())

	// The resumed session can close the segment normally.
	closed, err := c2.Pass(ctx, &fakePrompter{})
	require.NoError(t, err)
	assert.Equal(t, models.SegmentStatusPassed, closed.Status)
}

func TestResume_CorruptSnapshotFallsBack(t *testing.T) {
	f := newFixture(t)

	c := f.coordinator(t)
	confirmBoth(t, c, "SN-001")
	_, err := c.Start(context.Background())
	require.NoError(t, err)

	// Corrupt the mirror: running flag set but the start epoch is gone.
	snap, err := f.snaps.Load()
	require.NoError(t, err)
	snap.StartEpochMS = 0
	require.NoError(t, f.snaps.Save(snap))

	c2 := f.coordinator(t)
	assert.False(t, c2.State().Running)
	// Identities survived, so the wizard resumes at READY, not a crash.
	assert.Equal(t, models.PhaseReady, c2.Phase())
	assert.False(t, c2.CanPass())
	assert.True(t, c2.CanStart())
}

func TestResume_MalformedStartTimeFallsBack(t *testing.T) {
	f := newFixture(t)

	c := f.coordinator(t)
	confirmBoth(t, c, "SN-001")
	_, err := c.Start(context.Background())
	require.NoError(t, err)

	// Running flag set but the stored start time is garbage.
	snap, err := f.snaps.Load()
	require.NoError(t, err)
	snap.StartISO = "yesterday-ish"
	require.NoError(t, f.snaps.Save(snap))

	c2 := f.coordinator(t)
	assert.False(t, c2.State().Running)
	assert.Equal(t, models.PhaseReady, c2.Phase())
	assert.True(t, c2.State().SessionStart.IsZero())
	assert.True(t, c2.CanStart())
}
