// Package session implements the test-session state machine: wizard
// progression, optimistic start with rollback, pass/leak outcomes with
// cancellable prompts, and resume after an interrupted process.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/identity"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/ledger"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/models"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/recovery"
	"github.com/lover0sie/PneumaticTimeTracker-V2/internal/timer"
)

// GuardError reports a command fired while its guard is false. Commands are
// expected to be gated before dispatch; a GuardError reaching a user is a
// programming defect, not a user error.
type GuardError struct {
	Command string
	Phase   models.Phase
}

func (e *GuardError) Error() string {
	return fmt.Sprintf("command %q not allowed in phase %q", e.Command, e.Phase)
}

// LeakReasons are the selectable causes for a leak outcome. Others requires
// a remark.
var LeakReasons = []string{"O-ring", "Weld seam", "Fitting", "Gauge connection", "Others"}

// ValidLeakReason reports whether reason is one of LeakReasons.
func ValidLeakReason(reason string) bool {
	for _, r := range LeakReasons {
		if r == reason {
			return true
		}
	}
	return false
}

// Prompter collects the interactive inputs for Pass and Leak. ok=false means
// the user cancelled, which is a first-class transition back to RUNNING.
type Prompter interface {
	PassRemark() (remark string, ok bool, err error)
	LeakDetails() (reason, remark string, ok bool, err error)
}

// Coordinator owns the single active SessionState and is its only mutation
// surface. Every committed transition is mirrored to the recovery store.
type Coordinator struct {
	state models.SessionState
	watch *timer.Stopwatch
	led   *ledger.Ledger
	snaps *recovery.FileStore

	// now is the clock source, replaceable in tests.
	now func() time.Time
}

// New builds a coordinator, restoring state from the recovery store. When the
// stored snapshot says a test is running and every required field is present,
// the session re-enters RUNNING with the stopwatch on the stored reference
// instant; the ledger is not re-queried. Otherwise the wizard resumes at the
// earliest unmet phase.
func New(led *ledger.Ledger, snaps *recovery.FileStore) (*Coordinator, error) {
	c := &Coordinator{
		watch: timer.New(),
		led:   led,
		snaps: snaps,
		now:   time.Now,
	}

	snap, err := snaps.Load()
	if err != nil {
		return nil, fmt.Errorf("load session snapshot: %w", err)
	}

	c.state.Vessel = snap.Vessel
	c.state.Operator = snap.Operator
	c.state.OperatorConfirmed = snap.OperatorConfirmed && snap.Operator != nil
	c.state.VesselConfirmed = snap.VesselConfirmed && snap.Vessel != nil

	if snap.CanResume() {
		c.state.Running = true
		c.state.ActiveSegmentID = snap.SegmentID
		// CanResume already validated the stored start time.
		start, _ := time.Parse(time.RFC3339, snap.StartISO)
		c.state.SessionStart = start
		c.watch.BeginAt(snap.StartInstant())
	}
	return c, nil
}

// State returns a copy of the session state.
func (c *Coordinator) State() models.SessionState {
	return c.state
}

// Phase returns the current wizard phase.
func (c *Coordinator) Phase() models.Phase {
	return c.state.Phase()
}

// Stopwatch exposes the display stopwatch for live rendering.
func (c *Coordinator) Stopwatch() *timer.Stopwatch {
	return c.watch
}

// Elapsed returns the running test's elapsed whole seconds.
func (c *Coordinator) Elapsed() int {
	return c.watch.Elapsed()
}

// Guard predicates, mirrored by the command layer to gate input.

func (c *Coordinator) CanConfirmOperator() bool { return !c.state.OperatorConfirmed }

func (c *Coordinator) CanConfirmVessel() bool {
	return c.state.OperatorConfirmed && !c.state.VesselConfirmed
}

func (c *Coordinator) CanStart() bool {
	return c.state.OperatorConfirmed && c.state.VesselConfirmed && !c.state.Running
}

func (c *Coordinator) CanPass() bool { return c.state.Running && c.state.ActiveSegmentID != "" }

func (c *Coordinator) CanLeak() bool { return c.CanPass() }

// ConfirmOperator records the operator identity with validated manpower and
// advances the wizard. Reversible only by Reset.
func (c *Coordinator) ConfirmOperator(op models.OperatorIdentity, manpower int) error {
	if !c.CanConfirmOperator() {
		return &GuardError{Command: "confirm operator", Phase: c.Phase()}
	}
	if manpower < 1 {
		return &identity.ValidationError{Field: "manpower", Msg: "must be provided before confirming the operator"}
	}

	op.Manpower = manpower
	c.state.Operator = &op
	c.state.OperatorConfirmed = true
	return c.persist()
}

// ConfirmVessel records the vessel identity and advances the wizard.
// Requires prior operator confirmation.
func (c *Coordinator) ConfirmVessel(v models.VesselIdentity) error {
	if !c.CanConfirmVessel() {
		return &GuardError{Command: "confirm vessel", Phase: c.Phase()}
	}

	c.state.Vessel = &v
	c.state.VesselConfirmed = true
	return c.persist()
}

// Start begins a test: the stopwatch starts immediately, then the ledger
// opens the TEST segment (closing any open LEAK for this serial). On ledger
// failure everything local rolls back so the session is exactly as before.
func (c *Coordinator) Start(ctx context.Context) (string, error) {
	if !c.CanStart() {
		return "", &GuardError{Command: "start", Phase: c.Phase()}
	}

	// Optimistic: the visible stopwatch must not wait on the network.
	c.watch.Begin()
	c.state.Running = true

	id, start, err := c.led.OpenTestSegment(ctx, *c.state.Vessel, *c.state.Operator)
	if err != nil {
		c.watch.Clear()
		c.state.Running = false
		c.state.ActiveSegmentID = ""
		return "", err
	}

	c.state.ActiveSegmentID = id
	c.state.SessionStart = start
	if perr := c.persist(); perr != nil {
		return id, perr
	}
	return id, nil
}

// Pass closes the running test as passed. The prompt may be cancelled, which
// resumes the stopwatch from its original reference instant. On success the
// whole local session is cleared; on ledger failure the running state is
// left intact for a manual retry.
func (c *Coordinator) Pass(ctx context.Context, p Prompter) (*models.Segment, error) {
	if !c.CanPass() {
		return nil, &GuardError{Command: "pass", Phase: c.Phase()}
	}

	// Pause only the display refresh; the reference instant is untouched so
	// a cancel resumes, not resets.
	c.watch.Halt()

	remark, ok, err := p.PassRemark()
	if err != nil {
		c.watch.Resume()
		return nil, fmt.Errorf("read remark: %w", err)
	}
	if !ok {
		c.watch.Resume()
		return nil, nil // cancelled, still running
	}

	seg, err := c.led.CloseTestAsPass(ctx, c.state.ActiveSegmentID, remark)
	if err != nil {
		c.watch.Resume()
		return nil, err
	}

	if err := c.clearSession(); err != nil {
		return seg, err
	}
	return seg, nil
}

// Leak closes the running test as leaked and opens a LEAK segment that the
// next Start will close. The test's end instant is the moment Leak was
// triggered; time spent in the reason dialog belongs to the leak interval.
// Returns the new leak segment id, or "" when the prompt was cancelled.
func (c *Coordinator) Leak(ctx context.Context, p Prompter) (string, error) {
	if !c.CanLeak() {
		return "", &GuardError{Command: "leak", Phase: c.Phase()}
	}

	flagged := c.now().UTC()
	c.watch.Halt()

	reason, remark, ok, err := p.LeakDetails()
	if err != nil {
		c.watch.Resume()
		return "", fmt.Errorf("read leak details: %w", err)
	}
	if !ok {
		c.watch.Resume()
		return "", nil // cancelled, still running
	}
	if !ValidLeakReason(reason) {
		c.watch.Resume()
		return "", &identity.ValidationError{Field: "leak reason", Msg: fmt.Sprintf("%q is not a known reason", reason)}
	}
	if reason == "Others" && remark == "" {
		c.watch.Resume()
		return "", &identity.ValidationError{Field: "remark", Msg: `required when reason is "Others"`}
	}

	leakID, err := c.led.CloseTestAsLeakAndOpenLeak(ctx, c.state.ActiveSegmentID, flagged, *c.state.Vessel, *c.state.Operator, reason, remark)
	if err != nil {
		c.watch.Resume()
		return "", err
	}

	// The open LEAK segment lives on in the ledger; the local session clears
	// just like Pass.
	if err := c.clearSession(); err != nil {
		return leakID, err
	}
	return leakID, nil
}

// Reset discards the local session and its snapshot. The ledger is never
// touched: an open LEAK segment stays open for the next session's Start.
func (c *Coordinator) Reset() error {
	return c.clearSession()
}

func (c *Coordinator) clearSession() error {
	c.state = models.SessionState{}
	c.watch.Halt()
	c.watch.Clear()
	return c.snaps.Clear()
}

// persist mirrors the committed state to the recovery store.
func (c *Coordinator) persist() error {
	snap := &recovery.Snapshot{
		Running:           c.state.Running,
		SegmentID:         c.state.ActiveSegmentID,
		Vessel:            c.state.Vessel,
		Operator:          c.state.Operator,
		VesselConfirmed:   c.state.VesselConfirmed,
		OperatorConfirmed: c.state.OperatorConfirmed,
	}
	if c.state.Operator != nil {
		snap.Manpower = c.state.Operator.Manpower
	}
	if c.state.Vessel != nil {
		snap.Serial = c.state.Vessel.Serial
	}
	if c.state.Running {
		snap.StartISO = c.state.SessionStart.Format(time.RFC3339)
		snap.StartEpochMS = c.watch.Instant().UnixMilli()
	}

	if err := c.snaps.Save(snap); err != nil {
		return fmt.Errorf("persist session state: %w", err)
	}
	return nil
}
