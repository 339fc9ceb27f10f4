package models

import "time"

// Phase is the wizard phase of the local session.
type Phase string

const (
	PhaseAwaitingOperator Phase = "awaiting_operator"
	PhaseAwaitingVessel   Phase = "awaiting_vessel"
	PhaseReady            Phase = "ready"
	PhaseRunning          Phase = "running"
)

// SessionState is the process-local session context. It is owned exclusively
// by the session coordinator; the recovery store only mirrors it.
type SessionState struct {
	Vessel            *VesselIdentity
	Operator          *OperatorIdentity
	VesselConfirmed   bool
	OperatorConfirmed bool
	Running           bool
	ActiveSegmentID   string
	SessionStart      time.Time
}

// Phase derives the wizard phase from the confirmation and running flags.
func (s *SessionState) Phase() Phase {
	switch {
	case s.Running:
		return PhaseRunning
	case s.OperatorConfirmed && s.VesselConfirmed:
		return PhaseReady
	case s.OperatorConfirmed:
		return PhaseAwaitingVessel
	default:
		return PhaseAwaitingOperator
	}
}
