package models

// Phase is the authoritative event phase. It is never stored: the schema
// keeps the underlying facts (lockedAt, processQueue, finishedAt, match
// existence) and the phase is recomputed from them so the two can never
// diverge.
type Phase string

const (
	EventForming Phase = "FORMING"
	// EventLocked sits between FORMING and QUEUEING: teams are frozen but
	// queue scheduling has not been switched on yet.
	EventLocked      Phase = "LOCKED"
	EventQueueing    Phase = "QUEUEING"
	EventSwiss       Phase = "SWISS"
	EventElimination Phase = "ELIMINATION"
	EventFinished    Phase = "FINISHED"
)

// PhaseFacts carries the match-completion facts that, together with the
// event's own flags, determine the current phase.
type PhaseFacts struct {
	HasSwissMatches       bool
	HasEliminationMatches bool
}

// DerivePhase computes the current phase. Pure; call it with freshly loaded
// state inside the per-event region before validating any transition.
func DerivePhase(e *Event, facts PhaseFacts) Phase {
	switch {
	case e.FinishedAt != nil:
		return EventFinished
	case facts.HasEliminationMatches:
		return EventElimination
	case facts.HasSwissMatches:
		return EventSwiss
	case e.LockedAt != nil && e.ProcessQueue:
		return EventQueueing
	case e.LockedAt != nil:
		return EventLocked
	default:
		return EventForming
	}
}

// After reports whether phase p comes strictly later than q in the forward
// only lifecycle.
func (p Phase) After(q Phase) bool {
	return phaseOrder(p) > phaseOrder(q)
}

func phaseOrder(p Phase) int {
	switch p {
	case EventForming:
		return 0
	case EventLocked:
		return 1
	case EventQueueing:
		return 2
	case EventSwiss:
		return 3
	case EventElimination:
		return 4
	case EventFinished:
		return 5
	}
	return -1
}
