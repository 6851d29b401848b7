package services

import "errors"

// Errors shared across services and mapped to HTTP statuses in handlers.
// All of them are scoped to a single event or operation; none is fatal.
var (
	ErrNotFound = errors.New("requested resource not found")

	// ErrInvalidTransition: a lifecycle operation was requested out of
	// order. The caller must re-read the event and retry with correct
	// sequencing.
	ErrInvalidTransition = errors.New("invalid event phase transition")

	// ErrInsufficientParticipants: not enough eligible teams to proceed.
	ErrInsufficientParticipants = errors.New("not enough eligible teams")

	// ErrRoundNotComplete: a round advance was requested while matches of
	// the current round are still outstanding.
	ErrRoundNotComplete = errors.New("current round has unfinished matches")

	// ErrNotYetPlayed: reveal requested on a match that is not finished.
	ErrNotYetPlayed = errors.New("match has not been played yet")

	// ErrBusy: the per-event region stayed contended beyond the configured
	// wait; retry with backoff.
	ErrBusy = errors.New("event is busy, try again")

	// ErrConflictingWrite: a stale read was detected during commit; re-read
	// and retry the whole operation.
	ErrConflictingWrite = errors.New("conflicting concurrent write")

	ErrValidationFailed     = errors.New("validation failed")
	ErrTeamNameRequired     = errors.New("team name is required")
	ErrEventNameRequired    = errors.New("event name is required")
	ErrRegistrationClosed   = errors.New("team registration is closed for this event")
	ErrTeamDeleted          = errors.New("team has withdrawn from the event")
	ErrDrawNotAllowed       = errors.New("draws are not allowed in elimination matches")
	ErrWinnerNotInMatch     = errors.New("winner is not a participant of the match")
	ErrMatchAlreadyFinished = errors.New("match result has already been recorded")
	ErrInvalidCredentials   = errors.New("invalid credentials")
)
