package handlers

import (
	"net/http"

	"github.com/Dosada05/arena-engine/services"
	"github.com/google/uuid"
)

type EventHandler struct {
	lifecycleService services.LifecycleService
}

func NewEventHandler(ls services.LifecycleService) *EventHandler {
	return &EventHandler{lifecycleService: ls}
}

// CreateHandler handles POST /events
func (h *EventHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		SwissRounds int    `json:"swiss_rounds"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.lifecycleService.CreateEvent(r.Context(), input.Name, input.Description, input.SwissRounds)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler handles GET /events/{eventID}
func (h *EventHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	event, err := h.lifecycleService.GetEvent(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"event": event}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler handles GET /events
func (h *EventHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	events, err := h.lifecycleService.ListEvents(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"events": events}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// PhaseHandler handles GET /events/{eventID}/phase
func (h *EventHandler) PhaseHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	phase, err := h.lifecycleService.CurrentPhase(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"phase": phase}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StandingsHandler handles GET /events/{eventID}/standings
func (h *EventHandler) StandingsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	standings, err := h.lifecycleService.Standings(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// transitionHandler serves the admin lifecycle operations, which share the
// same shape: an event ID in the URL and an empty body.
func (h *EventHandler) transitionHandler(w http.ResponseWriter, r *http.Request, op func(r *http.Request, id uuid.UUID) error) {
	id, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if err := op(r, id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// LockTeamsHandler handles POST /events/{eventID}/lock
func (h *EventHandler) LockTeamsHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, func(r *http.Request, id uuid.UUID) error {
		return h.lifecycleService.LockTeams(r.Context(), id)
	})
}

// EnterQueueingHandler handles POST /events/{eventID}/queue
func (h *EventHandler) EnterQueueingHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, func(r *http.Request, id uuid.UUID) error {
		return h.lifecycleService.EnterQueueing(r.Context(), id)
	})
}

// AdvanceToSwissHandler handles POST /events/{eventID}/swiss
func (h *EventHandler) AdvanceToSwissHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, func(r *http.Request, id uuid.UUID) error {
		return h.lifecycleService.AdvanceToSwiss(r.Context(), id)
	})
}

// AdvanceRoundHandler handles POST /events/{eventID}/swiss/next-round
func (h *EventHandler) AdvanceRoundHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, func(r *http.Request, id uuid.UUID) error {
		return h.lifecycleService.AdvanceRound(r.Context(), id)
	})
}

// BuildBracketHandler handles POST /events/{eventID}/bracket
func (h *EventHandler) BuildBracketHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, func(r *http.Request, id uuid.UUID) error {
		return h.lifecycleService.BuildBracket(r.Context(), id)
	})
}

// FinishHandler handles POST /events/{eventID}/finish
func (h *EventHandler) FinishHandler(w http.ResponseWriter, r *http.Request) {
	h.transitionHandler(w, r, func(r *http.Request, id uuid.UUID) error {
		return h.lifecycleService.Finish(r.Context(), id)
	})
}
