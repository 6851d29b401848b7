package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Dosada05/arena-engine/middleware"
	"github.com/Dosada05/arena-engine/models"
	"github.com/Dosada05/arena-engine/services"
	"github.com/google/uuid"
)

type MatchHandler struct {
	matchService services.MatchService
}

func NewMatchHandler(ms services.MatchService) *MatchHandler {
	return &MatchHandler{matchService: ms}
}

func parseMatchPhase(raw string) (models.MatchPhase, error) {
	phase := models.MatchPhase(raw)
	switch phase {
	case models.PhaseQueue, models.PhaseSwiss, models.PhaseElimination:
		return phase, nil
	}
	return "", errors.New("phase must be one of QUEUE, SWISS, ELIMINATION")
}

// GetByIDHandler handles GET /matches/{matchID}
func (h *MatchHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	match, err := h.matchService.GetMatch(r.Context(), id, middleware.IsAdmin(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"match": match}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListPhaseHandler handles GET /events/{eventID}/matches?phase=SWISS
func (h *MatchHandler) ListPhaseHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	phase, err := parseMatchPhase(r.URL.Query().Get("phase"))
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListPhaseMatches(r.Context(), eventID, phase, middleware.IsAdmin(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListRecentQueueHandler handles GET /events/{eventID}/queue-matches
func (h *MatchHandler) ListRecentQueueHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed <= 0 || parsed > 100 {
			badRequestResponse(w, r, errors.New("limit must be between 1 and 100"))
			return
		}
		limit = parsed
	}

	matches, err := h.matchService.ListRecentQueueMatches(r.Context(), eventID, limit, middleware.IsAdmin(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListForTeamHandler handles GET /teams/{teamID}/matches
func (h *MatchHandler) ListForTeamHandler(w http.ResponseWriter, r *http.Request) {
	teamID, err := getUUIDFromURL(r, "teamID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	matches, err := h.matchService.ListTeamMatches(r.Context(), teamID, middleware.IsAdmin(r.Context()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"matches": matches}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// StartHandler handles POST /matches/{matchID}/start
func (h *MatchHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.StartMatch(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReportResultHandler handles POST /matches/{matchID}/result. A null
// winner_id records a draw.
func (h *MatchHandler) ReportResultHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		WinnerID *uuid.UUID `json:"winner_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.ReportResult(r.Context(), id, input.WinnerID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevealHandler handles POST /matches/{matchID}/reveal
func (h *MatchHandler) RevealHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getUUIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.Reveal(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevealAllHandler handles POST /events/{eventID}/reveal?phase=SWISS
func (h *MatchHandler) RevealAllHandler(w http.ResponseWriter, r *http.Request) {
	eventID, err := getUUIDFromURL(r, "eventID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	phase, err := parseMatchPhase(r.URL.Query().Get("phase"))
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.matchService.RevealAllInPhase(r.Context(), eventID, phase); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
