package admin_api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"ticket-relay/internal/counter"
	"ticket-relay/internal/utils"
)

// Coordinator is the slice of the counter service the admin surface uses.
type Coordinator interface {
	SetAbsolute(ctx context.Context, eventName string, total int) (counter.Result, error)
	Delete(ctx context.Context, eventName string) (bool, error)
	ResetAll(ctx context.Context) error
	Snapshot(ctx context.Context) (map[string]int, error)
}

type Handler struct {
	Counters Coordinator
}

// ListCounters serves GET /tickets and GET /stats: a bare name-to-total
// map, the shape the original panel consumed. Store errors surface as 500;
// an outage is never disguised as an empty store.
func (h *Handler) ListCounters(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Counters.Snapshot(r.Context())
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse("failed to read counters", err.Error()))
		return
	}
	utils.WriteJSON(w, http.StatusOK, totals)
}

// SetTotal serves POST /set: an absolute replacement of one counter. Total
// is a pointer so a missing field is distinguishable from zero.
func (h *Handler) SetTotal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventName string `json:"event_name"`
		Total     *int   `json:"total"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if req.EventName == "" || req.Total == nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("event_name and total are required", ""))
		return
	}

	result, err := h.Counters.SetAbsolute(r.Context(), req.EventName, *req.Total)
	if err != nil {
		h.writeServiceError(w, "failed to set total", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(
		fmt.Sprintf("total for %s set to %d", result.EventName, result.NewTotal),
		map[string]interface{}{"event_name": result.EventName, "total": result.NewTotal},
	))
}

// DeleteCounter serves POST /delete and reports whether the counter
// existed. Deleting an absent counter is not an error.
func (h *Handler) DeleteCounter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventName string `json:"event_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("invalid request body", err.Error()))
		return
	}
	if req.EventName == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.ErrorResponse("event_name is required", ""))
		return
	}

	deleted, err := h.Counters.Delete(r.Context(), req.EventName)
	if err != nil {
		h.writeServiceError(w, "failed to delete counter", err)
		return
	}

	message := fmt.Sprintf("counter for %s removed", req.EventName)
	if !deleted {
		message = fmt.Sprintf("no counter for %s", req.EventName)
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse(message,
		map[string]interface{}{"event_name": req.EventName, "deleted": deleted},
	))
}

// ResetCounters serves POST /reset: every counter ceases to exist.
func (h *Handler) ResetCounters(w http.ResponseWriter, r *http.Request) {
	if err := h.Counters.ResetAll(r.Context()); err != nil {
		h.writeServiceError(w, "failed to reset counters", err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.SuccessResponse("all ticket counters cleared", nil))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, counter.ErrInvalidKey),
		errors.Is(err, counter.ErrInvalidTotal),
		errors.Is(err, counter.ErrNegativeTotal):
		status = http.StatusBadRequest
	}
	utils.WriteJSON(w, status, utils.ErrorResponse(message, err.Error()))
}
