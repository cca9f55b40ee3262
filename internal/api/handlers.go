package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Guizzs26/go-sync-hr/internal/models"
	"github.com/Guizzs26/go-sync-hr/internal/service"
	"github.com/go-chi/chi/v5"
)

type ingestRequest struct {
	Trigger         string `json:"trigger"`
	InvalidateCache bool   `json:"invalidate_cache"`
}

type resolveRequest struct {
	Actor  string `json:"actor"`
	Reason string `json:"reason"`
}

type scheduleRequest struct {
	Frequency string `json:"frequency"`
	DayOfWeek string `json:"day_of_week"`
	RunTime   string `json:"run_time"`
}

// HandleIngest runs the pipeline synchronously and answers with its result.
// The trigger comes from the body or the ?trigger= query parameter.
func (h *Handlers) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if q := r.URL.Query().Get("trigger"); q != "" {
		req.Trigger = q
	}

	trigger, err := models.TriggerTypeFrom(strings.ToLower(strings.TrimSpace(req.Trigger)))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if trigger == models.TriggerScheduled && !h.authorizedCron(r) {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	res := h.runner.Run(r.Context(), service.Request{Trigger: trigger, InvalidateCache: req.InvalidateCache})
	respondJSON(w, statusFor(res.Kind), res)
}

func (h *Handlers) HandlePending(w http.ResponseWriter, r *http.Request) {
	logs, err := h.approvals.Pending(r.Context())
	if err != nil {
		h.logger.Error("Failed to list pending approvals", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list pending approvals")
		return
	}
	if logs == nil {
		logs = []models.ImportLog{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"imports": logs, "count": len(logs)})
}

func (h *Handlers) HandleApprove(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.resolution(w, r)
	if !ok {
		return
	}
	log, err := h.approvals.Approve(r.Context(), id, req.Actor)
	h.respondResolution(w, log, err)
}

func (h *Handlers) HandleReject(w http.ResponseWriter, r *http.Request) {
	id, req, ok := h.resolution(w, r)
	if !ok {
		return
	}
	log, err := h.approvals.Reject(r.Context(), id, req.Actor, req.Reason)
	h.respondResolution(w, log, err)
}

func (h *Handlers) HandleGetSchedule(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.schedules.Current(r.Context())
	if err != nil {
		h.logger.Error("Failed to load schedule", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load schedule")
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (h *Handlers) HandleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, err := h.schedules.Update(r.Context(), models.FrequencyFrom(req.Frequency), models.WeekdayFrom(req.DayOfWeek), req.RunTime)
	if err != nil {
		h.logger.Error("Failed to update schedule", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to update schedule")
		return
	}
	respondJSON(w, http.StatusOK, cfg)
}

func (h *Handlers) HandleVersions(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	versions, err := h.history.History(r.Context(), name, limit)
	if err != nil {
		h.logger.Error("Failed to list file versions", "file", name, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list versions")
		return
	}
	if versions == nil {
		versions = []models.FileVersion{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"filename": name, "versions": versions})
}

func (h *Handlers) resolution(w http.ResponseWriter, r *http.Request) (int64, resolveRequest, bool) {
	var req resolveRequest
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid import id")
		return 0, req, false
	}
	if err := decodeOptional(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return 0, req, false
	}
	req.Actor = strings.TrimSpace(req.Actor)
	if req.Actor == "" {
		respondError(w, http.StatusBadRequest, "actor is required")
		return 0, req, false
	}
	return id, req, true
}

func (h *Handlers) respondResolution(w http.ResponseWriter, log models.ImportLog, err error) {
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, log)
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, "import not found")
	case errors.Is(err, service.ErrNotAwaitingApproval):
		respondError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("Failed to resolve import", "import_log_id", log.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to resolve import")
	}
}

func (h *Handlers) authorizedCron(r *http.Request) bool {
	if h.cronSecret == "" {
		return true
	}
	got := r.Header.Get("Authorization")
	want := "Bearer " + h.cronSecret
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

func statusFor(kind service.ResultKind) int {
	switch kind {
	case service.ResultBlocked:
		return http.StatusConflict
	case service.ResultFailed:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}

// decodeOptional decodes a JSON body when one is present.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
