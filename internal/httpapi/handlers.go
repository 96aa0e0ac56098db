package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/slok/tierd/internal/app/osrelease"
	"github.com/slok/tierd/internal/app/promotion"
	"github.com/slok/tierd/internal/model"
	"github.com/slok/tierd/internal/scheduler"
	"github.com/slok/tierd/internal/tasklog"
)

func (h handler) listTasks(w http.ResponseWriter, r *http.Request) {
	var filter model.TaskFilter
	filter.Type = r.URL.Query().Get("type")

	// Running tasks are persisted as pending or paused.
	var onlyRunning, excludeRunning bool
	if s := r.URL.Query().Get("status"); s != "" {
		status := model.TaskStatus(s)
		switch {
		case !status.Valid():
			h.writeError(w, fmt.Errorf("task status %q is invalid: %w", s, model.ErrNotValid))
			return
		case status == model.TaskStatusRunning:
			onlyRunning = true
		default:
			filter.Status = &status
			excludeRunning = !status.Finished()
		}
	}

	tasks, err := h.tasks.ListTasks(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	running := h.controller.Running()
	resp := []TaskResponse{}
	for _, t := range tasks {
		isRunning := slices.Contains(running, t.ID)
		if (onlyRunning && !isRunning) || (excludeRunning && isRunning) {
			continue
		}
		tr, err := mapTask(t, isRunning)
		if err != nil {
			h.writeError(w, err)
			return
		}
		resp = append(resp, tr)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h handler) getTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := mapTask(*t, slices.Contains(h.controller.Running(), id))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h handler) getTaskLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.tasks.GetTask(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	logs, err := tasklog.ReadLogs(h.logsDir, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(logs))
}

func (h handler) listTaskMoves(w http.ResponseWriter, r *http.Request) {
	moves, err := h.journal.ListMoves(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]MoveResponse, 0, len(moves))
	for _, m := range moves {
		resp = append(resp, mapMove(m))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h handler) pauseTask(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.PauseTask(chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h handler) resumeTask(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.ResumeTask(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

func (h handler) listOSReleases(w http.ResponseWriter, r *http.Request) {
	releases, err := h.osReleases.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]OSReleaseResponse, 0, len(releases))
	for _, rel := range releases {
		resp = append(resp, mapOSRelease(rel))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h handler) createOSRelease(w http.ResponseWriter, r *http.Request) {
	var req CreateOSReleaseRequest
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.osReleases.Create(r.Context(), osrelease.CreateRequest{
		Version:    req.Version,
		ReleaseIDs: req.ReleaseIDs,
		CreatedBy:  req.CreatedBy,
		StoreLogs:  req.StoreLogs,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, CreateOSReleaseResponse{TaskID: created.TaskID, ReleaseIDs: created.ReleaseIDs})
}

func (h handler) updateTesting(w http.ResponseWriter, r *http.Request) {
	var req UpdateTestingRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.controller.EnqueueTask(r.Context(), model.TestingRepoUpdateArgs{}, scheduler.EnqueueMeta{
		CreatedBy: req.CreatedBy,
		Options:   model.ExecutionOptions{AutoDelete: req.AutoDelete, StoreLogs: req.StoreLogs},
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, EnqueueResponse{TaskID: id})
}

func (h handler) listPromotions(w http.ResponseWriter, r *http.Request) {
	filter := model.PromotionFilter{PackageID: r.URL.Query().Get("package_id")}
	if s := r.URL.Query().Get("status"); s != "" {
		status := model.PromotionStatus(s)
		filter.Status = &status
	}

	reqs, err := h.promotions.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := make([]PromotionResponse, 0, len(reqs))
	for _, pr := range reqs {
		resp = append(resp, mapPromotion(pr))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	var req CreatePromotionRequest
	if !h.decode(w, r, &req) {
		return
	}

	pr, err := h.promotions.Create(r.Context(), promotion.CreateRequest{
		PackageID:   req.PackageID,
		ReleaseID:   req.ReleaseID,
		Arch:        model.Arch(req.Arch),
		RequestedBy: req.RequestedBy,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapPromotion(*pr))
}

func (h handler) getPromotion(w http.ResponseWriter, r *http.Request) {
	pr, err := h.promotions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapPromotion(*pr))
}

func (h handler) approvePromotion(w http.ResponseWriter, r *http.Request) {
	var req ResolvePromotionRequest
	if !h.decode(w, r, &req) {
		return
	}

	pr, err := h.promotions.Approve(r.Context(), chi.URLParam(r, "id"), req.Reviewer, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapPromotion(*pr))
}

func (h handler) denyPromotion(w http.ResponseWriter, r *http.Request) {
	var req ResolvePromotionRequest
	if !h.decode(w, r, &req) {
		return
	}

	pr, err := h.promotions.Deny(r.Context(), chi.URLParam(r, "id"), req.Reviewer, req.Reason)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapPromotion(*pr))
}

// decode decodes and validates the request body, on failure the response is already written.
func (h handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, fmt.Errorf("invalid request body: %s: %w", err, model.ErrNotValid))
		return false
	}

	if err := h.validate.Struct(v); err != nil {
		h.writeError(w, fmt.Errorf("invalid request: %s: %w", err, model.ErrNotValid))
		return false
	}

	return true
}

func (h handler) writeError(w http.ResponseWriter, err error) {
	status := statusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Errorf("Request failed: %s", err)
	}

	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, model.ErrNotValid):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrRemote):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
