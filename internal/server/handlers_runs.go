package server

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ashita-ai/gauntlet/internal/ctxutil"
	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/storage"
)

// HandleListRuns handles GET /v1/runs.
//
// Optional filters: state, and user_id (a UUID or "me").
func (h *Handlers) HandleListRuns(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.RunFilter{
		Limit:  queryLimit(r, 50),
		Offset: queryOffset(r),
	}

	if v := q.Get("state"); v != "" {
		st := model.RunState(v)
		if !st.Valid() {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid state: "+v)
			return
		}
		f.State = st
	}

	switch v := q.Get("user_id"); v {
	case "":
	case "me":
		user := ctxutil.UserIDFromContext(r.Context())
		f.UserID = &user
	default:
		user, err := uuid.Parse(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "invalid user_id: "+v)
			return
		}
		f.UserID = &user
	}

	runs, total, err := h.store.ListRuns(r.Context(), f)
	if err != nil {
		h.writeInternalError(w, r, "failed to list runs", err)
		return
	}
	writeListJSON(w, r, runs, total, f.Limit, f.Offset, len(runs))
}

// HandleGetRun handles GET /v1/runs/{run_id}.
func (h *Handlers) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, "run", err)
		return
	}
	writeJSON(w, r, http.StatusOK, run)
}

// HandleListRunResults handles GET /v1/runs/{run_id}/results.
func (h *Handlers) HandleListRunResults(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	// Distinguish an unknown run from one with no results.
	if _, err := h.store.GetRun(r.Context(), id); err != nil {
		h.writeStoreError(w, r, "run", err)
		return
	}
	results, err := h.store.ListResults(r.Context(), id)
	if err != nil {
		h.writeInternalError(w, r, "failed to list results", err)
		return
	}
	writeJSON(w, r, http.StatusOK, results)
}

// HandleGetRunTrajectory handles GET /v1/runs/{run_id}/trajectory.
func (h *Handlers) HandleGetRunTrajectory(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}
	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, r, "run", err)
		return
	}
	entries, err := h.trajectory.ReadTrajectory(r.Context(), run.ProjectID)
	if err != nil {
		h.writeInternalError(w, r, "failed to read trajectory", err)
		return
	}
	if entries == nil {
		entries = []model.TrajectoryEntry{}
	}
	writeJSON(w, r, http.StatusOK, entries)
}
