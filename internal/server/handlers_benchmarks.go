package server

import (
	"errors"
	"net/http"

	"github.com/ashita-ai/gauntlet/internal/ctxutil"
	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/orchestrator"
	"github.com/ashita-ai/gauntlet/internal/storage"
	"github.com/ashita-ai/gauntlet/internal/target"
)

// maxScenariosPerStart bounds how many scenarios one request may bootstrap.
const maxScenariosPerStart = 100

// HandleStartBenchmark handles POST /v1/benchmarks.
//
// Runs are bootstrapped synchronously. When only some scenarios fail the
// response is still 201, listing the failures next to the created runs; when
// none succeed it is 502 (404 if every scenario id was unknown).
func (h *Handlers) HandleStartBenchmark(w http.ResponseWriter, r *http.Request) {
	var req model.StartBenchmarkRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.SystemVersion == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "system_version is required")
		return
	}
	if len(req.ScenarioIDs) > maxScenariosPerStart {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "too many scenario_ids")
		return
	}
	req.UserID = ctxutil.UserIDFromContext(r.Context())

	runs, err := h.starter.StartBenchmark(r.Context(), req)
	if err == nil {
		writeJSON(w, r, http.StatusCreated, model.StartBenchmarkResponse{Runs: runs})
		return
	}

	failures := orchestrator.ScenarioFailures(err)
	switch {
	case errors.Is(err, orchestrator.ErrNoScenarios):
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "scenario_ids must not be empty")
		return
	case errors.Is(err, target.ErrUnknownVersion) && len(failures) == 0:
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "unknown system_version")
		return
	case errors.Is(err, orchestrator.ErrNoTargetToken):
		writeError(w, r, http.StatusServiceUnavailable, model.ErrCodeUnavailable, "target token is not configured")
		return
	}

	resp := model.StartBenchmarkResponse{Runs: runs, Errors: make([]model.ScenarioFailure, len(failures))}
	allNotFound := len(failures) > 0
	for i, f := range failures {
		resp.Errors[i] = model.ScenarioFailure{ScenarioID: f.ScenarioID, Message: f.Err.Error()}
		allNotFound = allNotFound && errors.Is(f.Err, storage.ErrNotFound)
	}

	if len(failures) < len(joined(err)) {
		// Something other than a scenario failed, e.g. activating the benchmark.
		h.logger.Error("start benchmark: runs created but benchmark not activated", "error", err)
		writeErrorDetails(w, r, http.StatusInternalServerError, model.ErrCodeInternalError,
			"benchmark could not be fully started", resp)
		return
	}
	if len(runs) > 0 {
		writeJSON(w, r, http.StatusCreated, resp)
		return
	}
	if allNotFound {
		writeErrorDetails(w, r, http.StatusNotFound, model.ErrCodeNotFound, "no such scenarios", resp.Errors)
		return
	}
	writeErrorDetails(w, r, http.StatusBadGateway, model.ErrCodeUpstream, "no scenario could be started", resp.Errors)
}

// joined flattens an errors.Join result one level.
func joined(err error) []error {
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		return j.Unwrap()
	}
	return []error{err}
}

// HandleGetBenchmark handles GET /v1/benchmark.
func (h *Handlers) HandleGetBenchmark(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.BenchmarkSettings(r.Context())
	if err != nil {
		h.writeInternalError(w, r, "failed to read benchmark settings", err)
		return
	}
	writeJSON(w, r, http.StatusOK, settings)
}

// HandleSetBenchmark handles PUT /v1/benchmark.
func (h *Handlers) HandleSetBenchmark(w http.ResponseWriter, r *http.Request) {
	var req model.SetBenchmarkActiveRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}
	if req.Active == nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, "active is required")
		return
	}

	by := ctxutil.UserIDFromContext(r.Context()).String()
	settings, err := h.store.SetBenchmarkActive(r.Context(), *req.Active, by)
	if err != nil {
		h.writeInternalError(w, r, "failed to update benchmark settings", err)
		return
	}
	h.logger.Info("benchmark active flag changed", "active", settings.Active, "updated_by", by)
	writeJSON(w, r, http.StatusOK, settings)
}
