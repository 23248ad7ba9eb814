package attempts

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/primary"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/activity"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/runner"
	"gitlab.com/fcv-2025.net/assessment/internal/core/services/session"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
	"gitlab.com/fcv-2025.net/assessment/internal/handlers"
	"gitlab.com/fcv-2025.net/assessment/internal/handlers/response"
	"gitlab.com/fcv-2025.net/assessment/internal/static/errs"
)

const maxBodyBytes = 4 << 20

// AttemptHandler serves the attempt lifecycle of the authenticated user
type AttemptHandler struct {
	sessions session.ISessionManager
	runner   runner.IRunnerService
	catalog  activity.IActivityCatalog
	logger   primary.Logger
}

func NewAttemptHandler(
	sessions session.ISessionManager,
	runner runner.IRunnerService,
	catalog activity.IActivityCatalog,
	logger primary.Logger,
) *AttemptHandler {
	return &AttemptHandler{
		sessions: sessions,
		runner:   runner,
		catalog:  catalog,
		logger:   logger,
	}
}

// RegisterRoutes mounts the attempt routes on the /api subrouter, which must
// already carry the JWT middleware
func (h *AttemptHandler) RegisterRoutes(router *mux.Router) {
	base := "/activities/{activityId}/attempt"
	router.HandleFunc(base, h.StartOrResume).Methods(http.MethodPost)
	router.HandleFunc(base, h.GetAttempt).Methods(http.MethodGet)
	router.HandleFunc(base, h.Discard).Methods(http.MethodDelete)
	router.HandleFunc(base+"/files", h.UpdateFiles).Methods(http.MethodPut)
	router.HandleFunc(base+"/items/{itemId}/select", h.SwitchItem).Methods(http.MethodPost)
	router.HandleFunc(base+"/items/{itemId}/run", h.RunItem).Methods(http.MethodPost)
	router.HandleFunc(base+"/items/{itemId}/testcases/{testCaseId}/run", h.RunTestCase).Methods(http.MethodPost)
	router.HandleFunc(base+"/run", h.RunCustom).Methods(http.MethodPost)
	router.HandleFunc(base+"/kill", h.Kill).Methods(http.MethodPost)
	router.HandleFunc(base+"/input", h.SendInput).Methods(http.MethodPost)
	router.HandleFunc(base+"/sync", h.Sync).Methods(http.MethodPost)
	router.HandleFunc(base+"/finish", h.Finish).Methods(http.MethodPost)
	router.HandleFunc(base+"/expire", h.Expire).Methods(http.MethodPost)
	router.HandleFunc("/languages", h.Languages).Methods(http.MethodGet)
}

func (h *AttemptHandler) StartOrResume(w http.ResponseWriter, r *http.Request) {
	key, identity, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	var req StartRequest
	if !h.decode(w, r, &req, true) {
		return
	}

	act, err := h.catalog.Fresh(r.Context(), key)
	if err != nil {
		h.fail(w, "Failed to load activity", key, err)
		return
	}

	state, err := h.sessions.StartOrResume(r.Context(), session.StartRequest{
		Key:      key,
		Role:     identity.Role,
		Activity: act,
		Files:    req.Files,
	})
	if errors.Is(err, errs.ErrAlreadyFinalized) && state != nil {
		h.writeState(w, http.StatusOK, state)
		return
	}
	if err != nil {
		h.fail(w, "Failed to start attempt", key, err)
		return
	}
	h.writeState(w, http.StatusOK, state)
}

func (h *AttemptHandler) GetAttempt(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	state, err := h.sessions.Get(r.Context(), key)
	if err != nil {
		h.fail(w, "Failed to load attempt", key, err)
		return
	}
	h.writeState(w, http.StatusOK, state)
}

func (h *AttemptHandler) Discard(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Discard(r.Context(), key); err != nil {
		h.fail(w, "Failed to discard attempt", key, err)
		return
	}
	h.catalog.Invalidate(key)
	w.WriteHeader(http.StatusNoContent)
}

func (h *AttemptHandler) UpdateFiles(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	var req UpdateFilesRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	state, err := h.sessions.UpdateFiles(r.Context(), key, req.Files, req.ActiveFileID)
	if err != nil {
		h.fail(w, "Failed to save files", key, err)
		return
	}
	h.writeState(w, http.StatusOK, state)
}

func (h *AttemptHandler) SwitchItem(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	state, err := h.sessions.SwitchItem(r.Context(), key, mux.Vars(r)["itemId"])
	if err != nil {
		h.fail(w, "Failed to switch item", key, err)
		return
	}
	h.writeState(w, http.StatusOK, state)
}

func (h *AttemptHandler) RunItem(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	var req RunRequest
	if !h.decodeRun(w, r, &req) {
		return
	}
	runs, err := h.runner.RunItem(r.Context(), key, mux.Vars(r)["itemId"], req.Language, req.Code)
	if err != nil {
		h.fail(w, "Failed to run item", key, err)
		return
	}
	remaining := 0
	if state, err := h.sessions.Get(r.Context(), key); err == nil {
		remaining = h.sessions.Tick(state)
	}
	response.WriteSuccess(w, RunItemResponse{Runs: runs, RemainingSeconds: remaining})
}

func (h *AttemptHandler) RunTestCase(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	var req RunRequest
	if !h.decodeRun(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	run, err := h.runner.RunTestCase(r.Context(), key, vars["itemId"], vars["testCaseId"], req.Language, req.Code)
	if err != nil {
		h.fail(w, "Failed to run test case", key, err)
		return
	}
	response.WriteSuccess(w, run)
}

func (h *AttemptHandler) RunCustom(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	var req RunRequest
	if !h.decodeRun(w, r, &req) {
		return
	}
	out, err := h.runner.RunCustom(r.Context(), key, req.Language, req.Code, req.Input)
	if err != nil {
		h.fail(w, "Failed to run code", key, err)
		return
	}
	response.WriteSuccess(w, out)
}

func (h *AttemptHandler) Kill(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	if err := h.runner.Kill(r.Context(), key); err != nil {
		h.fail(w, "Failed to kill run", key, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *AttemptHandler) SendInput(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	var req InputRequest
	if !h.decode(w, r, &req, false) {
		return
	}
	if err := h.runner.SendInput(r.Context(), key, req.Data); err != nil {
		h.fail(w, "Failed to send input", key, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *AttemptHandler) Sync(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	state, err := h.sessions.SyncFromServer(r.Context(), key)
	if err != nil {
		h.fail(w, "Failed to sync progress", key, err)
		return
	}
	h.writeState(w, http.StatusOK, state)
}

func (h *AttemptHandler) Finish(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	payload, err := h.sessions.Submit(r.Context(), key)
	h.writeSubmission(w, key, payload, err)
}

func (h *AttemptHandler) Expire(w http.ResponseWriter, r *http.Request) {
	key, _, ok := h.attemptKey(w, r)
	if !ok {
		return
	}
	payload, err := h.sessions.ExpireAndAutoSubmit(r.Context(), key)
	h.writeSubmission(w, key, payload, err)
}

func (h *AttemptHandler) Languages(w http.ResponseWriter, r *http.Request) {
	response.WriteSuccess(w, h.runner.Languages())
}

func (h *AttemptHandler) writeSubmission(w http.ResponseWriter, key domain.AttemptKey, payload *domain.SubmissionPayload, err error) {
	switch {
	case err == nil:
		h.catalog.Invalidate(key)
		response.WriteSuccess(w, SubmissionResponse{Submission: payload})
	case errors.Is(err, errs.ErrAlreadyFinalized):
		response.WriteSuccess(w, SubmissionResponse{Submission: payload, AlreadySubmitted: true})
	default:
		h.fail(w, "Failed to submit attempt", key, err)
	}
}

func (h *AttemptHandler) writeState(w http.ResponseWriter, status int, state *domain.AttemptState) {
	response.WriteJSON(w, status, AttemptResponse{
		AttemptState:     state,
		RemainingSeconds: h.sessions.Tick(state),
	})
}

func (h *AttemptHandler) fail(w http.ResponseWriter, msg string, key domain.AttemptKey, err error) {
	status := response.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "attempt", key.String(), "error", err)
	} else {
		h.logger.Debug(msg, "attempt", key.String(), "status", status, "error", err)
	}
	response.FromError(w, err)
}

func (h *AttemptHandler) attemptKey(w http.ResponseWriter, r *http.Request) (domain.AttemptKey, domain.AuthPayload, bool) {
	identity, ok := handlers.IdentityFrom(r.Context())
	if !ok {
		response.FromError(w, errs.MissingToken)
		return domain.AttemptKey{}, domain.AuthPayload{}, false
	}
	activityID := mux.Vars(r)["activityId"]
	if strings.TrimSpace(activityID) == "" {
		handlers.ResponseError(w, "activity id is required", http.StatusBadRequest)
		return domain.AttemptKey{}, domain.AuthPayload{}, false
	}
	return domain.AttemptKey{ActivityID: activityID, UserID: identity.UserID}, identity, true
}

// decode reads a JSON body. An empty body is accepted when optional is set.
func (h *AttemptHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}, optional bool) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	h.logger.Debug("Failed to decode request", "path", r.URL.Path, "error", err)
	handlers.ResponseError(w, "Invalid request", http.StatusBadRequest)
	return false
}

func (h *AttemptHandler) decodeRun(w http.ResponseWriter, r *http.Request, req *RunRequest) bool {
	if !h.decode(w, r, req, false) {
		return false
	}
	if req.Language == "" {
		handlers.ResponseError(w, "language is required", http.StatusBadRequest)
		return false
	}
	return true
}
