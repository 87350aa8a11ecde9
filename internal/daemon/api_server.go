package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"fapiao/internal/api"
	"fapiao/internal/config"
	"fapiao/internal/logging"
	"fapiao/internal/services"
)

type apiServer struct {
	bind    string
	logger  *slog.Logger
	service *api.TaskService
	handler http.Handler

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, service *api.TaskService, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:    strings.TrimSpace(cfg.Paths.APIBind),
		logger:  logging.NewComponentLogger(logger, "api-server"),
		service: service,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", srv.handleHealth)
	mux.HandleFunc("POST /api/import", srv.handleImport)
	mux.HandleFunc("GET /api/tasks/{taskID}", srv.handleGetTask)
	mux.HandleFunc("POST /api/recognize", srv.handleRecognize)
	mux.HandleFunc("POST /api/preview-names", srv.handlePreviewNames)
	mux.HandleFunc("POST /api/commit-plan", srv.handleCommitPlan)
	mux.HandleFunc("POST /api/commit-rename", srv.handleCommitRename)
	mux.HandleFunc("POST /api/commit-results", srv.handleCommitResults)
	mux.HandleFunc("POST /api/sync-items", srv.handleSyncItems)
	mux.HandleFunc("PATCH /api/items/{taskID}/{itemID}", srv.handlePatchItem)
	mux.HandleFunc("POST /api/remove-items", srv.handleRemoveItems)
	mux.HandleFunc("POST /api/clear-items", srv.handleClearItems)
	mux.HandleFunc("GET /api/settings", srv.handleGetSettings)
	mux.HandleFunc("PUT /api/settings", srv.handlePutSettings)

	srv.handler = authMiddleware(cfg.Paths.APIToken, mux)
	srv.server = &http.Server{
		Handler:           srv.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

type importRequest struct {
	Paths []string `json:"paths"`
}

type recognizeRequest struct {
	TaskID        string   `json:"task_id"`
	ItemIDs       []string `json:"item_ids"`
	SessionAPIKey string   `json:"session_api_key"`
}

type previewRequest struct {
	TaskID   string   `json:"task_id"`
	Template string   `json:"template"`
	ItemIDs  []string `json:"item_ids"`
}

type commitPlanRequest struct {
	TaskID  string   `json:"task_id"`
	ItemIDs []string `json:"item_ids"`
	DryRun  *bool    `json:"dry_run"`
}

type commitRenameRequest struct {
	TaskID  string   `json:"task_id"`
	ItemIDs []string `json:"item_ids"`
}

type commitResultsRequest struct {
	TaskID  string                 `json:"task_id"`
	Results []api.CommitResultView `json:"results"`
}

type syncItemsRequest struct {
	TaskID string              `json:"task_id"`
	Items  []api.ItemSyncPatch `json:"items"`
}

type removeItemsRequest struct {
	TaskID  string   `json:"task_id"`
	ItemIDs []string `json:"item_ids"`
}

type clearItemsRequest struct {
	TaskID string `json:"task_id"`
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)
	s.writeJSON(w, http.StatusOK, s.service.Health(r.Context(), now))
}

func (s *apiServer) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.service.ImportTask(r.Context(), req.Paths)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleGetTask(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetTask(r.Context(), r.PathValue("taskID"))
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleRecognize(w http.ResponseWriter, r *http.Request) {
	var req recognizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.service.Recognize(r.Context(), req.TaskID, req.ItemIDs, req.SessionAPIKey)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handlePreviewNames(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.service.PreviewNames(r.Context(), req.TaskID, req.Template, req.ItemIDs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleCommitPlan(w http.ResponseWriter, r *http.Request) {
	var req commitPlanRequest
	if !s.decode(w, r, &req) {
		return
	}
	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}
	plan, err := s.service.BuildPlan(r.Context(), req.TaskID, req.ItemIDs, dryRun)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, plan)
}

func (s *apiServer) handleCommitRename(w http.ResponseWriter, r *http.Request) {
	var req commitRenameRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.service.CommitRename(r.Context(), req.TaskID, req.ItemIDs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleCommitResults(w http.ResponseWriter, r *http.Request) {
	var req commitResultsRequest
	if !s.decode(w, r, &req) {
		return
	}
	result, err := s.service.SyncResults(r.Context(), req.TaskID, req.Results)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleSyncItems(w http.ResponseWriter, r *http.Request) {
	var req syncItemsRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.service.SyncItems(r.Context(), req.TaskID, req.Items)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handlePatchItem(w http.ResponseWriter, r *http.Request) {
	var patch api.ItemPatch
	if !s.decode(w, r, &patch) {
		return
	}
	view, err := s.service.PatchItem(r.Context(), r.PathValue("taskID"), r.PathValue("itemID"), patch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleRemoveItems(w http.ResponseWriter, r *http.Request) {
	var req removeItemsRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.service.RemoveItems(r.Context(), req.TaskID, req.ItemIDs)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleClearItems(w http.ResponseWriter, r *http.Request) {
	var req clearItemsRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.service.ClearItems(r.Context(), req.TaskID)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.service.Settings(r.Context()))
}

func (s *apiServer) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var patch api.SettingsPatch
	if !s.decode(w, r, &patch) {
		return
	}
	view, err := s.service.UpdateSettings(r.Context(), patch)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *apiServer) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrValidation):
		s.writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"detail": message})
}
