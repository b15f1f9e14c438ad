package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"nexus/internal/catalog"
	"nexus/internal/executor"
	"nexus/internal/files"
	"nexus/internal/runtime"
	"nexus/internal/storage"
)

// Error messages returned to clients.
const (
	msgFilenameRequired = "Filename is required"
	msgFileNotFound     = "File not found"
	msgCannotOpenDir    = "Cannot open directory"
	msgCannotCreate     = "Cannot create file"
	msgCannotEdit       = "Cannot edit file"
	msgCannotDelete     = "Cannot delete file"
	msgExecutionFailed  = "Execution failed"
	msgTimedOut         = "Execution timed out"
	msgInvalidJSON      = "Invalid JSON"
	msgInvalidName      = "Invalid file name"
	msgOutsideRoot      = "Path is outside the configured root"
	msgHistoryDisabled  = "Execution history is not configured"
)

// HistoryStore reads past executions.
type HistoryStore interface {
	GetExecution(ctx context.Context, id string) (*storage.Execution, error)
	ListExecutions(ctx context.Context, filter storage.ExecutionFilter) ([]storage.Execution, error)
	Healthy(ctx context.Context) bool
}

// Deps are the services the handlers call into. History may be nil.
type Deps struct {
	Files    *files.Service
	Executor *executor.Executor
	Known    *catalog.KnownFiles
	History  HistoryStore
}

type Handlers struct {
	files     *files.Service
	exec      *executor.Executor
	known     *catalog.KnownFiles
	history   HistoryStore
	startTime time.Time
}

func NewHandlers(deps Deps) *Handlers {
	return &Handlers{
		files:     deps.Files,
		exec:      deps.Executor,
		known:     deps.Known,
		history:   deps.History,
		startTime: time.Now(),
	}
}

func (h *Handlers) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	names, err := h.files.List(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		h.writeFileError(w, err, msgCannotOpenDir, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, FilesResponse{Files: names})
}

func (h *Handlers) HandleView(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	content, err := h.files.View(r.Context(), q.Get("file"), q.Get("location"))
	if err != nil {
		h.writeFileError(w, err, msgFileNotFound, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, ContentResponse{Content: content})
}

func (h *Handlers) HandleCreate(w http.ResponseWriter, r *http.Request) {
	h.handleWrite(w, r, h.files.Create, "File created successfully", msgCannotCreate)
}

func (h *Handlers) HandleEdit(w http.ResponseWriter, r *http.Request) {
	h.handleWrite(w, r, h.files.Edit, "File updated successfully", msgCannotEdit)
}

type writeFunc func(ctx context.Context, filename, content, location string) error

func (h *Handlers) handleWrite(w http.ResponseWriter, r *http.Request, write writeFunc, okMsg, failMsg string) {
	var req FileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Filename == "" {
		writeError(w, msgFilenameRequired, http.StatusBadRequest)
		return
	}

	if err := write(r.Context(), req.Filename, req.Content, req.Location); err != nil {
		h.writeFileError(w, err, failMsg, http.StatusInternalServerError)
		return
	}

	h.remember(req.Filename, h.files.Location(req.Location))
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: okMsg})
}

func (h *Handlers) HandleDelete(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Filename == "" {
		writeError(w, msgFilenameRequired, http.StatusBadRequest)
		return
	}

	if err := h.files.Delete(r.Context(), req.Filename, req.Location); err != nil {
		h.writeFileError(w, err, msgCannotDelete, http.StatusInternalServerError)
		return
	}

	if h.known != nil {
		h.known.Remove(req.Filename, h.files.Location(req.Location))
	}
	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "File deleted"})
}

func (h *Handlers) HandleExists(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, ExistsResponse{
		Exists: h.files.Exists(r.Context(), q.Get("file"), q.Get("location")),
	})
}

func (h *Handlers) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	res, err := h.files.Browse(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		h.writeFileError(w, err, msgCannotOpenDir, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Filename == "" {
		writeError(w, msgFilenameRequired, http.StatusBadRequest)
		return
	}

	result, err := h.exec.Execute(r.Context(), executor.ExecutionRequest{
		Filename: req.Filename,
		Action:   req.Action,
		Location: req.Location,
	})

	var unsupported *runtime.UnsupportedError
	switch {
	case errors.As(err, &unsupported):
		writeError(w, "Unsupported file type: "+unsupported.Extension, http.StatusBadRequest)
		return
	case errors.Is(err, executor.ErrInvalidName), errors.Is(err, files.ErrInvalidName):
		writeError(w, msgInvalidName, http.StatusBadRequest)
		return
	case errors.Is(err, files.ErrOutsideRoot):
		writeError(w, msgOutsideRoot, http.StatusForbidden)
		return
	case result == nil:
		log.Error().Err(err).Str("request_id", RequestIDFromContext(r.Context())).Msg("execution failed")
		writeError(w, msgExecutionFailed, http.StatusInternalServerError)
		return
	}

	h.remember(req.Filename, h.files.Location(req.Location))
	w.Header().Set("X-Execution-ID", result.ID)

	resp := ExecuteResponse{
		Success:  result.Succeeded,
		Output:   result.Output,
		ExitCode: result.ExitCode,
	}
	switch {
	case result.TimedOut:
		resp.Error = msgTimedOut
	case !result.Succeeded:
		resp.Error = msgExecutionFailed
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleKnown(w http.ResponseWriter, r *http.Request) {
	entries := []catalog.Entry{}
	if h.known != nil {
		entries = h.known.List()
	}
	writeJSON(w, http.StatusOK, KnownResponse{Files: entries})
}

func (h *Handlers) HandleLanguages(w http.ResponseWriter, r *http.Request) {
	langs := h.exec.Table().Languages()
	resp := LanguagesResponse{Languages: make([]LanguageInfo, 0, len(langs))}
	for _, l := range langs {
		resp.Languages = append(resp.Languages, LanguageInfo{
			Name:       l.Name,
			Extensions: l.Extensions,
			Compiled:   l.Compiled(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) HandleListExecutions(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, msgHistoryDisabled, http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	filter := storage.ExecutionFilter{
		Extension: q.Get("extension"),
		Status:    q.Get("status"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	execs, err := h.history.ListExecutions(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("listing executions failed")
		writeError(w, "Query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Executions: execs})
}

func (h *Handlers) HandleGetExecution(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, msgHistoryDisabled, http.StatusServiceUnavailable)
		return
	}

	exec, err := h.history.GetExecution(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, "Execution not found", http.StatusNotFound)
		return
	case err != nil:
		log.Error().Err(err).Msg("loading execution failed")
		writeError(w, "Query failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, exec)
}

func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := h.history == nil || h.history.Healthy(r.Context())

	resp := HealthResponse{
		Status:   "ok",
		Database: dbOK,
		Uptime:   time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.known != nil {
		resp.KnownFiles = h.known.Len()
	}

	status := http.StatusOK
	if !dbOK {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (h *Handlers) remember(filename, location string) {
	if h.known == nil {
		return
	}
	if _, err := h.known.Add(filename, location); err != nil {
		log.Debug().Err(err).Str("filename", filename).Msg("not added to known files")
	}
}

// writeFileError maps a files error to a response. fallback is used for
// anything not caused by the request itself.
func (h *Handlers) writeFileError(w http.ResponseWriter, err error, fallback string, status int) {
	switch {
	case errors.Is(err, files.ErrInvalidName):
		writeError(w, msgFilenameRequired, http.StatusBadRequest)
	case errors.Is(err, files.ErrOutsideRoot):
		writeError(w, msgOutsideRoot, http.StatusForbidden)
	default:
		log.Debug().Err(err).Msg("file operation failed")
		writeError(w, fallback, status)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, msgInvalidJSON, http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
