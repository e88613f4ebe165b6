// Package api exposes the pipeline over HTTP: spreadsheet uploads, outbound
// dispatch, feedback classification and session inspection.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/dispatch"
	"github.com/sells-group/outreach-cli/internal/fetcher"
	"github.com/sells-group/outreach-cli/internal/ingest"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/normalize"
	"github.com/sells-group/outreach-cli/internal/sentiment"
	"github.com/sells-group/outreach-cli/internal/store"
)

const maxUploadBytes = 32 << 20

// Handlers holds the HTTP handlers and their dependencies.
type Handlers struct {
	store       store.Store
	classifier  *sentiment.Classifier
	engine      *dispatch.Engine
	dispatchCfg dispatch.Config
	xlsxOpts    fetcher.XLSXOptions
}

// NewHandlers creates the handler set. engine may be nil when the gateway is
// not configured; the send endpoint then returns 503.
func NewHandlers(st store.Store, cls *sentiment.Classifier, eng *dispatch.Engine, dcfg dispatch.Config, xlsx fetcher.XLSXOptions) *Handlers {
	return &Handlers{
		store:       st,
		classifier:  cls,
		engine:      eng,
		dispatchCfg: dcfg,
		xlsxOpts:    xlsx,
	}
}

// HealthCheck reports liveness and store reachability.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Upload ingests one spreadsheet. Multipart form fields: "file" (the .xlsx)
// and "mode" (contacts or client_data).
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	mode := r.FormValue("mode")
	if !model.ValidIngestMode(mode) {
		respondError(w, http.StatusBadRequest, "mode must be contacts or client_data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	// The xlsx reader wants a path, so spool the upload to disk first.
	tmp, err := os.CreateTemp("", "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not buffer upload")
		return
	}
	defer os.Remove(tmp.Name())

	size, err := io.Copy(tmp, file)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not buffer upload")
		return
	}

	var rows ingest.RowSet
	switch model.IngestMode(mode) {
	case model.ModeContacts:
		rows, err = fetcher.ParseContacts(tmp.Name(), h.xlsxOpts)
	case model.ModeClientData:
		rows, err = fetcher.ParseClientData(tmp.Name(), h.xlsxOpts)
	}
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, "could not parse spreadsheet: "+err.Error())
		return
	}

	session, err := h.store.CreateSession(r.Context(), header.Filename, size, model.IngestMode(mode))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	if err := ingest.New(h.store).Ingest(r.Context(), session, rows); err != nil {
		zap.L().Error("upload ingestion failed",
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"session_id":        session.ID,
			"status":            session.Status,
			"processed_records": session.ProcessedRecords,
			"error":             err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"session_id":         session.ID,
		"status":             session.Status,
		"mode":               session.Mode,
		"processed_records":  session.ProcessedRecords,
		"processing_time_ms": session.ProcessingTimeMs,
	})
}

// SendRequest is the body for POST /send. BatchSize and BatchDelayMs override
// the server's dispatch defaults for this job only.
type SendRequest struct {
	Message      string          `json:"message"`
	Contacts     []model.Contact `json:"contacts"`
	BatchSize    int             `json:"batch_size,omitempty"`
	BatchDelayMs int             `json:"batch_delay_ms,omitempty"`
}

// Send dispatches one message to a list of contacts.
func (h *Handlers) Send(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		respondError(w, http.StatusServiceUnavailable, "outbound gateway not configured")
		return
	}

	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.Contacts) == 0 {
		respondError(w, http.StatusBadRequest, "contacts are required")
		return
	}

	contacts := make([]model.Contact, 0, len(req.Contacts))
	for _, c := range req.Contacts {
		if phone, ok := normalize.Phone(c.Phone); ok {
			c.Phone = phone
		}
		contacts = append(contacts, c)
	}

	dcfg := h.dispatchCfg
	if req.BatchSize > 0 {
		dcfg.BatchSize = req.BatchSize
	}
	if req.BatchDelayMs > 0 {
		dcfg.BatchDelay = time.Duration(req.BatchDelayMs) * time.Millisecond
	}

	result, err := h.engine.Dispatch(r.Context(), contacts, req.Message, dcfg)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"sent":     len(result.Sent),
		"failed":   len(result.Failed),
		"total":    result.Total(),
		"failures": result.Failed,
	})
}

// ClassifyRequest is the body for POST /classify.
type ClassifyRequest struct {
	Text      string `json:"text"`
	ClientKey string `json:"client_key,omitempty"`
	Persist   bool   `json:"persist,omitempty"`
}

// Classify runs sentiment classification on one message, optionally
// persisting the result as a feedback entry.
func (h *Handlers) Classify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := h.classifier.Classify(req.Text)

	if req.Persist {
		entry := model.FeedbackEntry{
			ClientKey:  req.ClientKey,
			Message:    req.Text,
			Category:   result.Category,
			Confidence: result.Confidence,
			Scores:     result.Scores,
			Source:     "api",
		}
		if err := h.store.InsertFeedback(r.Context(), entry); err != nil {
			respondError(w, http.StatusInternalServerError, "could not persist feedback")
			return
		}
	}

	respondJSON(w, http.StatusOK, result)
}

// ListSessions returns upload sessions, newest first. Query params: status,
// mode, limit.
func (h *Handlers) ListSessions(w http.ResponseWriter, r *http.Request) {
	filter := store.SessionFilter{
		Status: model.SessionStatus(r.URL.Query().Get("status")),
		Mode:   model.IngestMode(r.URL.Query().Get("mode")),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := parsePositiveInt(limit)
		if err != nil {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	sessions, err := h.store.ListSessions(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "could not list sessions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": sessions, "count": len(sessions)})
}

// GetSession returns one upload session by id.
func (h *Handlers) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.store.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "session not found")
		return
	}
	respondJSON(w, http.StatusOK, session)
}
