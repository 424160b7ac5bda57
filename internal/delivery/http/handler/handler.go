package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/crawl-pilot/internal/delivery/http/request"
	"github.com/user/crawl-pilot/internal/delivery/http/response"
	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/internal/report"
	"github.com/user/crawl-pilot/internal/repository"
	"github.com/user/crawl-pilot/internal/usecase"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	sessions usecase.SessionManager
}

func NewHandler(sessions usecase.SessionManager) *Handler {
	return &Handler{
		sessions: sessions,
	}
}

func (h *Handler) HandleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req request.OpenSessionRequest
	if !h.decode(w, r, &req) {
		return
	}

	turns, err := h.sessions.Open(r.Context(), req.URL)
	if err != nil {
		h.writeError(w, err, turns)
		return
	}
	h.writeJSON(w, http.StatusCreated, response.TurnsResponse{Turns: turns})
}

func (h *Handler) HandleResetSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleGetFrontier(w http.ResponseWriter, r *http.Request) {
	frontier, err := h.sessions.Frontier()
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FrontierResponse{
		Links:  frontier.Links,
		Assets: frontier.Assets,
		Counts: frontier.Counts(),
	})
}

func (h *Handler) HandleGetTranscript(w http.ResponseWriter, r *http.Request) {
	turns, err := h.sessions.Transcript()
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	h.writeJSON(w, http.StatusOK, response.TranscriptResponse{Turns: turns})
}

func (h *Handler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req request.SendMessageRequest
	if !h.decode(w, r, &req) {
		return
	}

	turns, err := h.sessions.SendText(r.Context(), req.Text)
	if err != nil {
		h.writeError(w, err, turns)
		return
	}
	h.writeJSON(w, http.StatusOK, response.TurnsResponse{Turns: turns})
}

func (h *Handler) HandleApproveProposal(w http.ResponseWriter, r *http.Request) {
	turns, err := h.sessions.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, turns)
		return
	}
	h.writeJSON(w, http.StatusOK, response.TurnsResponse{Turns: turns})
}

func (h *Handler) HandleRejectProposal(w http.ResponseWriter, r *http.Request) {
	turn, err := h.sessions.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	h.writeJSON(w, http.StatusOK, response.TurnsResponse{Turns: []entity.Turn{turn}})
}

func (h *Handler) HandleStartBulkScan(w http.ResponseWriter, r *http.Request) {
	status, started, err := h.sessions.StartBulkScan(r.Context())
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	code := http.StatusOK
	if started {
		code = http.StatusAccepted
	}
	h.writeJSON(w, code, response.BulkScanResponse{Started: started, Status: status})
}

func (h *Handler) HandleStopBulkScan(w http.ResponseWriter, r *http.Request) {
	status, err := h.sessions.StopBulkScan()
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	h.writeJSON(w, http.StatusOK, response.BulkScanResponse{Status: status})
}

func (h *Handler) HandleGetBulkScan(w http.ResponseWriter, r *http.Request) {
	status, err := h.sessions.BulkScanStatus()
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	h.writeJSON(w, http.StatusOK, response.BulkScanResponse{Status: status})
}

func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.Snapshot()
	if err != nil {
		h.writeError(w, err, nil)
		return
	}

	var buf bytes.Buffer
	if _, err := report.NewMarkdownWriter(&buf).Write(snap); err != nil {
		slog.Error("Failed to render report", "session_id", snap.ID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Error("Failed to write report", "error", err)
	}
}

func (h *Handler) HandleArchiveSession(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessions.Archive(r.Context())
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	h.writeJSON(w, http.StatusCreated, response.ArchiveResponse{ArchiveID: id})
}

func (h *Handler) HandleGetArchive(w http.ResponseWriter, r *http.Request) {
	snap, err := h.sessions.LoadArchive(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, nil)
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// statusFor maps usecase and repository errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, usecase.ErrInvalidURL), errors.Is(err, usecase.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, usecase.ErrNoSession),
		errors.Is(err, usecase.ErrProposalNotFound),
		errors.Is(err, repository.ErrArchiveNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecase.ErrSessionActive):
		return http.StatusConflict
	case errors.Is(err, usecase.ErrSeedScanFailed), errors.Is(err, usecase.ErrPlannerFailed):
		return http.StatusBadGateway
	case errors.Is(err, usecase.ErrArchiveDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error, turns []entity.Turn) {
	status := statusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
		message = "Internal server error"
	}
	h.writeJSON(w, status, response.ErrorResponse{Error: message, Turns: turns})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, response.ErrorResponse{Error: message})
}
