// Package api exposes the conversation service over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reclamo/reclamo/internal/auth"
	"github.com/reclamo/reclamo/internal/conversation"
	"github.com/reclamo/reclamo/internal/domain"
	"github.com/reclamo/reclamo/internal/server"
	"github.com/reclamo/reclamo/internal/storage"
	"github.com/reclamo/reclamo/internal/upstream"
)

// maxUploadBytes bounds image and audio uploads.
const maxUploadBytes = 10 << 20

type Handler struct {
	manager  *conversation.Manager
	upstream *upstream.Client
	logger   *slog.Logger
}

func NewHandler(manager *conversation.Manager, client *upstream.Client, logger *slog.Logger) *Handler {
	return &Handler{manager: manager, upstream: client, logger: logger}
}

// Mount registers the conversation routes. Everything under /v1 requires a
// bearer token; /healthz does not.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/healthz", h.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Use(server.AuthMiddleware)

		r.Post("/conversations", h.handleStart)
		r.Get("/conversations", h.handleList)
		r.Route("/conversations/{id}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Delete("/", h.handleDelete)
			r.Post("/select", h.handleSelect)
			r.Post("/messages", h.handleMessage)
			r.Post("/image", h.handleImage)
			r.Post("/voice", h.handleVoice)
		})
	})
}

// session resolves the {id} route param to a live session owned by the
// caller. Sessions belonging to other users are indistinguishable from
// missing ones.
func (h *Handler) session(r *http.Request) (*conversation.Session, error) {
	s, ok := h.manager.Get(chi.URLParam(r, "id"))
	if !ok {
		return nil, domain.NewAPIError(domain.ErrorTypeNotFound, "conversation not found")
	}
	if tok, ok := auth.TokenFromContext(r.Context()); !ok || tok.Subject != s.UserID {
		return nil, domain.NewAPIError(domain.ErrorTypeNotFound, "conversation not found")
	}
	return s, nil
}

type conversationResponse struct {
	ID       string           `json:"id"`
	Messages []domain.Message `json:"messages"`
}

type turnResponse struct {
	Messages      []domain.Message `json:"messages"`
	TicketCreated bool             `json:"ticketCreated"`
	TicketID      string           `json:"ticketId,omitempty"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	s, err := h.manager.Start(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	server.AddLogField(r.Context(), "conversation_id", s.ID)
	writeJSON(w, http.StatusCreated, conversationResponse{ID: s.ID, Messages: s.Messages()})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	if s, err := h.session(r); err == nil {
		writeJSON(w, http.StatusOK, conversationResponse{ID: s.ID, Messages: s.Messages()})
		return
	}

	// Not live; the transcript may still be on record.
	tok, _ := auth.TokenFromContext(r.Context())
	conv, err := h.manager.StoredTranscript(r.Context(), chi.URLParam(r, "id"))
	if err != nil || conv.UserID != tok.Subject {
		h.writeError(w, r, domain.NewAPIError(domain.ErrorTypeNotFound, "conversation not found"))
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tok, _ := auth.TokenFromContext(r.Context())

	limit, offset := 0, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, _ = strconv.Atoi(v)
	}

	convs, err := h.manager.List(r.Context(), tok.Subject, limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if convs == nil {
		convs = []*storage.Conversation{}
	}
	writeJSON(w, http.StatusOK, convs)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if s, err := h.session(r); err == nil {
		if err := h.manager.Close(r.Context(), s.ID); err != nil {
			h.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	// Not live; a persisted transcript is still deletable by its owner.
	tok, _ := auth.TokenFromContext(r.Context())
	id := chi.URLParam(r, "id")
	conv, err := h.manager.StoredTranscript(r.Context(), id)
	if err != nil || conv.UserID != tok.Subject {
		h.writeError(w, r, domain.NewAPIError(domain.ErrorTypeNotFound, "conversation not found"))
		return
	}
	if err := h.manager.DeleteStored(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type selectRequest struct {
	OptionID string `json:"optionId"`
	Label    string `json:"label"`
	Text     string `json:"text"`
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.NewAPIError(domain.ErrorTypeInvalidRequest, "invalid request body"))
		return
	}
	if req.OptionID == "" {
		h.writeError(w, r, domain.NewAPIError(domain.ErrorTypeInvalidRequest, "optionId is required"))
		return
	}
	if req.Label == "" {
		req.Label = req.OptionID
	}

	res, err := s.Select(r.Context(), req.OptionID, req.Label, req.Text)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeTurn(w, r, res)
}

type messageRequest struct {
	Message     string `json:"message"`
	MessageType string `json:"messageType"`
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.NewAPIError(domain.ErrorTypeInvalidRequest, "invalid request body"))
		return
	}
	if req.MessageType == "" {
		req.MessageType = "text"
	}

	res, err := s.HandleText(r.Context(), req.Message, req.MessageType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeTurn(w, r, res)
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	file, header, err := h.formFile(r, "image")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()

	res, err := s.HandleImage(r.Context(), header.Filename, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeTurn(w, r, res)
}

// handleVoice transcribes an audio clip upstream and feeds the transcript
// through the normal text path.
func (h *Handler) handleVoice(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	file, header, err := h.formFile(r, "audio")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	defer file.Close()

	transcript, err := h.upstream.Transcribe(r.Context(), header.Filename, file)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := s.HandleText(r.Context(), transcript, "voice")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeTurn(w, r, res)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) formFile(r *http.Request, field string) (multipart.File, *multipart.FileHeader, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, nil, domain.NewAPIError(domain.ErrorTypeInvalidRequest, "invalid multipart form")
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, nil, domain.NewAPIError(domain.ErrorTypeInvalidRequest, field+" file is required")
	}
	return file, header, nil
}

func (h *Handler) writeTurn(w http.ResponseWriter, r *http.Request, res conversation.Result) {
	if res.TicketCreated {
		server.AddLogField(r.Context(), "ticket_id", res.TicketID)
	}
	writeJSON(w, http.StatusOK, turnResponse{
		Messages:      res.Messages,
		TicketCreated: res.TicketCreated,
		TicketID:      res.TicketID,
	})
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	server.AddError(r.Context(), err)

	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) {
		apiErr = domain.NewAPIError(domain.ErrorTypeServer, "internal error")
	}
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			slog.String("request_id", server.GetRequestID(r.Context())),
			slog.String("error", err.Error()))
	}
	writeJSON(w, apiErr.StatusCode, errorResponse{
		Error: errorBody{Type: string(apiErr.Type), Message: apiErr.Message},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
