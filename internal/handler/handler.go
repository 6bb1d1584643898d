package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"benefit-recommendation-api/internal/models"
	"benefit-recommendation-api/internal/service"
	"benefit-recommendation-api/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 1 << 20, // 1MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// decodeRequest decodes and bounds a recommendation request body.
func (h *Handler) decodeRequest(w http.ResponseWriter, r *http.Request) (models.RecommendRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.RecommendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return req, false
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return req, false
	}

	return req, true
}

// Recommend handles POST /recommend
func (h *Handler) Recommend(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	response, err := h.service.Recommend(r.Context(), req.User, req.Plan)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// RecommendWithNarrative handles POST /recommend/ai
func (h *Handler) RecommendWithNarrative(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	response, err := h.service.RecommendWithNarrative(r.Context(), req.User, req.Plan)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// RecommendAlternatives handles POST /recommend/alternatives
func (h *Handler) RecommendAlternatives(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	response, err := h.service.RecommendAlternatives(r.Context(), req.User, req.Plan)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// ReloadCatalog handles POST /catalog/reload
func (h *Handler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	response, err := h.service.ReloadCatalog(r.Context())
	if err != nil {
		h.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.respondJSON(w, http.StatusOK, response)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Health())
}

// respondServiceError maps service errors to status codes: input validation
// failures are client errors, everything else is a server error.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	if errors.As(err, &verr) {
		h.respondError(w, http.StatusBadRequest, verr.Error())
		return
	}
	h.respondError(w, http.StatusInternalServerError, err.Error())
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
