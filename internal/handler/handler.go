// Package handler exposes the cart engine over HTTP. Each browser
// session (X-Session-ID header) owns one engine; a valid bearer token
// on any request marks the session's actor as authenticated.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/pratofino/catering-cart/internal/domain/cart"
	"github.com/pratofino/catering-cart/internal/domain/catalog"
	"github.com/pratofino/catering-cart/internal/domain/checkout"
)

// sessionHeader carries the client-generated opaque session identifier.
const sessionHeader = "X-Session-ID"

// Handler implements the cart API endpoints.
type Handler struct {
	sessions *Sessions
	catalog  catalog.Repository
	orders   checkout.OrderAPI
	security *Security
}

// NewHandler constructs a Handler with the required collaborators.
func NewHandler(sessions *Sessions, cat catalog.Repository, orders checkout.OrderAPI, security *Security) *Handler {
	return &Handler{
		sessions: sessions,
		catalog:  cat,
		orders:   orders,
		security: security,
	}
}

// Routes returns the API router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/events/{id}/menus", h.getEventMenus)
		r.Get("/cart", h.getCart)
		r.Post("/cart/items", h.addItem)
		r.Put("/cart/items/{id}", h.updateItem)
		r.Patch("/cart/items/{id}", h.updateQuantity)
		r.Delete("/cart/items/{id}", h.removeItem)
		r.Post("/cart/open", h.openCart)
		r.Post("/checkout", h.runCheckout)
	})
	return r
}

// engine resolves the request's session engine and applies the bearer
// identity to it. It writes the error response itself and returns nil
// when the request cannot proceed.
func (h *Handler) engine(w http.ResponseWriter, r *http.Request) *cart.Engine {
	sessionID := r.Header.Get(sessionHeader)
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "cabeçalho X-Session-ID ausente", nil)
		return nil
	}

	userID, authenticated, err := h.security.Identify(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "token inválido", nil)
		return nil
	}

	engine, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		zctx.From(r.Context()).Error("Restoring session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno", nil)
		return nil
	}

	if authenticated {
		err = engine.SetIdentity(r.Context(), userID)
	} else {
		err = engine.ClearIdentity(r.Context())
	}
	if err != nil {
		zctx.From(r.Context()).Error("Applying identity failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "erro interno", nil)
		return nil
	}
	return engine
}

// errorResponse is the JSON error body. Details carries structured
// per-field or per-category information when available.
type errorResponse struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	writeJSON(w, status, errorResponse{Message: message, Details: details})
}
