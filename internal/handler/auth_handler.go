package handler

import (
	"context"
	"net/http"

	"go-auth-service/internal/middleware"
	"go-auth-service/internal/model"
	"go-auth-service/pkg/apierror"
)

type registrar interface {
	Register(ctx context.Context, req model.RegisterRequest) (model.AuthResponse, error)
}

type authenticator interface {
	Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error)
}

type passwordResetter interface {
	RequestReset(ctx context.Context, req model.PasswordResetRequest) (model.MessageResponse, error)
	ConfirmReset(ctx context.Context, req model.ConfirmResetRequest) (model.MessageResponse, error)
}

type AuthHandler struct {
	registration registrar
	auth         authenticator
	reset        passwordResetter
}

func NewAuthHandler(registration registrar, auth authenticator, reset passwordResetter) *AuthHandler {
	return &AuthHandler{registration: registration, auth: auth, reset: reset}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload model.RegisterRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	resp, err := h.registration.Register(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Login answers malformed bodies with the same 401 as bad credentials.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload model.LoginRequest
	if !decodeJSONQuiet(w, r, &payload) {
		writeError(w, r, apierror.Authentication("Invalid credentials"))
		return
	}

	resp, err := h.auth.Login(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var payload model.PasswordResetRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	resp, err := h.reset.RequestReset(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) ConfirmReset(w http.ResponseWriter, r *http.Request) {
	var payload model.ConfirmResetRequest
	if !decodeJSON(w, r, &payload) {
		return
	}

	resp, err := h.reset.ConfirmReset(r.Context(), payload)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Me reports the identity resolved by middleware.RequireAuth.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, apierror.Token("Invalid or expired token"))
		return
	}

	writeJSON(w, http.StatusOK, identity)
}
