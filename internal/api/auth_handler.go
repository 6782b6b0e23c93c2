package api

import (
	"net/http"

	apperrors "smartparking/internal/errors"
	"smartparking/internal/service"
)

type AuthHandler struct {
	service service.AuthService
}

func NewAuthHandler(svc service.AuthService) *AuthHandler {
	return &AuthHandler{service: svc}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req); err != nil {
		apperrors.Write(w, err)
		return
	}

	token, role, err := h.service.Login(req.Email, req.Password)
	if err != nil {
		if _, ok := apperrors.KindOf(err); !ok {
			err = apperrors.ErrInvalidCreds
		}
		apperrors.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, Role: string(role)})
}
