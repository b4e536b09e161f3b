package handlers

import (
	"net/http"

	"github.com/diagnosis/taskmanager/internal/domain"
)

func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, envelope{
		"success": true,
		"message": "User registered successfully",
		"token":   res.Token,
		"user":    res.User.ToUserInfo(),
	})
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Login successful",
		"token":   res.Token,
		"user":    res.User.ToUserInfo(),
	})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUser(r.Context(), userIDFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"user":    user.ToUserInfo(),
	})
}

// ForgotPassword answers the same way whether or not the account exists.
func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ForgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.authService.ForgotPassword(r.Context(), req.Email); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "If an account exists with this email, a password reset code has been sent",
	})
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req domain.ResetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.authService.ResetPassword(r.Context(), &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "Password reset successfully",
	})
}
