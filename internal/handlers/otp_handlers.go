package handlers

import (
	"net/http"

	"github.com/diagnosis/taskmanager/internal/domain"
)

func (h *Handlers) SendRegistrationOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	otp, err := h.otpService.SendRegistration(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "OTP sent successfully",
		"otpId":   otp.ID,
	})
}

func (h *Handlers) SendLoginOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	otp, err := h.otpService.SendLogin(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "OTP sent successfully",
		"otpId":   otp.ID,
	})
}

func (h *Handlers) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.otpService.VerifyRequest(r.Context(), &req); err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success": true,
		"message": "OTP verified successfully",
	})
}
