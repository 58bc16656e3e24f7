package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/scrap-bidding/internal/auth"
)

type loginRequest struct {
	Phone string `json:"phone"`
	Role  string `json:"role"`
}

type verifyRequest struct {
	Phone string `json:"phone"`
	OTP   string `json:"otp"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	flow := auth.NewLoginFlow()
	if err := flow.RequestOTP(in.Phone, in.Role); err != nil {
		writeError(w, invalid(err))
		return
	}
	otp, err := s.Upstream.Login(r.Context(), flow.Phone, flow.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"step": flow.Step().String(), "otp": otp})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var in verifyRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, err)
		return
	}
	flow, err := auth.ResumeLoginFlow(in.Phone)
	if err != nil {
		writeError(w, invalid(err))
		return
	}
	if err := flow.Verify(in.OTP); err != nil {
		writeError(w, invalid(err))
		return
	}
	res, err := s.Upstream.VerifyOTP(r.Context(), flow.Phone, in.OTP)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRegister runs the whole sign-up form through the step guards before anything
// reaches the upstream API, so a half-filled form never creates an account.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	role, err := auth.ParseRole(mux.Vars(r)["role"])
	if err != nil {
		writeError(w, invalid(err))
		return
	}
	reg, err := auth.NewRegistration(role)
	if err != nil {
		writeError(w, invalid(err))
		return
	}
	if err := decodeJSON(r, &reg.Form); err != nil {
		writeError(w, err)
		return
	}
	if err := reg.Run(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error(), "step": reg.Step().String()})
		return
	}
	res, err := s.Upstream.Register(r.Context(), role, reg.Form)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
