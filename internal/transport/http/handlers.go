package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"cogscreen-service/internal/app"
	"cogscreen-service/internal/domain"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

type signupRequest struct {
	Email    string      `json:"email"`
	FullName string      `json:"fullName"`
	Role     domain.Role `json:"role"`
	Password string      `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type historyRequest struct {
	History []domain.AnsweredItem `json:"history"`
}

type nextResponse struct {
	Done         bool             `json:"done"`
	Question     *domain.Question `json:"question,omitempty"`
	Answered     int              `json:"answered"`
	MaxPerDomain int              `json:"maxPerDomain"`
}

type answerRequest struct {
	QuestionID int    `json:"qid"`
	Answer     string `json:"answer"`
}

type bookRequest struct {
	DoctorID string `json:"doctorId"`
	SlotISO  string `json:"slotIso"`
	Notes    string `json:"notes"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.accounts.Signup(r.Context(), req.Email, req.FullName, req.Role, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	u, token, err := s.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: u})
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	q, done, err := s.assessment.Next(r.Context(), id.UserID, req.History)
	if err != nil {
		writeAppError(w, err)
		return
	}
	resp := nextResponse{Done: done, Answered: len(req.History), MaxPerDomain: s.assessment.MaxPerDomain()}
	if !done {
		resp.Question = &q
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	item, err := s.assessment.Answer(r.Context(), id.UserID, req.QuestionID, req.Answer)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleFinish(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	res, err := s.assessment.Finish(r.Context(), id.UserID, req.History)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	history, err := s.assessment.Progress(r.Context(), id.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, historyRequest{History: history})
}

func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	html, err := s.assessment.Explanation(r.Context(), id.UserID, chi.URLParam(r, "id"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(html))
}

func (s *Server) handleRiskHistory(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	series, err := s.assessment.RiskHistory(r.Context(), id.UserID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.dashboard.Latest(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleDoctors(w http.ResponseWriter, r *http.Request) {
	doctors, err := s.accounts.Doctors(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doctors)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if !decode(w, r, &req) {
		return
	}
	id, _ := IdentityFrom(r.Context())
	appt, err := s.appointments.Book(r.Context(), id.UserID, req.DoctorID, req.SlotISO, req.Notes)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

func (s *Server) handleAppointments(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	appts, err := s.appointments.List(r.Context(), id.UserID, id.Role)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, appts)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeAppError maps use-case errors onto HTTP statuses.
func writeAppError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
		switch {
		case errors.Is(err, domain.ErrPredictionFailed):
			msg = domain.ErrPredictionFailed.Error()
		case errors.Is(err, domain.ErrSaveFailed):
			msg = domain.ErrSaveFailed.Error()
		default:
			msg = "internal error"
		}
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err), errors.Is(err, domain.ErrEmptyHistory):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrEmailTaken):
		return http.StatusConflict
	case app.IsNotFound(err), errors.Is(err, domain.ErrDoctorNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
