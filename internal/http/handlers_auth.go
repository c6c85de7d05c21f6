package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shubham5177/expense-tracker/internal/amqp"
	"github.com/shubham5177/expense-tracker/internal/auth"
	"github.com/shubham5177/expense-tracker/internal/log"
	"github.com/shubham5177/expense-tracker/internal/storage"
)

type signupRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  userProfile `json:"user"`
}

type userProfile struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Currency string `json:"currency"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := s.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if _, err := s.users.GetUserByEmail(r.Context(), req.Email); err == nil {
		writeError(w, http.StatusConflict, "email already registered")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.logger.ErrorContext(r.Context(), "signup lookup failed", log.FieldError, err, log.FieldEmail, req.Email)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "password hash failed", log.FieldError, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	id, err := s.users.CreateUser(r.Context(), strings.TrimSpace(req.Name), req.Email, hash)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "create user failed", log.FieldError, err, log.FieldEmail, req.Email)
		writeError(w, http.StatusInternalServerError, "could not create account")
		return
	}

	// The welcome mail is best effort: the account is already usable,
	// so a broker outage must not fail the signup.
	if s.mail != nil {
		token, err := s.tokens.GenerateEmailToken(req.Email)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "email token failed", log.FieldError, err, log.FieldEmail, req.Email)
		} else {
			msg := amqp.NewVerificationMailMessage(req.Email, req.Name, token)
			if err := s.mail.PublishVerificationMail(r.Context(), msg); err != nil {
				s.logger.ErrorContext(r.Context(), "publish verification mail failed", log.FieldError, err, log.FieldEmail, req.Email)
			}
		}
	}

	writeJSON(w, http.StatusCreated, struct {
		ID      int64  `json:"id"`
		Message string `json:"message"`
	}{ID: id, Message: "account created"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.users.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		s.logger.ErrorContext(r.Context(), "login lookup failed", log.FieldError, err, log.FieldEmail, req.Email)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	token, err := s.tokens.GenerateSessionToken(user.ID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "session token failed", log.FieldError, err, log.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token: token,
		User: userProfile{
			ID:       user.ID,
			Name:     user.Name,
			Email:    user.Email,
			Currency: user.Currency,
		},
	})
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	email, err := s.tokens.ParseEmailToken(token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid or expired verification link")
		return
	}

	if err := s.users.MarkUserVerified(r.Context(), email); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "account not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "mark verified failed", log.FieldError, err, log.FieldEmail, email)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "email verified"})
}
