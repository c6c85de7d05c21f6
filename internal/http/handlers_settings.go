package http

import (
	"net/http"
	"strings"

	"github.com/shubham5177/expense-tracker/internal/auth"
	"github.com/shubham5177/expense-tracker/internal/core"
	"github.com/shubham5177/expense-tracker/internal/log"
)

type updateProfileRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=6"`
}

type changeCurrencyRequest struct {
	Currency string `json:"currency" validate:"required"`
}

type deleteAccountRequest struct {
	Password string `json:"password" validate:"required"`
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request, user core.User) {
	var req updateProfileRequest
	if err := s.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "name must not be blank")
		return
	}

	if err := s.users.UpdateUserName(r.Context(), user.ID, name); err != nil {
		s.logger.ErrorContext(r.Context(), "update name failed", log.FieldError, err, log.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "could not update profile")
		return
	}

	writeJSON(w, http.StatusOK, userProfile{
		ID:       user.ID,
		Name:     name,
		Email:    user.Email,
		Currency: user.Currency,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request, user core.User) {
	var req changePasswordRequest
	if err := s.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusForbidden, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "password hash failed", log.FieldError, err, log.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if err := s.users.UpdateUserPassword(r.Context(), user.ID, hash); err != nil {
		s.logger.ErrorContext(r.Context(), "update password failed", log.FieldError, err, log.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "could not change password")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "password changed"})
}

func (s *Server) handleChangeCurrency(w http.ResponseWriter, r *http.Request, user core.User) {
	var req changeCurrencyRequest
	if err := s.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !core.ValidCurrency(req.Currency) {
		writeError(w, http.StatusUnprocessableEntity, "unsupported currency symbol")
		return
	}

	if err := s.users.UpdateUserCurrency(r.Context(), user.ID, req.Currency); err != nil {
		s.logger.ErrorContext(r.Context(), "update currency failed", log.FieldError, err, log.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "could not change currency")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "currency updated"})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request, user core.User) {
	var req deleteAccountRequest
	if err := s.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusForbidden, "password is incorrect")
		return
	}

	if err := s.users.DeleteUser(r.Context(), user.ID); err != nil {
		s.logger.ErrorContext(r.Context(), "delete account failed", log.FieldError, err, log.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "could not delete account")
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "account deleted"})
}
