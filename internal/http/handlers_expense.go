package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shubham5177/expense-tracker/internal/core"
	"github.com/shubham5177/expense-tracker/internal/log"
	"github.com/shubham5177/expense-tracker/internal/storage"
)

type expenseRequest struct {
	Title    string `json:"title" validate:"required,max=200"`
	Category string `json:"category" validate:"required,max=100"`
	Amount   string `json:"amount" validate:"required"`
	Date     string `json:"date" validate:"required"`
	Notes    string `json:"notes" validate:"max=500"`
}

type expenseResponse struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Date     string          `json:"date"`
	Notes    string          `json:"notes"`
	Created  time.Time       `json:"created_at"`
}

func toExpenseResponse(e core.Expense) expenseResponse {
	return expenseResponse{
		ID:       e.ID,
		Title:    e.Title,
		Category: e.Category,
		Amount:   e.Amount,
		Date:     string(e.Date),
		Notes:    e.Notes,
		Created:  e.CreatedAt,
	}
}

// parseExpense turns a request body into a validated core.Expense.
func parseExpense(req expenseRequest) (core.Expense, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Expense{}, err
	}
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Expense{}, err
	}
	e := core.Expense{
		Title:    strings.TrimSpace(req.Title),
		Category: strings.TrimSpace(req.Category),
		Amount:   amount,
		Date:     date,
		Notes:    strings.TrimSpace(req.Notes),
	}
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request, user core.User) {
	q := r.URL.Query()
	search := strings.TrimSpace(q.Get("search"))
	category := strings.TrimSpace(q.Get("category"))

	expenses, err := s.expenses.SearchByUser(r.Context(), user.ID, search, category)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "list expenses failed", log.FieldError, err, log.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	out := make([]expenseResponse, 0, len(expenses))
	for _, e := range expenses {
		out = append(out, toExpenseResponse(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	var req expenseRequest
	if err := s.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := parseExpense(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	e.UserID = user.ID

	id, err := s.expenses.CreateExpense(r.Context(), e)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "create expense failed", log.FieldError, err, log.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "could not save expense")
		return
	}

	created, err := s.expenses.GetExpense(r.Context(), user.ID, id)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "reload expense failed", log.FieldError, err, log.FieldExpenseID, id)
		e.ID = id
		writeJSON(w, http.StatusCreated, toExpenseResponse(e))
		return
	}
	writeJSON(w, http.StatusCreated, toExpenseResponse(created))
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	var req expenseRequest
	if err := s.decodeValid(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	e, err := parseExpense(req)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	e.ID = id
	e.UserID = user.ID

	if err := s.expenses.UpdateExpense(r.Context(), e); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "update expense failed", log.FieldError, err, log.FieldExpenseID, id)
		writeError(w, http.StatusInternalServerError, "could not update expense")
		return
	}

	updated, err := s.expenses.GetExpense(r.Context(), user.ID, id)
	if err != nil {
		writeJSON(w, http.StatusOK, toExpenseResponse(e))
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(updated))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request, user core.User) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}

	if err := s.expenses.DeleteExpense(r.Context(), user.ID, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "expense not found")
			return
		}
		s.logger.ErrorContext(r.Context(), "delete expense failed", log.FieldError, err, log.FieldExpenseID, id)
		writeError(w, http.StatusInternalServerError, "could not delete expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
