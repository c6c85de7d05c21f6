package http

import (
	"net/http"

	"github.com/shubham5177/expense-tracker/internal/core"
	"github.com/shubham5177/expense-tracker/internal/log"
	"github.com/shubham5177/expense-tracker/internal/report"
)

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request, user core.User) {
	result, err := s.stats.ComputeStats(r.Context(), user.ID)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "compute stats failed", log.FieldError, err, log.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request, user core.User) {
	identity := report.Identity{
		Name:     user.Name,
		Email:    user.Email,
		Currency: user.Currency,
	}

	pdf, filename, err := s.reports.RenderMonthlyReport(r.Context(), user.ID, identity)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "render report failed", log.FieldError, err, log.FieldUserID, user.ID)
		writeError(w, http.StatusInternalServerError, "could not generate report")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
