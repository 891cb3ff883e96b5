/*
handlers.go - HTTP handlers for the billing engine

PURPOSE:
  Exposes the billing calculators and the settlement admin surface via
  REST. Handlers do HTTP parsing, validation, and JSON mapping only; all
  business logic lives in the billing and reconcile packages.

ENDPOINTS:
  Billing previews (pure calculators):
    POST /api/billing/due-date           Resolve a payment due date
    POST /api/billing/mid-season-fee     Mid-season join proration
    POST /api/billing/tail-fee           Off-season tail charge
    POST /api/billing/season-transition  Tail + gap preview
    POST /api/billing/refund-preview     Season cancellation refund

  Settlement admin:
    POST /api/settlements/run            Trigger a settlement sweep
    GET  /api/settlements/runs           Recent run records
    GET  /api/students/{id}/credits      A student's credits

ERROR HANDLING:
  - 400: validation errors and calculator input-shape errors, with the
         offending field named
  - 500: store failures
  Duplicate credits are NOT errors; they show up as report outcomes.

SEE ALSO:
  - dto.go: request/response structures
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/paca/billing-engine/billing"
	"github.com/paca/billing-engine/reconcile"
	"github.com/paca/billing-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds the API dependencies.
type Handler struct {
	Store     *sqlite.Store
	Scheduler *reconcile.Scheduler
	validate  *validator.Validate
}

// NewHandler creates an API handler.
func NewHandler(store *sqlite.Store, scheduler *reconcile.Scheduler) *Handler {
	return &Handler{
		Store:     store,
		Scheduler: scheduler,
		validate:  validator.New(),
	}
}

// =============================================================================
// BILLING PREVIEW ENDPOINTS
// =============================================================================

// ResolveDueDate resolves the effective due date for a billing month.
// POST /api/billing/due-date
func (h *Handler) ResolveDueDate(w http.ResponseWriter, r *http.Request) {
	var req DueDateRequest
	if !h.decode(w, r, &req) {
		return
	}

	set, ok := h.weekdaySet(w, req.ClassDays)
	if !ok {
		return
	}

	due := billing.ResolveDueDate(req.Year, time.Month(req.Month), req.DueDay, set)
	writeJSON(w, http.StatusOK, DueDateDTO{
		DueDate: due.String(),
		Weekday: due.Weekday().String(),
	})
}

// MidSeasonFee prorates a season fee for a mid-season join.
// POST /api/billing/mid-season-fee
func (h *Handler) MidSeasonFee(w http.ResponseWriter, r *http.Request) {
	var req MidSeasonFeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	set, ok := h.weekdaySet(w, req.ClassDays)
	if !ok {
		return
	}
	seasonStart, ok := h.date(w, "season_start", req.SeasonStart)
	if !ok {
		return
	}
	seasonEnd, ok := h.date(w, "season_end", req.SeasonEnd)
	if !ok {
		return
	}
	joinDate, ok := h.date(w, "join_date", req.JoinDate)
	if !ok {
		return
	}

	result, err := billing.MidSeasonJoinFee(req.SeasonFee, seasonStart, seasonEnd, joinDate, set)
	if err != nil {
		h.calcError(w, "season period", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// TailFee computes an off-season tail charge.
// POST /api/billing/tail-fee
func (h *Handler) TailFee(w http.ResponseWriter, r *http.Request) {
	var req TailFeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	set, ok := h.weekdaySet(w, req.ClassDays)
	if !ok {
		return
	}
	tailEnd, ok := h.date(w, "tail_end_date", req.TailEndDate)
	if !ok {
		return
	}

	result, err := billing.TailPeriodFee(req.MonthlyFee, set, tailEnd, req.DiscountRate)
	if err != nil {
		h.calcError(w, "tail period", err)
		return
	}
	writeJSON(w, http.StatusOK, toTailFeeDTO(result))
}

// SeasonTransition previews the tail charge plus the gap before a season.
// POST /api/billing/season-transition
func (h *Handler) SeasonTransition(w http.ResponseWriter, r *http.Request) {
	var req SeasonTransitionRequest
	if !h.decode(w, r, &req) {
		return
	}

	set, ok := h.weekdaySet(w, req.ClassDays)
	if !ok {
		return
	}
	tailEnd, ok := h.date(w, "tail_end_date", req.TailEndDate)
	if !ok {
		return
	}
	seasonStart, ok := h.date(w, "season_start", req.SeasonStart)
	if !ok {
		return
	}

	preview, err := billing.PreviewSeasonTransition(req.MonthlyFee, set, tailEnd, seasonStart, req.DiscountRate)
	if err != nil {
		h.calcError(w, "transition period", err)
		return
	}

	dto := TransitionDTO{
		Tail:            toTailFeeDTO(preview.Tail),
		SeasonStart:     preview.SeasonStart.String(),
		NextMonthCharge: preview.NextMonthCharge,
	}
	if preview.Gap != nil {
		dto.GapStart = preview.Gap.Start.String()
		dto.GapEnd = preview.Gap.End.String()
		dto.GapDays = preview.Gap.Days
	}
	writeJSON(w, http.StatusOK, dto)
}

// RefundPreview computes a season cancellation refund.
// POST /api/billing/refund-preview
func (h *Handler) RefundPreview(w http.ResponseWriter, r *http.Request) {
	var req RefundPreviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	set, ok := h.weekdaySet(w, req.ClassDays)
	if !ok {
		return
	}
	seasonStart, ok := h.date(w, "season_start", req.SeasonStart)
	if !ok {
		return
	}
	seasonEnd, ok := h.date(w, "season_end", req.SeasonEnd)
	if !ok {
		return
	}
	cancellation, ok := h.date(w, "cancellation_date", req.CancellationDate)
	if !ok {
		return
	}

	result, err := billing.SeasonRefund(req.PaidAmount, req.OriginalFee, seasonStart, seasonEnd, cancellation, set, req.ExcludeVAT)
	if err != nil {
		h.calcError(w, "refund inputs", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// =============================================================================
// SETTLEMENT ADMIN ENDPOINTS
// =============================================================================

// RunSettlement triggers a settlement sweep for a month.
// POST /api/settlements/run
func (h *Handler) RunSettlement(w http.ResponseWriter, r *http.Request) {
	var req RunSettlementRequest
	if !h.decode(w, r, &req) {
		return
	}

	month := reconcile.SettlementMonth{Year: req.Year, Month: time.Month(req.Month)}
	report, err := h.Scheduler.RunNow(r.Context(), month)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Settlement sweep failed", err)
		return
	}

	writeJSON(w, http.StatusOK, SettlementReportDTO{
		Month:             report.Month.Label(),
		StudentsProcessed: report.StudentsProcessed,
		CreditsIssued:     report.CreditsIssued,
		TotalCredited:     report.TotalCredited,
		Errors:            report.Errors,
	})
}

// ListRuns returns recent settlement run records.
// GET /api/settlements/runs?limit=N
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list settlement runs", err)
		return
	}

	dtos := make([]SettlementRunDTO, 0, len(runs))
	for _, run := range runs {
		dtos = append(dtos, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListCredits returns a student's carry-forward credits.
// GET /api/students/{id}/credits
func (h *Handler) ListCredits(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "id")

	credits, err := h.Store.ListCredits(r.Context(), reconcile.StudentID(studentID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list credits", err)
		return
	}

	dtos := make([]CreditDTO, 0, len(credits))
	for _, c := range credits {
		dtos = append(dtos, toCreditDTO(c))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Health reports liveness.
// GET /api/health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON request body. On failure it writes a
// 400 naming the offending field and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: "Validation failed",
				Field: verrs[0].Field(),
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// weekdaySet converts validated indices into a WeekdaySet.
func (h *Handler) weekdaySet(w http.ResponseWriter, days []int) (billing.WeekdaySet, bool) {
	set, err := billing.WeekdaySetOf(days)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Cannot compute",
			Field:   "class_days",
			Details: err.Error(),
		})
		return billing.WeekdaySet{}, false
	}
	return set, true
}

// date parses an ISO date field, answering 400 with the field name on failure.
func (h *Handler) date(w http.ResponseWriter, field, value string) (billing.Date, bool) {
	d, err := billing.ParseDate(value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Cannot compute",
			Field:   field,
			Details: "use YYYY-MM-DD",
		})
		return billing.Date{}, false
	}
	return d, true
}

// calcError maps calculator errors: client input problems get a 400 naming
// the field group, everything else is a 500.
func (h *Handler) calcError(w http.ResponseWriter, field string, err error) {
	if billing.IsClientError(err) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Cannot compute",
			Field:   field,
			Details: err.Error(),
		})
		return
	}
	writeError(w, http.StatusInternalServerError, "Calculation failed", err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
