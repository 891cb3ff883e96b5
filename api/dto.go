/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the calculator preview endpoints and the settlement
  admin surface. These types decouple the engine's domain model from the
  external API contract.

NAMING CONVENTION:
  - *Request: request body types from clients
  - *DTO:     response types returned to clients

VALIDATION:
  Request structs carry go-playground/validator tags; handlers run the
  shared validator and answer 400 with the offending field named.

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"github.com/paca/billing-engine/billing"
	"github.com/paca/billing-engine/reconcile"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// DueDateRequest asks for the effective due date of (year, month).
type DueDateRequest struct {
	Year      int   `json:"year" validate:"required,min=2000,max=2100"`
	Month     int   `json:"month" validate:"required,min=1,max=12"`
	DueDay    int   `json:"due_day" validate:"required,min=1,max=31"`
	ClassDays []int `json:"class_days" validate:"dive,min=0,max=6"`
}

// MidSeasonFeeRequest asks for a mid-season join proration.
type MidSeasonFeeRequest struct {
	SeasonFee   int64  `json:"season_fee" validate:"min=0"`
	SeasonStart string `json:"season_start" validate:"required"`
	SeasonEnd   string `json:"season_end" validate:"required"`
	JoinDate    string `json:"join_date" validate:"required"`
	ClassDays   []int  `json:"class_days" validate:"dive,min=0,max=6"`
}

// TailFeeRequest asks for an off-season tail charge.
type TailFeeRequest struct {
	MonthlyFee   int64  `json:"monthly_fee" validate:"min=0"`
	TailEndDate  string `json:"tail_end_date" validate:"required"`
	DiscountRate int    `json:"discount_rate" validate:"min=0,max=100"`
	ClassDays    []int  `json:"class_days" validate:"dive,min=0,max=6"`
}

// SeasonTransitionRequest asks for the combined tail-plus-gap preview.
type SeasonTransitionRequest struct {
	MonthlyFee   int64  `json:"monthly_fee" validate:"min=0"`
	TailEndDate  string `json:"tail_end_date" validate:"required"`
	SeasonStart  string `json:"season_start" validate:"required"`
	DiscountRate int    `json:"discount_rate" validate:"min=0,max=100"`
	ClassDays    []int  `json:"class_days" validate:"dive,min=0,max=6"`
}

// RefundPreviewRequest asks for a season cancellation refund preview.
type RefundPreviewRequest struct {
	PaidAmount       int64  `json:"paid_amount" validate:"min=0"`
	OriginalFee      int64  `json:"original_fee" validate:"min=0"`
	SeasonStart      string `json:"season_start" validate:"required"`
	SeasonEnd        string `json:"season_end" validate:"required"`
	CancellationDate string `json:"cancellation_date" validate:"required"`
	ClassDays        []int  `json:"class_days" validate:"dive,min=0,max=6"`
	ExcludeVAT       bool   `json:"exclude_vat"`
}

// RunSettlementRequest triggers a manual settlement for a month.
type RunSettlementRequest struct {
	Year  int `json:"year" validate:"required,min=2000,max=2100"`
	Month int `json:"month" validate:"required,min=1,max=12"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// DueDateDTO is the resolved due date.
type DueDateDTO struct {
	DueDate string `json:"due_date"`
	Weekday string `json:"weekday"`
}

// TailFeeDTO wraps a tail-period result with its ISO period bounds.
type TailFeeDTO struct {
	billing.TailPeriodResult
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// TransitionDTO wraps a season-transition preview with ISO dates.
type TransitionDTO struct {
	Tail            TailFeeDTO `json:"tail"`
	GapStart        string     `json:"gap_start,omitempty"`
	GapEnd          string     `json:"gap_end,omitempty"`
	GapDays         int        `json:"gap_days"`
	SeasonStart     string     `json:"season_start"`
	NextMonthCharge int64      `json:"next_month_charge"`
}

// CreditDTO represents a carry-forward credit in API responses.
type CreditDTO struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	AcademyID   string `json:"academy_id"`
	Type        string `json:"type"`
	Amount      int64  `json:"amount"`
	Remaining   int64  `json:"remaining"`
	Status      string `json:"status"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
	Days        int    `json:"days"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// SettlementReportDTO summarizes one settlement sweep.
type SettlementReportDTO struct {
	Month             string `json:"month"`
	StudentsProcessed int    `json:"students_processed"`
	CreditsIssued     int    `json:"credits_issued"`
	TotalCredited     int64  `json:"total_credited"`
	Errors            int    `json:"errors"`
}

// SettlementRunDTO is a persisted run record.
type SettlementRunDTO struct {
	ID                string `json:"id"`
	AcademyID         string `json:"academy_id"`
	PeriodLabel       string `json:"period_label"`
	Status            string `json:"status"`
	StudentsProcessed int    `json:"students_processed"`
	CreditsIssued     int    `json:"credits_issued"`
	TotalCredited     int64  `json:"total_credited"`
	Error             string `json:"error,omitempty"`
	StartedAt         string `json:"started_at"`
	CompletedAt       string `json:"completed_at,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// MAPPERS
// =============================================================================

func toCreditDTO(c reconcile.CreditRecord) CreditDTO {
	return CreditDTO{
		ID:          c.ID,
		StudentID:   string(c.StudentID),
		AcademyID:   string(c.AcademyID),
		Type:        string(c.Type),
		Amount:      c.Amount,
		Remaining:   c.Remaining,
		Status:      string(c.Status),
		PeriodStart: c.PeriodStart.String(),
		PeriodEnd:   c.PeriodEnd.String(),
		Days:        c.Days,
		Description: c.Description,
		CreatedAt:   c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func toRunDTO(r reconcile.SettlementRun) SettlementRunDTO {
	dto := SettlementRunDTO{
		ID:                r.ID,
		AcademyID:         string(r.AcademyID),
		PeriodLabel:       r.PeriodLabel,
		Status:            r.Status,
		StudentsProcessed: r.StudentsProcessed,
		CreditsIssued:     r.CreditsIssued,
		TotalCredited:     r.TotalCredited,
		Error:             r.Error,
		StartedAt:         r.StartedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if r.CompletedAt != nil {
		dto.CompletedAt = r.CompletedAt.Format("2006-01-02T15:04:05Z07:00")
	}
	return dto
}

func toTailFeeDTO(t billing.TailPeriodResult) TailFeeDTO {
	return TailFeeDTO{
		TailPeriodResult: t,
		PeriodStart:      t.PeriodStart.String(),
		PeriodEnd:        t.PeriodEnd.String(),
	}
}
