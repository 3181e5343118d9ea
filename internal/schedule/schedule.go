// Package schedule builds multi-installment payment plans and derives their
// live status.
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

func ParseFrequency(s string) (Frequency, error) {
	switch Frequency(s) {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return Frequency(s), nil
	default:
		return "", fmt.Errorf("unknown frequency: %s", s)
	}
}

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

type Installment struct {
	Index         int              `json:"index"`
	DueDate       time.Time        `json:"dueDate"`
	Amount        decimal.Decimal  `json:"amount"`
	Status        Status           `json:"status"`
	PaidAt        *time.Time       `json:"paidAt,omitempty"`
	PaidAmount    *decimal.Decimal `json:"paidAmount,omitempty"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
}

// Plan is a stored payment plan against one invoice's balance. Installments
// are fixed at creation; only status and paid fields mutate afterwards.
// Reconfiguration replaces the plan wholesale, removal disables it.
type Plan struct {
	DocumentID      string        `json:"documentId"`
	Enabled         bool          `json:"enabled"`
	Frequency       Frequency     `json:"frequency"`
	Installments    []Installment `json:"installments"`
	NextPaymentDate *time.Time    `json:"nextPaymentDate,omitempty"`
}

type ValidationError struct {
	Code    string
	Message string
}

func (e ValidationError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

const DefaultMaxInstallments = 12

const moneyScale = 2

// Build splits planTotal into count installments on the given cadence.
//
// All installments get the floor-to-cents share; the last one absorbs the
// rounding remainder so the amounts sum to planTotal exactly. Invalid
// preconditions are rejected before any computation, never as a partial
// schedule.
func Build(planTotal decimal.Decimal, count int, freq Frequency, start time.Time, maxCount int) ([]Installment, error) {
	if maxCount < 2 {
		maxCount = DefaultMaxInstallments
	}
	planTotal = planTotal.Round(moneyScale)
	if planTotal.LessThanOrEqual(decimal.Zero) {
		return nil, ValidationError{Code: "SCHEDULE_TOTAL_INVALID", Message: "plan total must be > 0"}
	}
	if count < 2 {
		return nil, ValidationError{Code: "SCHEDULE_COUNT_INVALID", Message: "at least 2 installments required"}
	}
	if count > maxCount {
		return nil, ValidationError{Code: "SCHEDULE_COUNT_INVALID", Message: fmt.Sprintf("at most %d installments allowed", maxCount)}
	}
	if start.IsZero() {
		return nil, ValidationError{Code: "SCHEDULE_START_INVALID", Message: "start date is required"}
	}
	switch freq {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
	default:
		return nil, ValidationError{Code: "SCHEDULE_FREQUENCY_INVALID", Message: "frequency must be weekly, biweekly or monthly"}
	}

	n := decimal.NewFromInt(int64(count))
	base := planTotal.Div(n).RoundDown(moneyScale)

	out := make([]Installment, count)
	for i := 0; i < count; i++ {
		amt := base
		if i == count-1 {
			amt = planTotal.Sub(base.Mul(decimal.NewFromInt(int64(count - 1)))).Round(moneyScale)
		}
		out[i] = Installment{
			Index:   i,
			DueDate: dueDate(start, freq, i),
			Amount:  amt,
			Status:  StatusPending,
		}
	}
	return out, nil
}

func dueDate(start time.Time, freq Frequency, i int) time.Time {
	switch freq {
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*i)
	case FrequencyBiweekly:
		return start.AddDate(0, 0, 14*i)
	default:
		return start.AddDate(0, i, 0)
	}
}

// Project derives the live status of a schedule at the given instant: pending
// installments past their due date become overdue, everything else passes
// through untouched. Pure and idempotent; paid installments never change.
func Project(installments []Installment, now time.Time) []Installment {
	out := make([]Installment, len(installments))
	copy(out, installments)
	for i := range out {
		if out[i].Status == StatusPending && out[i].DueDate.Before(now) {
			out[i].Status = StatusOverdue
		}
	}
	return out
}

// NextPaymentDate returns the earliest due date among unpaid installments,
// or nil when everything is paid.
func NextPaymentDate(installments []Installment) *time.Time {
	var next *time.Time
	for i := range installments {
		if installments[i].Status == StatusPaid {
			continue
		}
		d := installments[i].DueDate
		if next == nil || d.Before(*next) {
			next = &d
		}
	}
	return next
}
