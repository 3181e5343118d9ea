package job

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fieldops/internal/pricing"
)

type Status string

const (
	StatusScheduled  Status = "Scheduled"
	StatusInProgress Status = "InProgress"
	StatusCompleted  Status = "Completed"
	StatusInvoiced   Status = "Invoiced"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusInvoiced:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown status: %s", s)
	}
}

var allowedTransitions = map[Status]map[Status]bool{
	StatusScheduled:  {StatusInProgress: true},
	StatusInProgress: {StatusCompleted: true},
	StatusCompleted:  {StatusInProgress: true}, // reopen before invoicing
	StatusInvoiced:   {},                      // invoicing is terminal
}

func CanTransition(from, to Status) bool {
	m, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return m[to]
}

// Job is a unit of field work. Its line items are sanitized once, when the
// job is created, and reused verbatim when the job is invoiced.
type Job struct {
	ID             string             `json:"id"`
	Number         string             `json:"number"`
	SequenceValue  int64              `json:"sequenceValue"`
	Name           string             `json:"name"`
	CustomerRef    string             `json:"customerRef,omitempty"`
	Status         Status             `json:"status"`
	LineItems      []pricing.LineItem `json:"lineItems"`
	TaxRatePercent decimal.Decimal    `json:"taxRatePercent"`
	PaymentTerm    string             `json:"paymentTerm,omitempty"`
	InvoiceID      *string            `json:"invoiceId,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}
