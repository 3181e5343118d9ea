package schedule

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"fieldops/internal/api"
	"fieldops/internal/document"
)

type Handlers struct {
	Plans     *Repository
	Documents *document.Repository

	MaxInstallments int

	// Now is the clock used for projection; tests override it.
	Now func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now().UTC()
}

type putPlanRequest struct {
	InstallmentCount int    `json:"installmentCount"`
	Frequency        string `json:"frequency"`
	StartDate        string `json:"startDate"` // ISO-8601 date
}

// Put configures (or reconfigures) a payment plan against the invoice's
// total. The previous plan, if any, is replaced wholesale.
func (h Handlers) Put(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req putPlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid JSON body")
		return
	}

	freq, err := ParseFrequency(req.Frequency)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}
	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "startDate must be YYYY-MM-DD")
		return
	}

	doc, err := h.Documents.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "document not found")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if doc.Kind != document.KindInvoice {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "payment plans apply to invoices only")
		return
	}

	installments, err := Build(doc.Totals.Total, req.InstallmentCount, freq, start, h.MaxInstallments)
	if err != nil {
		var ve ValidationError
		if errors.As(err, &ve) {
			api.WriteError(w, http.StatusBadRequest, ve.Code, ve.Message)
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	plan := Plan{
		DocumentID:   doc.ID,
		Enabled:      true,
		Frequency:    freq,
		Installments: installments,
	}
	plan.NextPaymentDate = NextPaymentDate(installments)

	if err := h.Plans.Save(r.Context(), plan); err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to save plan")
		return
	}
	api.WriteJSON(w, http.StatusOK, plan)
}

// Get returns the stored plan with statuses projected at read time; nothing
// is written, overdue is always derived lazily.
func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	plan, ok, err := h.Plans.Get(r.Context(), id)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if !ok {
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "no payment plan for document")
		return
	}

	plan.Installments = Project(plan.Installments, h.now())
	api.WriteJSON(w, http.StatusOK, plan)
}

// Delete disables the plan, keeping installment history.
func (h Handlers) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.Plans.Disable(r.Context(), id); err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type recordPaymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod"`
}

func (h Handlers) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	idx, err := indexParam(r)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid installment index")
		return
	}

	var req recordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid JSON body")
		return
	}

	recorded, err := h.Plans.RecordPayment(r.Context(), id, idx, req.Amount, req.PaymentMethod, h.now())
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	// Not recorded covers disabled/absent plans and already-paid
	// installments; both are tolerated, not errors.
	api.WriteJSON(w, http.StatusOK, map[string]any{"recorded": recorded})
}

func indexParam(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil || idx < 0 {
		return 0, errors.New("invalid index")
	}
	return idx, nil
}
