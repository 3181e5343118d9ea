package job

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"

	"fieldops/internal/api"
	"fieldops/internal/sequence"
)

type Handlers struct {
	Jobs    *Repository
	Service *Service
}

func (h Handlers) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Jobs.List(r.Context())
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if items == nil {
		items = []Job{}
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	j, err := h.Jobs.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	api.WriteJSON(w, http.StatusOK, j)
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid JSON body")
		return
	}
	if in.Name == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "name is required")
		return
	}

	j, err := h.Service.Create(r.Context(), in)
	if err != nil {
		if errors.Is(err, sequence.ErrConcurrencyExhausted) {
			api.WriteError(w, http.StatusConflict, "CONCURRENCY_EXHAUSTED", "could not allocate a job number, please retry")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to create job")
		return
	}
	api.WriteJSON(w, http.StatusCreated, j)
}

func (h Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid JSON body")
		return
	}
	to, err := ParseStatus(body.Status)
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	j, err := h.Service.UpdateStatus(r.Context(), id, to)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
			return
		}
		api.WriteError(w, http.StatusConflict, "INVALID_TRANSITION", err.Error())
		return
	}
	api.WriteJSON(w, http.StatusOK, j)
}

func (h Handlers) Invoice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := h.Service.Invoice(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "job not found")
		case errors.Is(err, ErrAlreadyInvoiced):
			api.WriteError(w, http.StatusConflict, "ALREADY_INVOICED", "job already has an invoice")
		case errors.Is(err, ErrNotCompleted):
			api.WriteError(w, http.StatusConflict, "NOT_COMPLETED", "only completed jobs can be invoiced")
		case errors.Is(err, sequence.ErrConcurrencyExhausted):
			api.WriteError(w, http.StatusConflict, "CONCURRENCY_EXHAUSTED", "could not allocate an invoice number, please retry")
		default:
			api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to invoice job")
		}
		return
	}
	api.WriteJSON(w, http.StatusCreated, doc)
}
