package document

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
	Assembler *Assembler
	Documents *Repository
	Counters  *sequence.PGStore
	Numbers   *sequence.Allocator
}

// Preview prices a draft without persisting anything. Used by forms for live
// totals while the user edits; pricing never fails, so malformed numerics
// just contribute zero.
func (h Handlers) Preview(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid JSON body")
		return
	}

	doc := h.Assembler.Assemble(draft)
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"totals":  doc.Totals,
		"dueDate": doc.DueDate,
	})
}

func (h Handlers) Create(w http.ResponseWriter, r *http.Request) {
	var draft Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "invalid JSON body")
		return
	}
	if draft.Kind != "" {
		if _, err := ParseKind(draft.Kind); err != nil {
			api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
			return
		}
	}

	doc, err := h.Assembler.Create(r.Context(), draft)
	if err != nil {
		if errors.Is(err, sequence.ErrConcurrencyExhausted) {
			// Numbering failure blocks creation: a skipped number is worse
			// than a failed save. The caller retries.
			api.WriteError(w, http.StatusConflict, "CONCURRENCY_EXHAUSTED", "could not allocate a document number, please retry")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to create document")
		return
	}

	api.WriteJSON(w, http.StatusCreated, doc)
}

func (h Handlers) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing id")
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

	api.WriteJSON(w, http.StatusOK, doc)
}

// AllocateNumber mints the next number in a series for collaborators that
// finalize records outside this service (credit notes raised in the
// accounting tool, purchase orders). The claim commits immediately; callers
// must use the number they are given.
func (h Handlers) AllocateNumber(w http.ResponseWriter, r *http.Request) {
	series := chi.URLParam(r, "series")
	if series == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing series")
		return
	}

	n, err := h.Numbers.Allocate(r.Context(), series)
	if err != nil {
		if errors.Is(err, sequence.ErrConcurrencyExhausted) {
			api.WriteError(w, http.StatusConflict, "CONCURRENCY_EXHAUSTED", "could not allocate a number, please retry")
			return
		}
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}

	api.WriteJSON(w, http.StatusOK, n)
}

// PeekCounter reads a series' counter without allocating.
func (h Handlers) PeekCounter(w http.ResponseWriter, r *http.Request) {
	series := chi.URLParam(r, "series")
	if series == "" {
		api.WriteError(w, http.StatusBadRequest, "VALIDATION_FAILED", "missing series")
		return
	}

	c, ok, err := h.Counters.Peek(r.Context(), series)
	if err != nil {
		api.WriteError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
		return
	}
	if !ok {
		api.WriteError(w, http.StatusNotFound, "NOT_FOUND", "series has not allocated yet")
		return
	}

	api.WriteJSON(w, http.StatusOK, c)
}
