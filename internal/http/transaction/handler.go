package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/bytebank/backend/internal/auth"
	"github.com/bytebank/backend/internal/receipt"
	"github.com/bytebank/backend/internal/session"
	"github.com/bytebank/backend/internal/transaction"
)

const maxReceiptSize = 10 << 20 // 10 MiB

type Handler struct {
	svc      *transaction.Service
	sessions *session.Manager
	receipts receipt.Storage
}

func NewHandler(svc *transaction.Service, sessions *session.Manager, receipts receipt.Storage) *Handler {
	return &Handler{svc: svc, sessions: sessions, receipts: receipts}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/summary", h.summary)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/receipt", h.uploadReceipt)
}

type createTransactionRequest struct {
	Type        transaction.Type `json:"type"`
	Amount      int64            `json:"amount"`
	Date        time.Time        `json:"date"`
	Description string           `json:"description"`
	Category    string           `json:"category"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx, err := h.svc.Create(r.Context(), transaction.CreateParams{
		UserID:      userID,
		Type:        req.Type,
		Amount:      req.Amount,
		Date:        req.Date,
		Description: req.Description,
		Category:    req.Category,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	// Optimistic local insert; the store's snapshot is authoritative and
	// overwrites it shortly after.
	if st, ok := h.sessions.Stream(userID); ok {
		st.InsertLocal(tx)
	}

	writeJSON(w, http.StatusCreated, ToResponse(tx))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	filter := transaction.ListFilter{}

	if s := r.URL.Query().Get("type"); s != "" {
		filter.Type = new(transaction.Type(s))
	}

	if s := r.URL.Query().Get("category"); s != "" {
		filter.Category = new(s)
	}

	if s := r.URL.Query().Get("start_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.StartDate = new(t)
		}
	}

	if s := r.URL.Query().Get("end_date"); s != "" {
		if t, err := time.Parse(time.DateOnly, s); err == nil {
			filter.EndDate = new(t)
		}
	}

	txs, err := h.svc.List(r.Context(), userID, filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ToResponseList(txs))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	sum, err := h.svc.Summary(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ToSummaryResponse(sum))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.owned(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, ToResponse(tx))
}

type updateTransactionRequest struct {
	Type        *transaction.Type `json:"type,omitempty"`
	Amount      *int64            `json:"amount,omitempty"`
	Date        *time.Time        `json:"date,omitempty"`
	Description *string           `json:"description,omitempty"`
	Category    *string           `json:"category,omitempty"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.owned(w, r)
	if !ok {
		return
	}

	var req updateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	patch := transaction.Patch{
		Type:        req.Type,
		Amount:      req.Amount,
		Date:        req.Date,
		Description: req.Description,
		Category:    req.Category,
	}

	tx, err := h.svc.Update(r.Context(), existing.ID, patch)
	if err != nil {
		writeError(w, err)
		return
	}

	// Mirror the persisted values rather than the raw request: the
	// service trims description and category before storing.
	if st, ok := h.sessions.Stream(tx.UserID); ok {
		st.PatchLocal(tx.ID, transaction.Patch{
			Type:        &tx.Type,
			Amount:      &tx.Amount,
			Date:        &tx.Date,
			Description: &tx.Description,
			Category:    &tx.Category,
			ReceiptURL:  &tx.ReceiptURL,
		})
	}

	writeJSON(w, http.StatusOK, ToResponse(tx))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), tx.ID); err != nil {
		writeError(w, err)
		return
	}

	if st, ok := h.sessions.Stream(tx.UserID); ok {
		st.RemoveLocal(tx.ID)
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) uploadReceipt(w http.ResponseWriter, r *http.Request) {
	tx, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxReceiptSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	key := fmt.Sprintf("receipts/%s/%s", tx.UserID, tx.ID)

	url, err := h.receipts.Put(r.Context(), key, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.svc.AttachReceipt(r.Context(), tx.ID, url)
	if err != nil {
		writeError(w, err)
		return
	}

	if st, ok := h.sessions.Stream(tx.UserID); ok {
		st.PatchLocal(tx.ID, transaction.Patch{ReceiptURL: &url})
	}

	writeJSON(w, http.StatusOK, ToResponse(updated))
}

// owned loads the transaction from the path and rejects the request if
// it does not belong to the authenticated user. Foreign transactions
// read as 404 rather than 403 to avoid leaking their existence.
func (h *Handler) owned(w http.ResponseWriter, r *http.Request) (*transaction.Transaction, bool) {
	userID, _ := auth.UserID(r.Context())

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return nil, false
	}

	tx, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return nil, false
	}

	if tx.UserID != userID {
		http.Error(w, "transaction not found", http.StatusNotFound)
		return nil, false
	}

	return tx, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, transaction.ErrNotFound):
		http.Error(w, "transaction not found", http.StatusNotFound)
	case errors.Is(err, transaction.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
