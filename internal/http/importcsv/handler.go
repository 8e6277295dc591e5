package importcsv

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bytebank/backend/internal/auth"
	txhttp "github.com/bytebank/backend/internal/http/transaction"
	"github.com/bytebank/backend/internal/importer"
	"github.com/bytebank/backend/internal/transaction"
)

const maxUploadSize = 10 << 20

type Handler struct {
	importSvc *importer.Service
	txSvc     *transaction.Service
}

func NewHandler(importSvc *importer.Service, txSvc *transaction.Service) *Handler {
	return &Handler{importSvc: importSvc, txSvc: txSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type importResponse struct {
	Imported     int               `json:"imported"`
	Transactions []txhttp.Response `json:"transactions"`
}

func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserID(r.Context())

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	params, err := h.importSvc.Parse(file, userID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	txs, err := h.txSvc.CreateBatch(r.Context(), params)
	if err != nil {
		if errors.Is(err, transaction.ErrInvalid) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	resp := importResponse{
		Imported:     len(txs),
		Transactions: txhttp.ToResponseList(txs),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
