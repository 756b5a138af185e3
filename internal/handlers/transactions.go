package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spendtrack/internal/middleware"
	"spendtrack/internal/models"
	"spendtrack/internal/storage"
)

// transactionInput is the JSON body for creating a transaction.
type transactionInput struct {
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	CategoryID  *int64    `json:"category_id"`
}

// CreateTransaction creates a transaction for the authenticated user.
func (h *Handlers) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var in transactionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Description) == "" {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "description is required")
		return
	}

	if in.CategoryID != nil {
		if _, err := h.db.GetCategory(*in.CategoryID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				middleware.WriteError(w, http.StatusUnprocessableEntity, "category does not exist")
				return
			}
			h.log.Error().Err(err).Msg("Failed to resolve category")
			middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
	}

	user := GetUserFromContext(r)
	transaction := &models.Transaction{
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Date:        in.Date,
		CategoryID:  in.CategoryID,
		UserID:      user.ID,
	}
	if err := h.db.CreateTransaction(transaction); err != nil {
		h.log.Error().Err(err).Msg("Failed to create transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, transaction)
}

// GetTransaction returns a transaction with its receipts, or 404.
func (h *Handlers) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	transaction, err := h.db.GetTransaction(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Int64("id", id).Msg("Failed to get transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, transaction)
}
