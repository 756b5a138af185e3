package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"spendtrack/internal/middleware"
	"spendtrack/internal/storage"
	"spendtrack/internal/uploads"
	"spendtrack/internal/validate"
)

// maxUploadSize bounds a receipt upload (10 MiB).
const maxUploadSize = 10 << 20

// UploadReceipt stores an uploaded file and attaches it to the transaction.
// The file is written in full before the receipt row is persisted; a
// failed write aborts the request and leaves no metadata behind.
func (h *Handlers) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	transactionID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || transactionID <= 0 {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid upload")
		return
	}

	file, header, err := r.FormFile("receipt")
	if err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "receipt file is required")
		return
	}
	defer file.Close()

	upload := validate.ReceiptUpload{
		Filename:  header.Filename,
		MediaType: header.Header.Get("Content-Type"),
	}
	if err := validate.Struct(upload); err != nil {
		middleware.WriteError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	transaction, err := h.db.GetTransaction(transactionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Int64("transaction_id", transactionID).Msg("Failed to get transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	storageName, err := uploads.RandomFilename()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to generate storage filename")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if err := h.files.Write(storageName, file); err != nil {
		h.log.Error().Err(err).Str("storage_name", storageName).Msg("Failed to store receipt file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to store receipt")
		return
	}

	receipt, err := h.db.CreateReceipt(transaction, upload.Filename, storageName, upload.MediaType)
	if err != nil {
		h.log.Error().Err(err).Int64("transaction_id", transactionID).Msg("Failed to create receipt")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, receipt)
}

// DownloadReceipt streams a stored receipt back to the client under its
// original filename. A receipt owned by a different transaction than the
// URL claims is an authorization failure, not a missing resource.
func (h *Handlers) DownloadReceipt(w http.ResponseWriter, r *http.Request) {
	transactionID, err := strconv.ParseInt(r.PathValue("transactionId"), 10, 64)
	if err != nil || transactionID <= 0 {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	receiptID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || receiptID <= 0 {
		middleware.WriteError(w, http.StatusNotFound, "Receipt not found")
		return
	}

	if _, err := h.db.GetTransaction(transactionID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Int64("transaction_id", transactionID).Msg("Failed to get transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	receipt, err := h.db.GetReceiptForDownload(transactionID, receiptID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			middleware.WriteError(w, http.StatusNotFound, "Receipt not found")
		case errors.Is(err, storage.ErrReceiptMismatch):
			middleware.WriteError(w, http.StatusUnauthorized, "Receipt does not belong to this transaction")
		default:
			h.log.Error().Err(err).Int64("receipt_id", receiptID).Msg("Failed to get receipt")
			middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	stream, err := h.files.ReadStream(receipt.StorageFilename)
	if err != nil {
		h.log.Error().Err(err).Str("storage_name", receipt.StorageFilename).Msg("Failed to open receipt file")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to read receipt")
		return
	}
	defer stream.Close()

	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", receipt.Filename))
	if receipt.MediaType != "" {
		w.Header().Set("Content-Type", receipt.MediaType)
	}
	if _, err := io.Copy(w, stream); err != nil {
		h.log.Error().Err(err).Int64("receipt_id", receiptID).Msg("Failed to stream receipt")
	}
}

// DeleteReceipt is not implemented yet; the route exists so the surface is
// visible.
func (h *Handlers) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	middleware.WriteError(w, http.StatusNotImplemented, "Receipt deletion is not implemented")
}
