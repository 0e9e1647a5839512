package document

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"storage-marketplace/internal"
	"storage-marketplace/internal/transport"
	"storage-marketplace/pkg/logger"
)

type ServiceAPI interface {
	Submit(ctx context.Context, customerID int64, req SubmitDocumentRequest) (*DocumentResponse, error)
	Resubmit(ctx context.Context, customerID, documentID int64) (*DocumentResponse, error)
	Review(ctx context.Context, reviewerID, documentID int64, req ReviewDocumentRequest) (*DocumentResponse, error)
	ListByBooking(bookingID int64) ([]*DocumentResponse, error)
	BookingSummary(bookingID int64) (Summary, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

func (h *Handler) SubmitDocument(w http.ResponseWriter, r *http.Request) {
	customerID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req SubmitDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.Submit(r.Context(), customerID, req)
	if err != nil {
		h.Logger.Error("SubmitDocument: service error", "error", err, "booking_id", req.BookingID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ResubmitDocument(w http.ResponseWriter, r *http.Request) {
	customerID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	resp, err := h.Service.Resubmit(r.Context(), customerID, documentID)
	if err != nil {
		h.Logger.Error("ResubmitDocument: service error", "error", err, "document_id", documentID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ReviewDocument(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	documentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid document ID")
		return
	}

	var req ReviewDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.Review(r.Context(), reviewerID, documentID, req)
	if err != nil {
		h.Logger.Error("ReviewDocument: service error", "error", err, "document_id", documentID, "decision", req.Decision)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListBookingDocuments(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	resp, err := h.Service.ListByBooking(bookingID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetBookingDocumentSummary(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	summary, err := h.Service.BookingSummary(bookingID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}
