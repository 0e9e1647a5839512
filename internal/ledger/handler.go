package ledger

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
	CreateCheckout(ctx context.Context, customerID int64, req CheckoutIntentRequest) (*CheckoutIntentResponse, error)
	GetEntry(ctx context.Context, transactionID string, requesterID int64, isAdmin bool) (*EntryResponse, error)
	ListBookingPayments(ctx context.Context, bookingID int64) ([]*EntryResponse, error)
	RequestPayout(ctx context.Context, ownerID, amount int64) (*EntryResponse, error)
	ApprovePayout(ctx context.Context, transactionID string, adminID int64) (*EntryResponse, error)
	RejectPayout(ctx context.Context, transactionID string, adminID int64, reason string) (*EntryResponse, error)
	OwnerBalance(ctx context.Context, ownerID int64) (*BalanceResponse, error)
	ListPayouts(ctx context.Context, ownerID int64) ([]*EntryResponse, error)
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

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	customerID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CheckoutIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreateCheckout: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.CreateCheckout(r.Context(), customerID, req)
	if err != nil {
		h.Logger.Error("CreateCheckout: service error", "error", err, "booking_id", req.BookingID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	transactionID := chi.URLParam(r, "transactionID")
	isAdmin := internal.RoleFromContext(r.Context()) == "admin"

	resp, err := h.Service.GetEntry(r.Context(), transactionID, requesterID, isAdmin)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListBookingPayments(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	resp, err := h.Service.ListBookingPayments(r.Context(), bookingID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RequestPayout(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req RequestPayoutDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.RequestPayout(r.Context(), ownerID, req.Amount)
	if err != nil {
		h.Logger.Error("RequestPayout: service error", "error", err, "owner_id", ownerID, "amount", req.Amount)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ApprovePayout(w http.ResponseWriter, r *http.Request) {
	adminID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	transactionID := chi.URLParam(r, "transactionID")
	resp, err := h.Service.ApprovePayout(r.Context(), transactionID, adminID)
	if err != nil {
		h.Logger.Error("ApprovePayout: service error", "error", err, "transaction_id", transactionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RejectPayout(w http.ResponseWriter, r *http.Request) {
	adminID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	transactionID := chi.URLParam(r, "transactionID")
	var req RejectPayoutDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.RejectPayout(r.Context(), transactionID, adminID, req.Reason)
	if err != nil {
		h.Logger.Error("RejectPayout: service error", "error", err, "transaction_id", transactionID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp, err := h.Service.OwnerBalance(r.Context(), ownerID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp, err := h.Service.ListPayouts(r.Context(), ownerID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}
