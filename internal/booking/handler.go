package booking

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"storage-marketplace/internal"
	"storage-marketplace/internal/document"
	"storage-marketplace/internal/transport"
	"storage-marketplace/pkg/logger"
)

type ServiceAPI interface {
	Create(ctx context.Context, customerID int64, req CreateBookingRequest) (*BookingResponse, error)
	AssignManually(ctx context.Context, adminID int64, req ManualAssignmentRequest) (*BookingResponse, error)
	Get(ctx context.Context, bookingID, requesterID int64, isAdmin bool) (*BookingResponse, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]*BookingResponse, error)
	RequestMeeting(ctx context.Context, bookingID, customerID, meetingID int64) (*BookingResponse, error)
	ConfirmMeeting(ctx context.Context, bookingID int64) (*BookingResponse, error)
	RejectMeeting(ctx context.Context, bookingID int64) (*BookingResponse, error)
	Cancel(ctx context.Context, bookingID, requesterID int64, isAdmin bool, reason string) (*BookingResponse, error)
	Dispatch(ctx context.Context, cmd Command) error
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

// adminCommandDTO is the wire shape of the admin action endpoint. The action
// string is translated into a typed command here and nowhere else.
type adminCommandDTO struct {
	Action         string `json:"action"`
	NotificationID int64  `json:"notification_id"`
	Reason         string `json:"reason,omitempty"`
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	customerID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("CreateBooking: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.Create(r.Context(), customerID, req)
	if err != nil {
		h.Logger.Error("CreateBooking: service error", "error", err, "customer_id", customerID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) AssignBooking(w http.ResponseWriter, r *http.Request) {
	adminID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ManualAssignmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("AssignBooking: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.AssignManually(r.Context(), adminID, req)
	if err != nil {
		h.Logger.Error("AssignBooking: service error", "error", err, "admin_id", adminID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := h.bookingIDParam(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	resp, err := h.Service.Get(r.Context(), bookingID, requesterID, h.isAdmin(r))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	customerID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resp, err := h.Service.ListByCustomer(r.Context(), customerID)
	if err != nil {
		h.Logger.Error("ListBookings: service error", "error", err, "customer_id", customerID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RequestMeeting(w http.ResponseWriter, r *http.Request) {
	customerID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := h.bookingIDParam(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	var req ScheduleMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.RequestMeeting(r.Context(), bookingID, customerID, req.MeetingID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ConfirmMeeting(w http.ResponseWriter, r *http.Request) {
	bookingID, err := h.bookingIDParam(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	resp, err := h.Service.ConfirmMeeting(r.Context(), bookingID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) RejectMeeting(w http.ResponseWriter, r *http.Request) {
	bookingID, err := h.bookingIDParam(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	resp, err := h.Service.RejectMeeting(r.Context(), bookingID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := h.bookingIDParam(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	var req CancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.Service.Cancel(r.Context(), bookingID, requesterID, h.isAdmin(r), req.Reason)
	if err != nil {
		h.Logger.Error("CancelBooking: service error", "error", err, "booking_id", bookingID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) AdminAction(w http.ResponseWriter, r *http.Request) {
	adminID, ok := internal.UserIDFromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	bookingID, err := h.bookingIDParam(r)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid booking ID")
		return
	}

	var dto adminCommandDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var cmd Command
	switch dto.Action {
	case "notify-payment":
		cmd = NotifyPaymentCommand{BookingID: bookingID, NotificationID: dto.NotificationID, AdminID: adminID}
	case "collect-payment":
		cmd = CollectPaymentCommand{BookingID: bookingID, NotificationID: dto.NotificationID, AdminID: adminID}
	case "cancel-booking":
		cmd = CancelBookingCommand{BookingID: bookingID, NotificationID: dto.NotificationID, AdminID: adminID, Reason: dto.Reason}
	default:
		h.WriteError(w, http.StatusBadRequest, "unknown action")
		return
	}

	if err := h.Service.Dispatch(r.Context(), cmd); err != nil {
		h.Logger.Error("AdminAction: command failed",
			"error", err,
			"booking_id", bookingID,
			"action", dto.Action,
			"admin_id", adminID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) bookingIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func (h *Handler) isAdmin(r *http.Request) bool {
	return internal.RoleFromContext(r.Context()) == "admin"
}

var _ document.BookingProgress = (*Service)(nil)
