package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"storage-marketplace/internal/booking"
	"storage-marketplace/internal/cashpayment"
	"storage-marketplace/internal/document"
	"storage-marketplace/internal/ledger"
	"storage-marketplace/internal/notification"
	"storage-marketplace/internal/transport/middleware"
	"storage-marketplace/internal/transport/swagger"
)

type Handlers struct {
	Booking      *booking.Handler
	Document     *document.Handler
	CashPayment  *cashpayment.Handler
	Ledger       *ledger.Handler
	Webhook      *ledger.WebhookHandler
	Notification *notification.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, handlers Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// gateway callback carries no end-user identity
		if handlers.Webhook != nil {
			r.Post("/payments/callback", handlers.Webhook.HandleGatewayEvent)
		}

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.Identity)

			if handlers.Booking != nil {
				pr.Route("/bookings", func(br chi.Router) {
					br.Post("/", handlers.Booking.CreateBooking)
					br.Get("/", handlers.Booking.ListBookings)
					br.Get("/{id}", handlers.Booking.GetBooking)
					br.Post("/{id}/meeting", handlers.Booking.RequestMeeting)
					br.Post("/{id}/cancel", handlers.Booking.CancelBooking)

					if handlers.Document != nil {
						br.Get("/{id}/documents", handlers.Document.ListBookingDocuments)
						br.Get("/{id}/documents/summary", handlers.Document.GetBookingDocumentSummary)
					}
					if handlers.Ledger != nil {
						br.Get("/{id}/payments", handlers.Ledger.ListBookingPayments)
					}
					if handlers.CashPayment != nil {
						br.Get("/{id}/cash-payments", handlers.CashPayment.ListByBooking)
					}

					// admin entry points into the lifecycle engine
					br.Group(func(ar chi.Router) {
						ar.Use(middleware.RequireRole("admin"))
						ar.Post("/assign", handlers.Booking.AssignBooking)
						ar.Post("/{id}/actions", handlers.Booking.AdminAction)
						ar.Patch("/{id}/meeting/confirm", handlers.Booking.ConfirmMeeting)
						ar.Patch("/{id}/meeting/reject", handlers.Booking.RejectMeeting)
					})
				})
			}

			if handlers.Document != nil {
				pr.Route("/documents", func(dr chi.Router) {
					dr.Post("/", handlers.Document.SubmitDocument)
					dr.Post("/{id}/resubmit", handlers.Document.ResubmitDocument)

					dr.Group(func(ar chi.Router) {
						ar.Use(middleware.RequireRole("admin"))
						ar.Patch("/{id}/review", handlers.Document.ReviewDocument)
					})
				})
			}

			if handlers.CashPayment != nil {
				pr.Route("/cash-payments", func(cr chi.Router) {
					cr.Post("/", handlers.CashPayment.CreateRequest)

					cr.Group(func(ar chi.Router) {
						ar.Use(middleware.RequireRole("admin"))
						ar.Patch("/{id}/approve", handlers.CashPayment.ApproveRequest)
						ar.Patch("/{id}/reject", handlers.CashPayment.RejectRequest)
					})
				})
			}

			if handlers.Notification != nil {
				pr.Get("/notifications", handlers.Notification.ListNotifications)
			}

			if handlers.Ledger != nil {
				pr.Route("/payments", func(lr chi.Router) {
					lr.Post("/checkout", handlers.Ledger.CreateCheckout)
					lr.Get("/{transactionID}", handlers.Ledger.GetEntry)
				})

				pr.Route("/payouts", func(por chi.Router) {
					por.Post("/", handlers.Ledger.RequestPayout)
					por.Get("/", handlers.Ledger.ListPayouts)
					por.Get("/balance", handlers.Ledger.GetBalance)

					por.Group(func(ar chi.Router) {
						ar.Use(middleware.RequireRole("admin"))
						ar.Patch("/{transactionID}/approve", handlers.Ledger.ApprovePayout)
						ar.Patch("/{transactionID}/reject", handlers.Ledger.RejectPayout)
					})
				})
			}
		})
	})
}
