package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	custommiddleware "github.com/mmeshcher/messhall-system/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса доступа к столовой.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", h.RegisterMember)
		r.Post("/payments", h.UploadPayment)
		r.Post("/mess-cuts", h.RequestMessCut)

		r.Group(func(r chi.Router) {
			r.Use(h.staffAuth.Middleware)

			r.Post("/scan", h.Scan)
			r.Get("/members/{id}/snapshot", h.Snapshot)
			r.Get("/status", h.ScannerStatus)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.adminAuth.Middleware)

			r.Post("/members/{id}/approve", h.ApproveMember)
			r.Post("/members/{id}/deny", h.DenyMember)
			r.Get("/members/{id}/qr", h.MemberQR)
			r.Post("/members/{id}/credential/rotate", h.RotateMemberCredential)
			r.Post("/credentials/rotate", h.RotateGlobalEpoch)

			r.Post("/payments/{id}/verify", h.VerifyPayment)
			r.Post("/payments/{id}/deny", h.DenyPayment)
			r.Post("/payments/{id}/mark-paid", h.MarkManualPaid)

			r.Post("/closures", h.CreateClosure)
			r.Get("/closures", h.ListClosures)

			r.Post("/staff-tokens", h.IssueStaffToken)
			r.Get("/staff-tokens", h.ListStaffTokens)
			r.Post("/staff-tokens/{id}/revoke", h.RevokeStaffToken)
			r.Post("/staff-tokens/{id}/reactivate", h.ReactivateStaffToken)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
	})

	return r
}
