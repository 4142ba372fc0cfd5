package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter создаёт и настраивает HTTP роутер для Payment Service
// readiness - функция для проверки готовности сервиса (ping MongoDB).
// Если readiness возвращает false, health endpoint вернёт 503 Service Unavailable.
func NewRouter(handler *Handler, readiness func() bool) chi.Router {
	router := chi.NewRouter()

	router.Route("/api/payments", func(r chi.Router) {
		// Фиксированные пути регистрируем до параметризованного /{id}
		r.Get("/statuses", handler.GetPaymentsByStatuses)
		r.Get("/total_amount", handler.GetTotalAmount)
		r.Get("/order_id/{id}", func(w http.ResponseWriter, r *http.Request) {
			handler.GetPaymentsByOrderID(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/user_id/{id}", func(w http.ResponseWriter, r *http.Request) {
			handler.GetPaymentsByUserID(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			handler.GetPayment(w, r, chi.URLParam(r, "id"))
		})
		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			handler.DeletePayment(w, r, chi.URLParam(r, "id"))
		})
	})

	// Health endpoint для liveness/readiness проб
	router.Get("/health", healthHandler(readiness))

	return router
}

// healthHandler возвращает HTTP handler для health check endpoint
// 200 OK с {"status":"ok"} если readiness не указана или возвращает true,
// 503 Service Unavailable с {"status":"not ready"} иначе
func healthHandler(readiness func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if readiness != nil && !readiness() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "not ready"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
