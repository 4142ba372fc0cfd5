package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AlexOsinovi/Payment-Service/internal/repository"
	"github.com/AlexOsinovi/Payment-Service/internal/service"
)

// Handler содержит HTTP-обработчики query API платежей
// Зависит от service слоя, но не знает о деталях реализации (Kafka, БД)
type Handler struct {
	logger         *zap.Logger
	paymentService *service.PaymentService
}

// NewHandler создаёт новый HTTP handler
func NewHandler(logger *zap.Logger, paymentService *service.PaymentService) *Handler {
	return &Handler{
		logger:         logger,
		paymentService: paymentService,
	}
}

// paymentResponse представляет платёж в HTTP ответе
type paymentResponse struct {
	ID            string    `json:"id"`
	OrderID       int64     `json:"orderId"`
	UserID        int64     `json:"userId"`
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	PaymentAmount float64   `json:"paymentAmount"`
}

func toResponse(p repository.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		UserID:        p.UserID,
		Status:        string(p.Status),
		Timestamp:     p.Timestamp,
		PaymentAmount: p.Amount,
	}
}

func toResponses(payments []repository.Payment) []paymentResponse {
	responses := make([]paymentResponse, 0, len(payments))
	for _, p := range payments {
		responses = append(responses, toResponse(p))
	}
	return responses
}

// GetPayment обрабатывает GET /api/payments/{id}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request, id string) {
	payment, err := h.paymentService.GetPayment(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "payment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to get payment", zap.Error(err), zap.String("id", id))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toResponse(payment))
}

// GetPaymentsByOrderID обрабатывает GET /api/payments/order_id/{id}
func (h *Handler) GetPaymentsByOrderID(w http.ResponseWriter, r *http.Request, rawID string) {
	orderID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	payments, err := h.paymentService.GetPaymentsByOrderID(r.Context(), orderID)
	if err != nil {
		h.logger.Error("failed to get payments by order id", zap.Error(err), zap.Int64("order_id", orderID))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toResponses(payments))
}

// GetPaymentsByUserID обрабатывает GET /api/payments/user_id/{id}
func (h *Handler) GetPaymentsByUserID(w http.ResponseWriter, r *http.Request, rawID string) {
	userID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	payments, err := h.paymentService.GetPaymentsByUserID(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to get payments by user id", zap.Error(err), zap.Int64("user_id", userID))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toResponses(payments))
}

// GetPaymentsByStatuses обрабатывает GET /api/payments/statuses?statuses=SUCCESS,FAILED
func (h *Handler) GetPaymentsByStatuses(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("statuses")
	if raw == "" {
		http.Error(w, "statuses query parameter is required", http.StatusBadRequest)
		return
	}

	statuses := strings.Split(raw, ",")
	for i := range statuses {
		statuses[i] = strings.TrimSpace(statuses[i])
	}

	payments, err := h.paymentService.GetPaymentsByStatuses(r.Context(), statuses)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to get payments by statuses", zap.Error(err), zap.Strings("statuses", statuses))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, toResponses(payments))
}

// GetTotalAmount обрабатывает GET /api/payments/total_amount?start=...&end=...
// Границы периода в формате RFC3339
func (h *Handler) GetTotalAmount(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse(time.RFC3339, r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "invalid start date, expected RFC3339", http.StatusBadRequest)
		return
	}
	end, err := time.Parse(time.RFC3339, r.URL.Query().Get("end"))
	if err != nil {
		http.Error(w, "invalid end date, expected RFC3339", http.StatusBadRequest)
		return
	}

	total, err := h.paymentService.TotalAmountByDateRange(r.Context(), start, end)
	if err != nil {
		h.logger.Error("failed to get total amount", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, total)
}

// DeletePayment обрабатывает DELETE /api/payments/{id}
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.paymentService.DeletePayment(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			http.Error(w, "payment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to delete payment", zap.Error(err), zap.String("id", id))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeJSON сериализует ответ и устанавливает заголовки
func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}
