package kafka

import (
	"encoding/json"

	"github.com/AlexOsinovi/Payment-Service/internal/service"
)

// orderEventPayload - JSON формат входящего события заказа (топик orders)
// Имена полей соответствуют wire-формату upstream системы
type orderEventPayload struct {
	OrderID     *int64   `json:"orderId"`
	UserID      *int64   `json:"userId"`
	TotalAmount *float64 `json:"totalAmount"`
}

// paymentEventPayload - JSON формат исходящего события платежа (топик payments)
type paymentEventPayload struct {
	PaymentID     string  `json:"paymentId"`
	OrderID       int64   `json:"orderId"`
	UserID        int64   `json:"userId"`
	Status        string  `json:"status"`
	PaymentAmount float64 `json:"paymentAmount"`
}

// parseOrderEvent преобразует JSON сообщение в OrderEvent
// Все три поля обязательны
func parseOrderEvent(value []byte) (service.OrderEvent, error) {
	var payload orderEventPayload
	if err := json.Unmarshal(value, &payload); err != nil {
		return service.OrderEvent{}, err
	}

	if payload.OrderID == nil {
		return service.OrderEvent{}, &ParseError{Field: "orderId", Message: "orderId is required"}
	}
	if payload.UserID == nil {
		return service.OrderEvent{}, &ParseError{Field: "userId", Message: "userId is required"}
	}
	if payload.TotalAmount == nil {
		return service.OrderEvent{}, &ParseError{Field: "totalAmount", Message: "totalAmount is required"}
	}

	return service.OrderEvent{
		OrderID:     *payload.OrderID,
		UserID:      *payload.UserID,
		TotalAmount: *payload.TotalAmount,
	}, nil
}
