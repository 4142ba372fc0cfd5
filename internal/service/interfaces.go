package service

import (
	"context"

	"github.com/AlexOsinovi/Payment-Service/internal/repository"
)

// OrderEvent представляет событие создания заказа (входящее из Kafka)
type OrderEvent struct {
	OrderID     int64
	UserID      int64
	TotalAmount float64
}

// PaymentEvent представляет событие о состоянии платежа (исходящее в Kafka)
// Проекция Payment на момент публикации: публикуется дважды,
// со статусом CREATED и с терминальным статусом
type PaymentEvent struct {
	PaymentID string
	OrderID   int64
	UserID    int64
	Status    repository.PaymentStatus
	Amount    float64
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PaymentEventPublisher --dir=. --output=./mocks --outpkg=mocks

// PaymentEventPublisher определяет интерфейс для публикации событий платежа
// Доставка асинхронная (fire-and-forget): ошибка возврата означает,
// что сообщение не удалось поставить в очередь отправки
type PaymentEventPublisher interface {
	// Publish публикует событие платежа, key = payment id
	Publish(ctx context.Context, event PaymentEvent) error
}

// StatusOracle определяет интерфейс для принятия решения о терминальном статусе
// Decide никогда не возвращает ошибку: все сбои внешнего API
// преобразуются в FAILED внутри реализации (fail-closed)
type StatusOracle interface {
	Decide(ctx context.Context, payment repository.Payment) repository.PaymentStatus
}
