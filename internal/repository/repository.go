package repository

import (
	"context"
	"errors"
	"time"
)

// PaymentStatus представляет статус платежа
type PaymentStatus string

const (
	// StatusCreated - платёж создан, терминальный статус ещё не определён
	StatusCreated PaymentStatus = "CREATED"
	// StatusSuccess - платёж успешно завершён
	StatusSuccess PaymentStatus = "SUCCESS"
	// StatusFailed - платёж отклонён
	StatusFailed PaymentStatus = "FAILED"
)

// IsValid проверяет, что статус является одним из известных значений
func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusCreated, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// Payment представляет доменную модель платежа
// Это бизнес-сущность, не привязанная к Kafka или БД
type Payment struct {
	// ID - сгенерированный uuid платежа, неизменен после создания
	ID string
	// OrderID - натуральный ключ: на один заказ существует ровно один платёж
	OrderID int64
	UserID  int64
	Status  PaymentStatus
	// Timestamp устанавливается при создании и не изменяется при обновлении статуса
	Timestamp time.Time
	Amount    float64
}

// ErrNotFound возвращается, когда платёж не найден в хранилище
var ErrNotFound = errors.New("payment not found")

// ErrDuplicateOrder возвращается при попытке вставить второй платёж
// для того же order_id (нарушение уникального индекса)
var ErrDuplicateOrder = errors.New("payment for order already exists")

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PaymentRepository --dir=. --output=./mocks --outpkg=mocks

// PaymentRepository определяет интерфейс для работы с хранилищем платежей
// Service слой зависит от этого интерфейса, а не от конкретной реализации
type PaymentRepository interface {
	// Insert атомарно вставляет новый платёж.
	// Возвращает ErrDuplicateOrder, если платёж с таким order_id уже существует.
	Insert(ctx context.Context, payment Payment) error

	// Save перезаписывает платёж по его ID (phase-2 запись терминального статуса)
	Save(ctx context.Context, payment Payment) error

	// ExistsByOrderID проверяет наличие платежа с указанным order_id
	// (idempotency check на входе consumer-а)
	ExistsByOrderID(ctx context.Context, orderID int64) (bool, error)

	// GetByID получает платёж по ID
	// Возвращает ErrNotFound, если платёж не найден
	GetByID(ctx context.Context, id string) (Payment, error)

	// GetByOrderID получает платежи по order_id
	GetByOrderID(ctx context.Context, orderID int64) ([]Payment, error)

	// GetByUserID получает платежи пользователя
	GetByUserID(ctx context.Context, userID int64) ([]Payment, error)

	// GetByStatuses получает платежи с одним из указанных статусов
	GetByStatuses(ctx context.Context, statuses []PaymentStatus) ([]Payment, error)

	// SumAmountByDateRange возвращает сумму платежей за период [start, end]
	// Возвращает 0, если платежей за период нет
	SumAmountByDateRange(ctx context.Context, start, end time.Time) (float64, error)

	// DeleteByID удаляет платёж по ID (административная операция)
	// Возвращает ErrNotFound, если платёж не найден
	DeleteByID(ctx context.Context, id string) error
}
