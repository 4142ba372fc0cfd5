package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/AlexOsinovi/Payment-Service/internal/repository"
)

// ErrInvalidStatus возвращается при запросе платежей с неизвестным статусом
var ErrInvalidStatus = errors.New("invalid payment status")

// PaymentService содержит бизнес-логику обработки платежей
// Process реализует двухфазный workflow: платёж сначала сохраняется
// и публикуется со статусом CREATED, затем - с терминальным статусом
type PaymentService struct {
	logger    *zap.Logger
	repo      repository.PaymentRepository
	publisher PaymentEventPublisher
	oracle    StatusOracle
}

// NewPaymentService создаёт новый экземпляр PaymentService
func NewPaymentService(
	logger *zap.Logger,
	repo repository.PaymentRepository,
	publisher PaymentEventPublisher,
	oracle StatusOracle,
) *PaymentService {
	return &PaymentService{
		logger:    logger,
		repo:      repo,
		publisher: publisher,
		oracle:    oracle,
	}
}

// AlreadyProcessed проверяет, существует ли платёж для указанного заказа
// (idempotency check: заказ с существующим платежом - дубликат доставки)
func (s *PaymentService) AlreadyProcessed(ctx context.Context, orderID int64) (bool, error) {
	exists, err := s.repo.ExistsByOrderID(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("failed to check payment existence: %w", err)
	}
	return exists, nil
}

// Process превращает событие заказа в финализированный платёж.
//
// Двухфазный status commit:
//  1. Вставляем платёж со статусом CREATED (phase-1 запись)
//  2. Публикуем событие CREATED
//  3. Синхронно запрашиваем терминальный статус у oracle
//  4. Обновляем тот же документ терминальным статусом (phase-2 запись)
//  5. Публикуем событие с терминальным статусом
//
// Возвращает ошибку только при сбое хранилища. Oracle не может провалить
// обработку (fail-closed -> FAILED). Ошибки публикации логируются и не
// прерывают workflow: хранилище остаётся источником истины.
// При конфликте по order_id возвращает repository.ErrDuplicateOrder.
func (s *PaymentService) Process(ctx context.Context, event OrderEvent) (repository.Payment, error) {
	payment := repository.Payment{
		ID:        uuid.New().String(),
		OrderID:   event.OrderID,
		UserID:    event.UserID,
		Status:    repository.StatusCreated,
		Timestamp: time.Now().UTC(),
		Amount:    event.TotalAmount,
	}

	// Phase-1: вставка с атомарной проверкой уникальности order_id.
	// Конфликт индекса - сигнал дубликата при гонке redelivery,
	// которую пропустил pre-check consumer-а
	if err := s.repo.Insert(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrder) {
			s.logger.Info("payment for order already exists, skipping",
				zap.Int64("order_id", event.OrderID),
			)
			return repository.Payment{}, repository.ErrDuplicateOrder
		}
		return repository.Payment{}, fmt.Errorf("failed to insert payment: %w", err)
	}

	s.logger.Info("payment created",
		zap.String("payment_id", payment.ID),
		zap.Int64("order_id", payment.OrderID),
		zap.Int64("user_id", payment.UserID),
		zap.Float64("amount", payment.Amount),
	)

	// Downstream видит "платёж принят" до завершения (возможно медленного)
	// решения о статусе
	s.publishEvent(ctx, payment)

	// Oracle блокирует lane до ответа, это сохраняет порядок публикаций
	payment.Status = s.oracle.Decide(ctx, payment)

	// Phase-2: перезапись того же документа терминальным статусом.
	// Timestamp не изменяется
	if err := s.repo.Save(ctx, payment); err != nil {
		return repository.Payment{}, fmt.Errorf("failed to save payment status: %w", err)
	}

	s.logger.Info("payment finalized",
		zap.String("payment_id", payment.ID),
		zap.Int64("order_id", payment.OrderID),
		zap.String("status", string(payment.Status)),
	)

	s.publishEvent(ctx, payment)

	return payment, nil
}

// publishEvent публикует проекцию платежа
// Ошибка публикации логируется и не прерывает обработку (at-most-once)
func (s *PaymentService) publishEvent(ctx context.Context, payment repository.Payment) {
	event := PaymentEvent{
		PaymentID: payment.ID,
		OrderID:   payment.OrderID,
		UserID:    payment.UserID,
		Status:    payment.Status,
		Amount:    payment.Amount,
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish payment event",
			zap.Error(err),
			zap.String("payment_id", payment.ID),
			zap.String("status", string(payment.Status)),
		)
	}
}

// GetPayment получает платёж по ID
func (s *PaymentService) GetPayment(ctx context.Context, id string) (repository.Payment, error) {
	return s.repo.GetByID(ctx, id)
}

// GetPaymentsByOrderID получает платежи по ID заказа
func (s *PaymentService) GetPaymentsByOrderID(ctx context.Context, orderID int64) ([]repository.Payment, error) {
	return s.repo.GetByOrderID(ctx, orderID)
}

// GetPaymentsByUserID получает платежи пользователя
func (s *PaymentService) GetPaymentsByUserID(ctx context.Context, userID int64) ([]repository.Payment, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// GetPaymentsByStatuses получает платежи с одним из указанных статусов
// Возвращает ErrInvalidStatus при неизвестном значении статуса
func (s *PaymentService) GetPaymentsByStatuses(ctx context.Context, statuses []string) ([]repository.Payment, error) {
	parsed := make([]repository.PaymentStatus, 0, len(statuses))
	for _, raw := range statuses {
		status := repository.PaymentStatus(raw)
		if !status.IsValid() {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, raw)
		}
		parsed = append(parsed, status)
	}
	return s.repo.GetByStatuses(ctx, parsed)
}

// TotalAmountByDateRange возвращает сумму платежей за период
func (s *PaymentService) TotalAmountByDateRange(ctx context.Context, start, end time.Time) (float64, error) {
	return s.repo.SumAmountByDateRange(ctx, start, end)
}

// DeletePayment удаляет платёж по ID (административная операция,
// пайплайн платежи не удаляет)
func (s *PaymentService) DeletePayment(ctx context.Context, id string) error {
	return s.repo.DeleteByID(ctx, id)
}
