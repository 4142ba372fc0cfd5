package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/AlexOsinovi/Payment-Service/internal/repository"
)

// MockPaymentRepository реализует PaymentRepository для тестов
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Insert(ctx context.Context, payment repository.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment repository.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) ExistsByOrderID(ctx context.Context, orderID int64) (bool, error) {
	args := m.Called(ctx, orderID)
	return args.Bool(0), args.Error(1)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (repository.Payment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(repository.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID int64) ([]repository.Payment, error) {
	args := m.Called(ctx, orderID)
	return args.Get(0).([]repository.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByUserID(ctx context.Context, userID int64) ([]repository.Payment, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]repository.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByStatuses(ctx context.Context, statuses []repository.PaymentStatus) ([]repository.Payment, error) {
	args := m.Called(ctx, statuses)
	return args.Get(0).([]repository.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumAmountByDateRange(ctx context.Context, start, end time.Time) (float64, error) {
	args := m.Called(ctx, start, end)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockPaymentRepository) DeleteByID(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// RecordingPublisher записывает опубликованные события (для проверки порядка)
type RecordingPublisher struct {
	events []PaymentEvent
	err    error
}

func (p *RecordingPublisher) Publish(ctx context.Context, event PaymentEvent) error {
	p.events = append(p.events, event)
	return p.err
}

// StubOracle возвращает фиксированный статус
type StubOracle struct {
	status repository.PaymentStatus
}

func (o *StubOracle) Decide(ctx context.Context, payment repository.Payment) repository.PaymentStatus {
	return o.status
}

func newOrderEvent() OrderEvent {
	return OrderEvent{
		OrderID:     123,
		UserID:      456,
		TotalAmount: 100.50,
	}
}

func TestPaymentService_Process_Success(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	mockRepo := new(MockPaymentRepository)
	publisher := &RecordingPublisher{}
	// Oracle вернул чётное число -> SUCCESS
	svc := NewPaymentService(logger, mockRepo, publisher, &StubOracle{status: repository.StatusSuccess})

	// Phase-1: вставка со статусом CREATED
	mockRepo.On("Insert", ctx, mock.MatchedBy(func(p repository.Payment) bool {
		return p.OrderID == 123 && p.UserID == 456 && p.Amount == 100.50 &&
			p.Status == repository.StatusCreated && p.ID != "" && !p.Timestamp.IsZero()
	})).Return(nil).Once()

	// Phase-2: перезапись с терминальным статусом
	mockRepo.On("Save", ctx, mock.MatchedBy(func(p repository.Payment) bool {
		return p.OrderID == 123 && p.Status == repository.StatusSuccess
	})).Return(nil).Once()

	payment, err := svc.Process(ctx, newOrderEvent())
	assert.NoError(t, err)
	assert.Equal(t, repository.StatusSuccess, payment.Status)
	assert.Equal(t, int64(123), payment.OrderID)
	assert.Equal(t, int64(456), payment.UserID)
	assert.Equal(t, 100.50, payment.Amount)

	// Ровно два события с одним payment id: сначала CREATED, потом SUCCESS
	assert.Len(t, publisher.events, 2)
	assert.Equal(t, repository.StatusCreated, publisher.events[0].Status)
	assert.Equal(t, repository.StatusSuccess, publisher.events[1].Status)
	assert.Equal(t, publisher.events[0].PaymentID, publisher.events[1].PaymentID)
	assert.Equal(t, payment.ID, publisher.events[0].PaymentID)
	assert.Equal(t, int64(123), publisher.events[0].OrderID)
	assert.Equal(t, 100.50, publisher.events[0].Amount)

	mockRepo.AssertExpectations(t)
}

func TestPaymentService_Process_OracleFailed(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	mockRepo := new(MockPaymentRepository)
	publisher := &RecordingPublisher{}
	// Oracle недоступен или вернул нечётное число -> FAILED, но workflow завершается
	svc := NewPaymentService(logger, mockRepo, publisher, &StubOracle{status: repository.StatusFailed})

	mockRepo.On("Insert", ctx, mock.Anything).Return(nil).Once()
	mockRepo.On("Save", ctx, mock.MatchedBy(func(p repository.Payment) bool {
		return p.Status == repository.StatusFailed
	})).Return(nil).Once()

	payment, err := svc.Process(ctx, newOrderEvent())
	assert.NoError(t, err)
	assert.Equal(t, repository.StatusFailed, payment.Status)

	assert.Len(t, publisher.events, 2)
	assert.Equal(t, repository.StatusCreated, publisher.events[0].Status)
	assert.Equal(t, repository.StatusFailed, publisher.events[1].Status)

	mockRepo.AssertExpectations(t)
}

func TestPaymentService_Process_DuplicateOrder(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	mockRepo := new(MockPaymentRepository)
	publisher := &RecordingPublisher{}
	svc := NewPaymentService(logger, mockRepo, publisher, &StubOracle{status: repository.StatusSuccess})

	// Гонка redelivery: pre-check пропустил, уникальный индекс поймал
	mockRepo.On("Insert", ctx, mock.Anything).Return(repository.ErrDuplicateOrder).Once()

	_, err := svc.Process(ctx, newOrderEvent())
	assert.ErrorIs(t, err, repository.ErrDuplicateOrder)

	// Никаких событий при дубликате
	assert.Empty(t, publisher.events)

	mockRepo.AssertExpectations(t)
}

func TestPaymentService_Process_InsertError(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	mockRepo := new(MockPaymentRepository)
	publisher := &RecordingPublisher{}
	svc := NewPaymentService(logger, mockRepo, publisher, &StubOracle{status: repository.StatusSuccess})

	storeErr := errors.New("mongo unavailable")
	mockRepo.On("Insert", ctx, mock.Anything).Return(storeErr).Once()

	_, err := svc.Process(ctx, newOrderEvent())
	assert.Error(t, err)
	assert.ErrorIs(t, err, storeErr)

	// Phase-1 не прошла - ничего не публикуем
	assert.Empty(t, publisher.events)

	mockRepo.AssertExpectations(t)
}

func TestPaymentService_Process_SaveError(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	mockRepo := new(MockPaymentRepository)
	publisher := &RecordingPublisher{}
	svc := NewPaymentService(logger, mockRepo, publisher, &StubOracle{status: repository.StatusSuccess})

	storeErr := errors.New("mongo unavailable")
	mockRepo.On("Insert", ctx, mock.Anything).Return(nil).Once()
	mockRepo.On("Save", ctx, mock.Anything).Return(storeErr).Once()

	_, err := svc.Process(ctx, newOrderEvent())
	assert.Error(t, err)
	assert.ErrorIs(t, err, storeErr)

	// Только событие CREATED успело уйти
	assert.Len(t, publisher.events, 1)
	assert.Equal(t, repository.StatusCreated, publisher.events[0].Status)

	mockRepo.AssertExpectations(t)
}

func TestPaymentService_Process_PublishErrorDoesNotFail(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	mockRepo := new(MockPaymentRepository)
	// Publisher всегда падает - at-most-once gap, workflow продолжается
	publisher := &RecordingPublisher{err: errors.New("kafka unavailable")}
	svc := NewPaymentService(logger, mockRepo, publisher, &StubOracle{status: repository.StatusSuccess})

	mockRepo.On("Insert", ctx, mock.Anything).Return(nil).Once()
	mockRepo.On("Save", ctx, mock.Anything).Return(nil).Once()

	payment, err := svc.Process(ctx, newOrderEvent())
	assert.NoError(t, err)
	assert.Equal(t, repository.StatusSuccess, payment.Status)

	mockRepo.AssertExpectations(t)
}

func TestPaymentService_AlreadyProcessed(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	mockRepo := new(MockPaymentRepository)
	publisher := &RecordingPublisher{}
	svc := NewPaymentService(logger, mockRepo, publisher, &StubOracle{status: repository.StatusSuccess})

	t.Run("payment exists", func(t *testing.T) {
		mockRepo.On("ExistsByOrderID", ctx, int64(123)).Return(true, nil).Once()

		processed, err := svc.AlreadyProcessed(ctx, 123)
		assert.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("payment does not exist", func(t *testing.T) {
		mockRepo.On("ExistsByOrderID", ctx, int64(124)).Return(false, nil).Once()

		processed, err := svc.AlreadyProcessed(ctx, 124)
		assert.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("store error propagates", func(t *testing.T) {
		storeErr := errors.New("mongo unavailable")
		mockRepo.On("ExistsByOrderID", ctx, int64(125)).Return(false, storeErr).Once()

		_, err := svc.AlreadyProcessed(ctx, 125)
		assert.Error(t, err)
		assert.ErrorIs(t, err, storeErr)
	})

	mockRepo.AssertExpectations(t)
}

func TestPaymentService_GetPaymentsByStatuses_InvalidStatus(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	mockRepo := new(MockPaymentRepository)
	publisher := &RecordingPublisher{}
	svc := NewPaymentService(logger, mockRepo, publisher, &StubOracle{status: repository.StatusSuccess})

	_, err := svc.GetPaymentsByStatuses(ctx, []string{"SUCCESS", "UNKNOWN"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	// Репозиторий не должен вызываться при невалидном статусе
	mockRepo.AssertExpectations(t)
}

func TestPaymentService_GetPaymentsByStatuses(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	mockRepo := new(MockPaymentRepository)
	publisher := &RecordingPublisher{}
	svc := NewPaymentService(logger, mockRepo, publisher, &StubOracle{status: repository.StatusSuccess})

	expected := []repository.Payment{{ID: "pay-1", Status: repository.StatusSuccess}}
	mockRepo.On("GetByStatuses", ctx, []repository.PaymentStatus{
		repository.StatusSuccess,
		repository.StatusFailed,
	}).Return(expected, nil).Once()

	payments, err := svc.GetPaymentsByStatuses(ctx, []string{"SUCCESS", "FAILED"})
	assert.NoError(t, err)
	assert.Equal(t, expected, payments)

	mockRepo.AssertExpectations(t)
}
