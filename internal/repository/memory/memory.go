package memory

import (
	"context"
	"sync"
	"time"

	"github.com/AlexOsinovi/Payment-Service/internal/repository"
)

// MemoryRepository реализует PaymentRepository используя in-memory хранилище
// Используется для разработки и тестирования
// В production будет заменён на реализацию с MongoDB
type MemoryRepository struct {
	mu       sync.RWMutex
	payments map[string]repository.Payment // id -> payment
	byOrder  map[int64]string              // order_id -> id (уникальный "индекс")
}

// NewMemoryRepository создаёт новый in-memory репозиторий
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		payments: make(map[string]repository.Payment),
		byOrder:  make(map[int64]string),
	}
}

// Insert вставляет новый платёж
// Возвращает ErrDuplicateOrder, если платёж с таким order_id уже существует
func (r *MemoryRepository) Insert(ctx context.Context, payment repository.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byOrder[payment.OrderID]; exists {
		return repository.ErrDuplicateOrder
	}

	r.payments[payment.ID] = payment
	r.byOrder[payment.OrderID] = payment.ID
	return nil
}

// Save перезаписывает платёж по его ID
func (r *MemoryRepository) Save(ctx context.Context, payment repository.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.payments[payment.ID] = payment
	r.byOrder[payment.OrderID] = payment.ID
	return nil
}

// ExistsByOrderID проверяет наличие платежа с указанным order_id
func (r *MemoryRepository) ExistsByOrderID(ctx context.Context, orderID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.byOrder[orderID]
	return exists, nil
}

// GetByID получает платёж по ID
func (r *MemoryRepository) GetByID(ctx context.Context, id string) (repository.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, exists := r.payments[id]
	if !exists {
		return repository.Payment{}, repository.ErrNotFound
	}
	return payment, nil
}

// GetByOrderID получает платежи по order_id
func (r *MemoryRepository) GetByOrderID(ctx context.Context, orderID int64) ([]repository.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]repository.Payment, 0, 1)
	if id, exists := r.byOrder[orderID]; exists {
		result = append(result, r.payments[id])
	}
	return result, nil
}

// GetByUserID получает платежи пользователя
func (r *MemoryRepository) GetByUserID(ctx context.Context, userID int64) ([]repository.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]repository.Payment, 0)
	for _, payment := range r.payments {
		if payment.UserID == userID {
			result = append(result, payment)
		}
	}
	return result, nil
}

// GetByStatuses получает платежи с одним из указанных статусов
func (r *MemoryRepository) GetByStatuses(ctx context.Context, statuses []repository.PaymentStatus) ([]repository.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[repository.PaymentStatus]struct{}, len(statuses))
	for _, s := range statuses {
		wanted[s] = struct{}{}
	}

	result := make([]repository.Payment, 0)
	for _, payment := range r.payments {
		if _, ok := wanted[payment.Status]; ok {
			result = append(result, payment)
		}
	}
	return result, nil
}

// SumAmountByDateRange возвращает сумму платежей за период [start, end]
func (r *MemoryRepository) SumAmountByDateRange(ctx context.Context, start, end time.Time) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var total float64
	for _, payment := range r.payments {
		if !payment.Timestamp.Before(start) && !payment.Timestamp.After(end) {
			total += payment.Amount
		}
	}
	return total, nil
}

// DeleteByID удаляет платёж по ID
func (r *MemoryRepository) DeleteByID(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, exists := r.payments[id]
	if !exists {
		return repository.ErrNotFound
	}

	delete(r.payments, id)
	delete(r.byOrder, payment.OrderID)
	return nil
}
