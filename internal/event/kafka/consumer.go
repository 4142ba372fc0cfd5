package kafka

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/AlexOsinovi/Payment-Service/internal/repository"
	"github.com/AlexOsinovi/Payment-Service/internal/service"
)

// OrderProcessor определяет зависимость consumer-а от сервисного слоя
type OrderProcessor interface {
	// AlreadyProcessed проверяет, существует ли платёж для заказа
	AlreadyProcessed(ctx context.Context, orderID int64) (bool, error)
	// Process выполняет двухфазный workflow обработки заказа
	Process(ctx context.Context, event service.OrderEvent) (repository.Payment, error)
}

// DeadLetterPublisher определяет зависимость consumer-а от DLQ
type DeadLetterPublisher interface {
	Publish(ctx context.Context, originalMessage kafka.Message, originalErr error, orderID string) error
}

// OrderEventConsumer обрабатывает события заказов из Kafka
//
// Один consumer - одна последовательная lane: следующее сообщение
// не читается, пока не завершится вся цепочка обработки текущего
// (включая round trip к внешнему API). Это сохраняет порядок
// обработки внутри партиции.
type OrderEventConsumer struct {
	logger        *zap.Logger
	reader        *kafka.Reader
	processor     OrderProcessor
	dlqPublisher  DeadLetterPublisher
	maxAttempts   int
	retryInterval time.Duration
}

// NewOrderEventConsumer создаёт новый consumer для событий заказов
func NewOrderEventConsumer(
	logger *zap.Logger,
	brokers []string,
	groupID, topic string,
	processor OrderProcessor,
	dlqPublisher DeadLetterPublisher,
	maxAttempts int,
	retryInterval time.Duration,
) *OrderEventConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &OrderEventConsumer{
		logger:        logger,
		reader:        reader,
		processor:     processor,
		dlqPublisher:  dlqPublisher,
		maxAttempts:   maxAttempts,
		retryInterval: retryInterval,
	}
}

// Start запускает consumer и начинает обработку сообщений
// Использует at-least-once семантику: FetchMessage + CommitMessages после
// успешной обработки. Падение между обработкой и commit-ом даёт redelivery,
// поэтому dedup check на входе обязателен
func (c *OrderEventConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting kafka consumer",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("group_id", c.reader.Config().GroupID),
		zap.Int("max_retry_attempts", c.maxAttempts),
		zap.Duration("retry_interval", c.retryInterval),
	)

	for {
		// FetchMessage вместо ReadMessage для ручного контроля commit
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer context cancelled, stopping")
				return nil
			}
			c.logger.Error("failed to fetch message from kafka",
				zap.Error(err),
			)
			continue
		}

		shouldCommit := c.processMessage(ctx, m)

		// Коммитим offset только после успешной обработки
		if shouldCommit {
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				c.logger.Error("failed to commit message offset",
					zap.Error(err),
					zap.String("topic", m.Topic),
					zap.Int("partition", m.Partition),
					zap.Int64("offset", m.Offset),
				)
				continue
			}

			c.logger.Debug("message offset committed",
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		}
	}
}

// processMessage обрабатывает одно сообщение из Kafka
// Возвращает true, если нужно закоммитить offset
func (c *OrderEventConsumer) processMessage(ctx context.Context, m kafka.Message) bool {
	event, err := parseOrderEvent(m.Value)
	if err != nil {
		c.logger.Error("failed to parse order event",
			zap.Error(err),
			zap.String("topic", m.Topic),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
		// Ретраить бессмысленно - отправляем в DLQ и коммитим
		if dlqErr := c.dlqPublisher.Publish(context.Background(), m, err, ""); dlqErr != nil {
			c.logger.Error("failed to publish to DLQ, not committing",
				zap.Error(dlqErr),
			)
			return false
		}
		return true
	}

	c.logger.Info("received order event",
		zap.Int64("order_id", event.OrderID),
		zap.Int64("user_id", event.UserID),
		zap.Float64("total_amount", event.TotalAmount),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	success := c.handleWithRetry(ctx, event)

	if !success {
		// После исчерпания retry отправляем исходное сообщение в DLQ и коммитим
		c.logger.Error("failed to handle order event after all retries, sending to DLQ",
			zap.Int64("order_id", event.OrderID),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
		dlqErr := fmt.Errorf("exhausted all retry attempts")
		orderID := strconv.FormatInt(event.OrderID, 10)
		if err := c.dlqPublisher.Publish(context.Background(), m, dlqErr, orderID); err != nil {
			c.logger.Error("failed to publish to DLQ, not committing",
				zap.Error(err),
			)
			return false
		}
		return true
	}

	c.logger.Info("order event processed successfully",
		zap.Int64("order_id", event.OrderID),
		zap.Int("partition", m.Partition),
		zap.Int64("offset", m.Offset),
	)

	return true
}

// handleWithRetry обрабатывает событие с retry логикой
// Фиксированный интервал между попытками (политика: 3 попытки, 1 секунда)
// Возвращает true при успешной обработке, false при исчерпании попыток
func (c *OrderEventConsumer) handleWithRetry(ctx context.Context, event service.OrderEvent) bool {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			c.logger.Info("retrying order event",
				zap.Int64("order_id", event.OrderID),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", c.maxAttempts),
				zap.Duration("interval", c.retryInterval),
			)

			select {
			case <-ctx.Done():
				return false
			case <-time.After(c.retryInterval):
			}
		}

		err := c.handle(ctx, event)
		if err == nil {
			if attempt > 1 {
				c.logger.Info("order event processed successfully after retry",
					zap.Int64("order_id", event.OrderID),
					zap.Int("attempt", attempt),
				)
			}
			return true
		}

		lastErr = err
		c.logger.Warn("failed to handle order event",
			zap.Error(err),
			zap.Int64("order_id", event.OrderID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", c.maxAttempts),
		)
	}

	c.logger.Error("exhausted all retry attempts",
		zap.Error(lastErr),
		zap.Int64("order_id", event.OrderID),
		zap.Int("max_attempts", c.maxAttempts),
	)

	return false
}

// handle выполняет одну попытку обработки: dedup check, затем workflow
// Дубликат - не ошибка, а idempotent no-op
func (c *OrderEventConsumer) handle(ctx context.Context, event service.OrderEvent) error {
	processed, err := c.processor.AlreadyProcessed(ctx, event.OrderID)
	if err != nil {
		return err
	}

	if processed {
		c.logger.Info("payment for order already exists, skipping duplicate delivery",
			zap.Int64("order_id", event.OrderID),
		)
		return nil
	}

	_, err = c.processor.Process(ctx, event)
	if err != nil {
		// Гонка между pre-check и вставкой: уникальный индекс поймал дубликат,
		// событие уже обработано другой доставкой
		if errors.Is(err, repository.ErrDuplicateOrder) {
			c.logger.Info("duplicate payment caught by unique index, skipping",
				zap.Int64("order_id", event.OrderID),
			)
			return nil
		}
		return err
	}

	return nil
}

// Close закрывает Kafka reader
func (c *OrderEventConsumer) Close() error {
	c.logger.Info("closing kafka consumer")
	return c.reader.Close()
}
