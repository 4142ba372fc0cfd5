package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/AlexOsinovi/Payment-Service/internal/service"
)

// PaymentEventPublisher реализует service.PaymentEventPublisher используя Kafka
//
// Доставка асинхронная (Async writer): Publish возвращается сразу после
// постановки сообщения в очередь отправки, Completion callback логирует
// результат и не ретраит. Потеря события при сбое брокера допустима -
// хранилище остаётся источником истины.
type PaymentEventPublisher struct {
	logger *zap.Logger
	writer *kafka.Writer
	topic  string
}

// NewPaymentEventPublisher создаёт новый Kafka publisher для событий платежа
func NewPaymentEventPublisher(logger *zap.Logger, brokers []string, topic string) *PaymentEventPublisher {
	p := &PaymentEventPublisher{
		logger: logger,
		topic:  topic,
	}

	p.writer = &kafka.Writer{
		Addr: kafka.TCP(brokers...),
		// Hash balancer: key = payment id, оба события одного платежа
		// попадают в одну партицию и сохраняют относительный порядок
		Topic:      topic,
		Balancer:   &kafka.Hash{},
		Async:      true,
		Completion: p.completion,
	}

	return p
}

// Publish публикует событие платежа, key = payment id
// Возвращает ошибку только если сообщение не удалось поставить в очередь
func (p *PaymentEventPublisher) Publish(ctx context.Context, event service.PaymentEvent) error {
	payload := paymentEventPayload{
		PaymentID:     event.PaymentID,
		OrderID:       event.OrderID,
		UserID:        event.UserID,
		Status:        string(event.Status),
		PaymentAmount: event.Amount,
	}

	valueBytes, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("failed to marshal payment event",
			zap.Error(err),
			zap.String("payment_id", event.PaymentID),
		)
		return err
	}

	message := kafka.Message{
		Key:   []byte(event.PaymentID),
		Value: valueBytes,
	}

	// В async режиме WriteMessages возвращается без ожидания доставки
	if err := p.writer.WriteMessages(ctx, message); err != nil {
		p.logger.Error("failed to enqueue payment event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("payment_id", event.PaymentID),
		)
		return err
	}

	p.logger.Debug("payment event enqueued",
		zap.String("topic", p.topic),
		zap.String("payment_id", event.PaymentID),
		zap.String("status", string(event.Status)),
		zap.Int64("order_id", event.OrderID),
	)

	return nil
}

// completion вызывается writer-ом после попытки доставки
// Только логирует: publish failure - принятый at-most-once gap
func (p *PaymentEventPublisher) completion(messages []kafka.Message, err error) {
	if err != nil {
		for _, m := range messages {
			p.logger.Error("failed to deliver payment event",
				zap.Error(err),
				zap.String("topic", p.topic),
				zap.String("payment_id", string(m.Key)),
			)
		}
		return
	}

	for _, m := range messages {
		p.logger.Info("payment event delivered",
			zap.String("topic", p.topic),
			zap.String("payment_id", string(m.Key)),
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
		)
	}
}

// Close закрывает Kafka writer, дожидаясь отправки поставленных в очередь сообщений
func (p *PaymentEventPublisher) Close() error {
	p.logger.Info("closing payment event publisher")
	return p.writer.Close()
}
