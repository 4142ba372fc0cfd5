package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseOrderEvent(t *testing.T) {
	t.Run("valid event", func(t *testing.T) {
		value := []byte(`{"orderId":123,"userId":456,"totalAmount":100.50}`)

		event, err := parseOrderEvent(value)
		assert.NoError(t, err)
		assert.Equal(t, int64(123), event.OrderID)
		assert.Equal(t, int64(456), event.UserID)
		assert.Equal(t, 100.50, event.TotalAmount)
	})

	t.Run("missing orderId", func(t *testing.T) {
		value := []byte(`{"userId":456,"totalAmount":100.50}`)

		_, err := parseOrderEvent(value)
		assert.Error(t, err)

		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "orderId", parseErr.Field)
	})

	t.Run("missing userId", func(t *testing.T) {
		value := []byte(`{"orderId":123,"totalAmount":100.50}`)

		_, err := parseOrderEvent(value)
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "userId", parseErr.Field)
	})

	t.Run("missing totalAmount", func(t *testing.T) {
		value := []byte(`{"orderId":123,"userId":456}`)

		_, err := parseOrderEvent(value)
		var parseErr *ParseError
		assert.ErrorAs(t, err, &parseErr)
		assert.Equal(t, "totalAmount", parseErr.Field)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := parseOrderEvent([]byte(`not json`))
		assert.Error(t, err)
	})
}

// Проверяем wire-формат исходящего события: сериализованное событие
// парсится обратно без потери полей
func TestPaymentEventPayload_RoundTrip(t *testing.T) {
	original := paymentEventPayload{
		PaymentID:     "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		OrderID:       123,
		UserID:        456,
		Status:        "SUCCESS",
		PaymentAmount: 100.50,
	}

	data, err := json.Marshal(original)
	assert.NoError(t, err)

	// Имена полей фиксированы wire-контрактом
	assert.JSONEq(t, `{
		"paymentId": "f47ac10b-58cc-4372-a567-0e02b2c3d479",
		"orderId": 123,
		"userId": 456,
		"status": "SUCCESS",
		"paymentAmount": 100.50
	}`, string(data))

	var decoded paymentEventPayload
	err = json.Unmarshal(data, &decoded)
	assert.NoError(t, err)
	assert.Equal(t, original, decoded)
}
