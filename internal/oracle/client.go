package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AlexOsinovi/Payment-Service/internal/repository"
)

// Client запрашивает случайное число у внешнего API и преобразует его
// в терминальный статус платежа: чётное -> SUCCESS, нечётное -> FAILED.
//
// Контракт: Decide никогда не возвращает ошибку. Любой сбой транспорта,
// не-2xx ответ, пустое или нечисловое тело дают FAILED (fail-closed):
// платёж обязан достичь терминального статуса, недоступность API
// деградирует результат, но не пайплайн.
//
// Wire-контракт: тело ответа - одно целое число либо в виде plain text
// (формат random.org format=plain), либо JSON-массив с одним числом
// (исторический вариант API). Оба варианта принимаются явно.
type Client struct {
	logger  *zap.Logger
	baseURL string
	path    string
	client  *http.Client
}

// NewClient создаёт новый клиент к random API
func NewClient(logger *zap.Logger, baseURL, path string, timeout time.Duration) *Client {
	return &Client{
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
		path:    path,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Decide определяет терминальный статус платежа
func (c *Client) Decide(ctx context.Context, payment repository.Payment) repository.PaymentStatus {
	url := c.baseURL + c.path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.logger.Error("failed to create random API request",
			zap.Error(err),
			zap.String("payment_id", payment.ID),
		)
		return repository.StatusFailed
	}

	// Отправляем запрос; таймаут клиента ограничивает весь round trip
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("error calling random API",
			zap.Error(err),
			zap.String("payment_id", payment.ID),
			zap.Int64("order_id", payment.OrderID),
		)
		return repository.StatusFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Error("random API returned non-2xx status",
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", strings.TrimSpace(string(body))),
			zap.String("payment_id", payment.ID),
		)
		return repository.StatusFailed
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read random API response",
			zap.Error(err),
			zap.String("payment_id", payment.ID),
		)
		return repository.StatusFailed
	}

	// Пустое или нечисловое тело трактуем так же, как транспортную ошибку
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		c.logger.Error("empty response from random API",
			zap.String("payment_id", payment.ID),
		)
		return repository.StatusFailed
	}

	number, err := parseNumber(trimmed)
	if err != nil {
		c.logger.Error("non-numeric response from random API",
			zap.String("body", trimmed),
			zap.String("payment_id", payment.ID),
		)
		return repository.StatusFailed
	}

	c.logger.Info("received random number",
		zap.Int("number", number),
		zap.String("payment_id", payment.ID),
		zap.Int64("order_id", payment.OrderID),
	)

	if number%2 == 0 {
		return repository.StatusSuccess
	}
	return repository.StatusFailed
}

// parseNumber извлекает целое число из тела ответа
// Принимает два наблюдаемых варианта API: "42" и "[42]"
func parseNumber(body string) (int, error) {
	if strings.HasPrefix(body, "[") {
		var numbers []int
		if err := json.Unmarshal([]byte(body), &numbers); err != nil {
			return 0, err
		}
		if len(numbers) == 0 {
			return 0, errors.New("empty array in random API response")
		}
		return numbers[0], nil
	}
	return strconv.Atoi(body)
}
