package shutdown

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestManager_RunsInReverseRegistrationOrder(t *testing.T) {
	mgr := New(time.Second, zap.NewNop())

	var order []string
	record := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	// Порядок создания зависимостей: хранилище первым, входящий трафик последним
	mgr.Add("store", record("store"))
	mgr.Add("publisher", record("publisher"))
	mgr.Add("consumer", record("consumer"))
	mgr.Add("http_server", record("http_server"))

	mgr.run()

	// Выполнение обратное: сначала останавливается приём, хранилище закрывается последним
	assert.Equal(t, []string{"http_server", "consumer", "publisher", "store"}, order)
}

func TestManager_ContinuesAfterFailedFunc(t *testing.T) {
	mgr := New(time.Second, zap.NewNop())

	var order []string
	mgr.Add("store", func(ctx context.Context) error {
		order = append(order, "store")
		return nil
	})
	mgr.Add("consumer", func(ctx context.Context) error {
		order = append(order, "consumer")
		return errors.New("close failed")
	})

	mgr.run()

	// Ошибка одной функции не блокирует остальные
	assert.Equal(t, []string{"consumer", "store"}, order)
}

type closeRecorder struct {
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.err
}

func TestCloseCloser(t *testing.T) {
	t.Run("closes successfully", func(t *testing.T) {
		rec := &closeRecorder{}

		err := CloseCloser(rec)(context.Background())
		assert.NoError(t, err)
		assert.True(t, rec.closed)
	})

	t.Run("propagates close error", func(t *testing.T) {
		closeErr := errors.New("close failed")
		rec := &closeRecorder{err: closeErr}

		err := CloseCloser(rec)(context.Background())
		assert.ErrorIs(t, err, closeErr)
	})
}
