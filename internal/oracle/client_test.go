package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/AlexOsinovi/Payment-Service/internal/repository"
)

func newTestPayment() repository.Payment {
	return repository.Payment{
		ID:      "pay-1",
		OrderID: 123,
		UserID:  456,
		Status:  repository.StatusCreated,
		Amount:  100.50,
	}
}

func TestClient_Decide_EvenAndOdd(t *testing.T) {
	tests := []struct {
		name string
		body string
		want repository.PaymentStatus
	}{
		{name: "even plain", body: "42", want: repository.StatusSuccess},
		{name: "even with whitespace", body: "  50  \n", want: repository.StatusSuccess},
		{name: "even json array", body: "[100]", want: repository.StatusSuccess},
		{name: "odd plain", body: "43", want: repository.StatusFailed},
		{name: "odd plain 99", body: "99", want: repository.StatusFailed},
		{name: "odd json array", body: "[1]", want: repository.StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(zap.NewNop(), server.URL, "/integers", time.Second)
			status := client.Decide(context.Background(), newTestPayment())
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestClient_Decide_FailClosed(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(""))
			},
		},
		{
			name: "whitespace only body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("   \n"))
			},
		},
		{
			name: "non-numeric body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not-a-number"))
			},
		},
		{
			name: "empty json array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("[]"))
			},
		},
		{
			name: "http 500",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "internal error", http.StatusInternalServerError)
			},
		},
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "not found", http.StatusNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(zap.NewNop(), server.URL, "/integers", time.Second)
			status := client.Decide(context.Background(), newTestPayment())
			// Любой сбой даёт FAILED, не ошибку
			assert.Equal(t, repository.StatusFailed, status)
		})
	}
}

func TestClient_Decide_Timeout(t *testing.T) {
	// Сервер отвечает дольше, чем таймаут клиента
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte("42"))
	}))
	defer server.Close()

	client := NewClient(zap.NewNop(), server.URL, "/integers", 50*time.Millisecond)
	status := client.Decide(context.Background(), newTestPayment())
	assert.Equal(t, repository.StatusFailed, status)
}

func TestClient_Decide_UnreachableServer(t *testing.T) {
	// Сервер закрыт до вызова - транспортная ошибка
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(zap.NewNop(), server.URL, "/integers", time.Second)
	status := client.Decide(context.Background(), newTestPayment())
	assert.Equal(t, repository.StatusFailed, status)
}
