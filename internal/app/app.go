package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	httpapi "github.com/AlexOsinovi/Payment-Service/internal/api/http"
	"github.com/AlexOsinovi/Payment-Service/internal/config"
	eventkafka "github.com/AlexOsinovi/Payment-Service/internal/event/kafka"
	"github.com/AlexOsinovi/Payment-Service/internal/logging"
	"github.com/AlexOsinovi/Payment-Service/internal/oracle"
	mongorepo "github.com/AlexOsinovi/Payment-Service/internal/repository/mongo"
	"github.com/AlexOsinovi/Payment-Service/internal/service"
	"github.com/AlexOsinovi/Payment-Service/internal/shutdown"
)

// App содержит все зависимости для запуска и корректного shutdown Payment Service
type App struct {
	logger        *zap.Logger
	httpServer    *http.Server
	orderConsumer *eventkafka.OrderEventConsumer
	shutdownMgr   *shutdown.Manager
	wg            sync.WaitGroup
}

// Build создаёт и настраивает все зависимости Payment Service
func Build(cfg config.Config) (*App, error) {
	const op = "app.Build"

	// Создаём logger
	logger, err := logging.New(logging.Config{
		ServiceName: "payment",
		Env:         string(cfg.AppEnv),
		Level:       os.Getenv("LOG_LEVEL"),
		Format:      os.Getenv("LOG_FORMAT"),
	})
	if err != nil {
		return nil, err
	}

	logger = logger.With(zap.String("op", op))
	logger.Info("Building Payment service",
		zap.Strings("kafka_brokers", cfg.KafkaBrokers),
		zap.String("orders_topic", cfg.OrdersTopic),
		zap.String("payments_topic", cfg.PaymentsTopic),
		zap.String("dead_orders_topic", cfg.DeadOrdersTopic),
		zap.Int("retry_max_attempts", cfg.RetryMaxAttempts),
		zap.Duration("retry_interval", cfg.RetryInterval),
	)

	// Подключаемся к MongoDB
	logger.Info("Connecting to MongoDB")
	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Проверяем подключение к MongoDB
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := mongoClient.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	logger.Info("MongoDB connection established")

	// Функция readiness для health check
	readiness := func() bool {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return mongoClient.Ping(ctx, readpref.Primary()) == nil
	}

	// Создаём MongoDB репозиторий (создаст уникальный индекс по order_id)
	paymentRepo := mongorepo.NewRepository(mongoClient, cfg.MongoDBName)

	// Клиент random.org для определения статуса платежа
	oracleClient := oracle.NewClient(logger, cfg.RandomAPIBaseURL, cfg.RandomAPIPath, cfg.RandomAPITimeout)

	// Publisher событий платежей (асинхронный)
	paymentPublisher := eventkafka.NewPaymentEventPublisher(logger, cfg.KafkaBrokers, cfg.PaymentsTopic)

	// Создаём service слой
	paymentService := service.NewPaymentService(
		logger,
		paymentRepo,
		paymentPublisher,
		oracleClient,
	)

	// Создаём DLQ publisher
	dlqPublisher := eventkafka.NewDLQPublisher(
		logger,
		cfg.KafkaBrokers,
		cfg.DeadOrdersTopic,
	)

	// Создаём Kafka consumer заказов
	orderConsumer := eventkafka.NewOrderEventConsumer(
		logger,
		cfg.KafkaBrokers,
		cfg.PaymentGroupID,
		cfg.OrdersTopic,
		paymentService,
		dlqPublisher,
		cfg.RetryMaxAttempts,
		cfg.RetryInterval,
	)

	// HTTP сервер для query API и health check
	handler := httpapi.NewHandler(logger, paymentService)
	router := httpapi.NewRouter(handler, readiness)
	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// Создаём shutdown manager
	shutdownMgr := shutdown.New(cfg.ShutdownTimeout, logger)

	// Регистрируем shutdown функции в порядке создания зависимостей:
	// Manager выполняет их в обратном порядке, поэтому сначала
	// останавливается приём (http, consumer), затем publishers,
	// и только потом отключается MongoDB
	shutdownMgr.Add("mongo_client", shutdown.DisconnectMongo(mongoClient))
	shutdownMgr.Add("payment_publisher", shutdown.CloseCloser(paymentPublisher))
	shutdownMgr.Add("dlq_publisher", shutdown.CloseCloser(dlqPublisher))
	shutdownMgr.Add("kafka_order_consumer", shutdown.CloseCloser(orderConsumer))
	shutdownMgr.Add("http_server", shutdown.ShutdownHTTPServer(httpServer))

	return &App{
		logger:        logger,
		httpServer:    httpServer,
		orderConsumer: orderConsumer,
		shutdownMgr:   shutdownMgr,
	}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	defer logging.Sync(a.logger)

	a.logger.Info("Starting Payment service")

	// Контекст для consumer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запускаем HTTP сервер в отдельной горутине
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("http server error", zap.Error(err))
		}
	}()
	a.logger.Info("HTTP server listening", zap.String("addr", a.httpServer.Addr))

	// Запускаем consumer заказов в отдельной горутине
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.orderConsumer.Start(ctx); err != nil {
			a.logger.Error("kafka order consumer error", zap.Error(err))
		}
	}()

	a.logger.Info("Kafka consumer started")

	// Ожидаем сигнал и выполняем shutdown
	a.shutdownMgr.Wait()

	// Отменяем контекст consumer
	cancel()

	// Ждём завершения всех горутин
	a.wg.Wait()

	a.logger.Info("Payment service stopped")
	return nil
}
