package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/AlexOsinovi/Payment-Service/internal/repository"
)

// paymentDocument представляет документ в коллекции payments
type paymentDocument struct {
	ID        string    `bson:"_id"`
	OrderID   int64     `bson:"order_id"`
	UserID    int64     `bson:"user_id"`
	Status    string    `bson:"status"`
	Timestamp time.Time `bson:"timestamp"`
	Amount    float64   `bson:"payment_amount"`
}

// Repository реализует PaymentRepository используя MongoDB
type Repository struct {
	client *mongo.Client
	db     *mongo.Database
	col    *mongo.Collection
}

// NewRepository создаёт новый MongoDB репозиторий
// Создаёт уникальный индекс на order_id при инициализации:
// конфликт по этому индексу - сигнал дубликата вместо check-then-write
func NewRepository(client *mongo.Client, dbName string) *Repository {
	db := client.Database(dbName)
	col := db.Collection("payments")

	// Уникальный индекс на order_id гарантирует ровно один платёж на заказ
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "order_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Создаём индекс (если уже существует - игнорируем ошибку)
	_, _ = col.Indexes().CreateOne(ctx, indexModel)

	return &Repository{
		client: client,
		db:     db,
		col:    col,
	}
}

// Insert вставляет новый платёж
// Возвращает ErrDuplicateOrder при нарушении уникального индекса на order_id
func (r *Repository) Insert(ctx context.Context, payment repository.Payment) error {
	_, err := r.col.InsertOne(ctx, toDocument(payment))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrDuplicateOrder
		}
		return err
	}
	return nil
}

// Save перезаписывает платёж по его ID (insert or overwrite)
func (r *Repository) Save(ctx context.Context, payment repository.Payment) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": payment.ID}, toDocument(payment), opts)
	return err
}

// ExistsByOrderID проверяет наличие платежа с указанным order_id
func (r *Repository) ExistsByOrderID(ctx context.Context, orderID int64) (bool, error) {
	opts := options.Count().SetLimit(1)
	count, err := r.col.CountDocuments(ctx, bson.M{"order_id": orderID}, opts)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetByID получает платёж по ID
// Возвращает ErrNotFound, если платёж не найден
func (r *Repository) GetByID(ctx context.Context, id string) (repository.Payment, error) {
	var doc paymentDocument
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.Payment{}, repository.ErrNotFound
		}
		return repository.Payment{}, err
	}
	return fromDocument(doc), nil
}

// GetByOrderID получает платежи по order_id
func (r *Repository) GetByOrderID(ctx context.Context, orderID int64) ([]repository.Payment, error) {
	return r.find(ctx, bson.M{"order_id": orderID})
}

// GetByUserID получает платежи пользователя
func (r *Repository) GetByUserID(ctx context.Context, userID int64) ([]repository.Payment, error) {
	return r.find(ctx, bson.M{"user_id": userID})
}

// GetByStatuses получает платежи с одним из указанных статусов
func (r *Repository) GetByStatuses(ctx context.Context, statuses []repository.PaymentStatus) ([]repository.Payment, error) {
	values := make([]string, 0, len(statuses))
	for _, s := range statuses {
		values = append(values, string(s))
	}
	return r.find(ctx, bson.M{"status": bson.M{"$in": values}})
}

// SumAmountByDateRange возвращает сумму платежей за период [start, end]
// Использует aggregation pipeline: $match по timestamp, затем $group с $sum
func (r *Repository) SumAmountByDateRange(ctx context.Context, start, end time.Time) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"timestamp": bson.M{"$gte": start, "$lte": end},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$payment_amount"},
		}}},
	}

	cursor, err := r.col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}

	// Пустой результат - за период платежей не было
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

// DeleteByID удаляет платёж по ID
// Возвращает ErrNotFound, если платёж не найден
func (r *Repository) DeleteByID(ctx context.Context, id string) error {
	result, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// find выполняет запрос и декодирует все документы в доменные модели
func (r *Repository) find(ctx context.Context, filter bson.M) ([]repository.Payment, error) {
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []paymentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	payments := make([]repository.Payment, 0, len(docs))
	for _, doc := range docs {
		payments = append(payments, fromDocument(doc))
	}
	return payments, nil
}

// toDocument преобразует доменную модель в MongoDB документ
func toDocument(p repository.Payment) paymentDocument {
	return paymentDocument{
		ID:        p.ID,
		OrderID:   p.OrderID,
		UserID:    p.UserID,
		Status:    string(p.Status),
		Timestamp: p.Timestamp,
		Amount:    p.Amount,
	}
}

// fromDocument преобразует MongoDB документ в доменную модель
func fromDocument(doc paymentDocument) repository.Payment {
	return repository.Payment{
		ID:        doc.ID,
		OrderID:   doc.OrderID,
		UserID:    doc.UserID,
		Status:    repository.PaymentStatus(doc.Status),
		Timestamp: doc.Timestamp,
		Amount:    doc.Amount,
	}
}
