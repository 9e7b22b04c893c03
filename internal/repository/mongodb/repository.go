package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/goldenhour/backoffice/internal/domain/models"
)

const (
	locationsCollection    = "locations"
	modelsCollection       = "models"
	receiptsCollection     = "receipts"
	countReportsCollection = "count_reports"
	snapshotsCollection    = "stock_snapshots"
)

// MongoDBRepository is the ledger directory, persistence sink and audit store
// backed by MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{client: client, db: client.Database(dbName)}, nil
}

type modelDocument struct {
	Code      string         `bson:"_id"`
	Price     string         `bson:"price"`
	Stock     map[string]int `bson:"stock"`
	UpdatedAt time.Time      `bson:"updated_at"`
}

type receiptDocument struct {
	models.Receipt `bson:",inline"`
	Text           string `bson:"text"`
}

// Prices are stored as strings so no precision is lost to float64.
func toModelDocument(m models.Model, now time.Time) modelDocument {
	stock := make(map[string]int, len(m.Stock))
	for loc, qty := range m.Stock {
		stock[loc] = qty
	}
	return modelDocument{Code: m.Code, Price: m.Price.String(), Stock: stock, UpdatedAt: now}
}

func fromModelDocument(doc modelDocument) (models.Model, error) {
	price := decimal.Zero
	if doc.Price != "" {
		parsed, err := decimal.NewFromString(doc.Price)
		if err != nil {
			return models.Model{}, fmt.Errorf("model %s has invalid price %q: %w", doc.Code, doc.Price, err)
		}
		price = parsed
	}
	stock := doc.Stock
	if stock == nil {
		stock = map[string]int{}
	}
	return models.Model{Code: doc.Code, Price: price, Stock: stock}, nil
}

// UpsertLocation creates or renames a location.
func (r *MongoDBRepository) UpsertLocation(ctx context.Context, loc models.Location) error {
	_, err := r.db.Collection(locationsCollection).ReplaceOne(ctx, bson.M{"_id": loc.Code}, loc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert location %s: %w", loc.Code, err)
	}
	return nil
}

// ListLocations returns every location ordered by code.
func (r *MongoDBRepository) ListLocations(ctx context.Context) ([]models.Location, error) {
	cursor, err := r.db.Collection(locationsCollection).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	var locations []models.Location
	if err := cursor.All(ctx, &locations); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	return locations, nil
}

// ListModels returns every model with its per-location stock.
func (r *MongoDBRepository) ListModels(ctx context.Context) ([]models.Model, error) {
	cursor, err := r.db.Collection(modelsCollection).Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find models: %w", err)
	}
	var docs []modelDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}

	items := make([]models.Model, 0, len(docs))
	for _, doc := range docs {
		m, err := fromModelDocument(doc)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, nil
}

// PersistModel replaces the stored model. Replacing with the same state twice
// is harmless.
func (r *MongoDBRepository) PersistModel(ctx context.Context, m models.Model) error {
	doc := toModelDocument(m, time.Now().UTC())
	_, err := r.db.Collection(modelsCollection).ReplaceOne(ctx, bson.M{"_id": doc.Code}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to persist model %s: %w", m.Code, err)
	}
	return nil
}

// AppendReceipt inserts the receipt. A retried append of the same receipt id
// is treated as success; existing receipts are never rewritten.
func (r *MongoDBRepository) AppendReceipt(ctx context.Context, receipt models.Receipt) error {
	doc := receiptDocument{Receipt: receipt, Text: receipt.Text()}
	if _, err := r.db.Collection(receiptsCollection).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert receipt: %w", err)
	}
	return nil
}

// SaveCountReport inserts a finalized count report.
func (r *MongoDBRepository) SaveCountReport(ctx context.Context, report models.CountReport) error {
	if _, err := r.db.Collection(countReportsCollection).InsertOne(ctx, report); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to insert count report: %w", err)
	}
	return nil
}

// SaveStockSnapshot inserts a daily stock snapshot.
func (r *MongoDBRepository) SaveStockSnapshot(ctx context.Context, snapshot models.StockSnapshot) error {
	if _, err := r.db.Collection(snapshotsCollection).InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to insert stock snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
