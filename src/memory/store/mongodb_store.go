package store

import (
	"context"
	"errors"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Protocol-Lattice/recall/src/memory/model"
)

// MongoStore implements Store on MongoDB. A separate counters collection
// provides the monotonic integer id sequence; ids are never reused.
type MongoStore struct {
	client            *mongo.Client
	collection        *mongo.Collection
	counterCollection *mongo.Collection
	clock             func() time.Time
}

const mongoCloseTimeout = 5 * time.Second

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if database == "" {
		return nil, errors.New("mongo database name is required")
	}
	if collection == "" {
		return nil, errors.New("mongo collection name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	db := client.Database(database)
	return &MongoStore{
		client:            client,
		collection:        db.Collection(collection),
		counterCollection: db.Collection("counters"),
		clock:             time.Now,
	}, nil
}

func (ms *MongoStore) AddMemory(ctx context.Context, content string, embedding []float32, metadata model.Metadata) (model.MemoryRecord, error) {
	if ms == nil || ms.collection == nil {
		return model.MemoryRecord{}, storageFault("add", errors.New("store is not connected"))
	}
	id, err := ms.nextID(ctx)
	if err != nil {
		return model.MemoryRecord{}, storageFault("add", err)
	}
	now := ms.clock().UTC()
	doc := mongoMemoryDocument{
		ID:        id,
		Content:   content,
		Embedding: float64Embedding(embedding),
		Metadata:  model.EncodeMetadata(metadata),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := ms.collection.InsertOne(ctx, doc); err != nil {
		return model.MemoryRecord{}, storageFault("add", err)
	}
	return doc.toRecord(), nil
}

func (ms *MongoStore) GetMemory(ctx context.Context, id int64) (model.MemoryRecord, error) {
	if ms == nil || ms.collection == nil {
		return model.MemoryRecord{}, storageFault("get", errors.New("store is not connected"))
	}
	var doc mongoMemoryDocument
	err := ms.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.MemoryRecord{}, ErrNotFound
	}
	if err != nil {
		return model.MemoryRecord{}, storageFault("get", err)
	}
	return doc.toRecord(), nil
}

func (ms *MongoStore) UpdateMemory(ctx context.Context, id int64, update Update) (model.MemoryRecord, error) {
	current, err := ms.GetMemory(ctx, id)
	if err != nil {
		return model.MemoryRecord{}, err
	}
	set := bson.M{}
	if update.Content != nil && *update.Content != current.Content {
		current.Content = *update.Content
		set["content"] = *update.Content
	}
	if update.Embedding != nil && !equalVectors(update.Embedding, current.Embedding) {
		current.Embedding = append([]float32(nil), update.Embedding...)
		set["embedding"] = float64Embedding(update.Embedding)
	}
	if update.Metadata != nil && !update.Metadata.Equal(current.Metadata) {
		current.Metadata = update.Metadata.Clone()
		set["metadata"] = model.EncodeMetadata(current.Metadata)
	}
	// UpdatedAt moves only when a field actually changed.
	if len(set) == 0 {
		return current, nil
	}
	now := ms.clock().UTC()
	set["updated_at"] = now
	if _, err := ms.collection.UpdateByID(ctx, id, bson.M{"$set": set}); err != nil {
		return model.MemoryRecord{}, storageFault("update", err)
	}
	current.UpdatedAt = now
	return current, nil
}

func (ms *MongoStore) DeleteMemory(ctx context.Context, id int64) (bool, error) {
	if ms == nil || ms.collection == nil {
		return false, storageFault("delete", errors.New("store is not connected"))
	}
	res, err := ms.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, storageFault("delete", err)
	}
	return res.DeletedCount > 0, nil
}

func (ms *MongoStore) ListMemories(ctx context.Context) ([]model.MemoryRecord, error) {
	return ms.find(ctx, bson.M{}, 0)
}

func (ms *MongoStore) SearchByContent(ctx context.Context, query string, limit int) ([]model.MemoryRecord, error) {
	if limit <= 0 {
		return nil, nil
	}
	filter := bson.M{"content": bson.M{
		"$regex": primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"},
	}}
	return ms.find(ctx, filter, int64(limit))
}

func (ms *MongoStore) find(ctx context.Context, filter bson.M, limit int64) ([]model.MemoryRecord, error) {
	if ms == nil || ms.collection == nil {
		return nil, storageFault("query", errors.New("store is not connected"))
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}
	cursor, err := ms.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, storageFault("query", err)
	}
	defer cursor.Close(ctx)
	var records []model.MemoryRecord
	for cursor.Next(ctx) {
		var doc mongoMemoryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, storageFault("query", err)
		}
		records = append(records, doc.toRecord())
	}
	if err := cursor.Err(); err != nil {
		return nil, storageFault("query", err)
	}
	return records, nil
}

func (ms *MongoStore) Count(ctx context.Context) (int, error) {
	if ms == nil || ms.collection == nil {
		return 0, storageFault("count", errors.New("store is not connected"))
	}
	count, err := ms.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, storageFault("count", err)
	}
	return int(count), nil
}

// CreateSchema ensures useful indexes exist and initializes the counter collection.
func (ms *MongoStore) CreateSchema(ctx context.Context, _ string) error {
	if ms == nil || ms.collection == nil {
		return nil
	}
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
			Options: options.Index().SetName("created_at_id"),
		},
		{
			Keys:    bson.D{{Key: "content", Value: "text"}},
			Options: options.Index().SetName("content_text"),
		},
	}
	if _, err := ms.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return err
	}
	if ms.counterCollection != nil {
		_, err := ms.counterCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "_id", Value: 1}},
			Options: options.Index().SetName("counter_id").SetUnique(true),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (ms *MongoStore) nextID(ctx context.Context) (int64, error) {
	if ms.counterCollection == nil {
		return 0, errors.New("mongo counter collection is not configured")
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	res := ms.counterCollection.FindOneAndUpdate(ctx, bson.M{"_id": ms.collection.Name()}, bson.M{"$inc": bson.M{"seq": 1}}, opts)
	if res.Err() != nil {
		return 0, res.Err()
	}
	var doc struct {
		Seq int64 `bson:"seq"`
	}
	if err := res.Decode(&doc); err != nil {
		return 0, err
	}
	return doc.Seq, nil
}

type mongoMemoryDocument struct {
	ID        int64     `bson:"_id"`
	Content   string    `bson:"content"`
	Embedding []float64 `bson:"embedding,omitempty"`
	Metadata  string    `bson:"metadata"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (doc mongoMemoryDocument) toRecord() model.MemoryRecord {
	return model.MemoryRecord{
		ID:        doc.ID,
		Content:   doc.Content,
		Embedding: float32Embedding(doc.Embedding),
		Metadata:  model.DecodeMetadata(doc.Metadata),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}

func float64Embedding(vec []float32) []float64 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	return out
}

func float32Embedding(vec []float64) []float32 {
	if len(vec) == 0 {
		return nil
	}
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

// Close releases the underlying MongoDB client.
func (ms *MongoStore) Close() error {
	if ms == nil || ms.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}
