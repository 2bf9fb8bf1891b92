package loaders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type stateDoc struct {
	ID        string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// MongoStore keeps one document per key in the "state" collection, with
// the namespace folded into the document id.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	namespace  string
}

func NewMongoStore(ctx context.Context, uri, database, namespace string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection("state"),
		namespace:  namespace,
	}, nil
}

func (m *MongoStore) id(key string) string {
	return m.namespace + ":" + key
}

func (m *MongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc stateDoc
	err := m.collection.FindOne(ctx, bson.M{"_id": m.id(key)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get %s: %w", key, err)
	}
	return doc.Value, nil
}

func (m *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": m.id(key)},
		bson.M{"$set": bson.M{"value": value, "updatedAt": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo set %s: %w", key, err)
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, key string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": m.id(key)}); err != nil {
		return fmt.Errorf("mongo delete %s: %w", key, err)
	}
	return nil
}

func (m *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
