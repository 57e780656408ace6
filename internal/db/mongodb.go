package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/NuZard84/go-typerace-socket/internal/models"
)

const connectTimeout = 10 * time.Second

// SentenceStore reads race passages from MongoDB.
type SentenceStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// Connect dials MongoDB and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database, collection string) (*SentenceStore, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &SentenceStore{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// ListSentences returns up to limit random passages with a non-empty story.
func (s *SentenceStore) ListSentences(ctx context.Context, limit int) ([]models.TypingSentence, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "story", Value: bson.D{{Key: "$ne", Value: ""}}}}}},
		{{Key: "$sample", Value: bson.D{{Key: "size", Value: limit}}}},
	}

	cursor, err := s.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("sample sentences: %w", err)
	}
	defer cursor.Close(ctx)

	var sentences []models.TypingSentence
	if err := cursor.All(ctx, &sentences); err != nil {
		return nil, fmt.Errorf("decode sentences: %w", err)
	}
	return sentences, nil
}

func (s *SentenceStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
