package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/KunBoy5240/chatgpt-on-wechat/pkg/domain"
)

const (
	generationsCollection = "generations"
	mongoOpTimeout        = 5 * time.Second
)

type generationDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	SessionID string             `bson:"session_id"`
	Params    bson.M             `bson:"params"`
	ResultURL string             `bson:"result_url"`
	CreatedAt time.Time          `bson:"created_at"`
}

type generationMongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewGenerationMongoRepository(ctx context.Context, client *mongo.Client, database string) (*generationMongoRepository, error) {
	collection := client.Database(database).Collection(generationsCollection)

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("session_created"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}

	return &generationMongoRepository{
		client:     client,
		collection: collection,
	}, nil
}

func (g *generationMongoRepository) Save(ctx context.Context, generation domain.Generation) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	res, err := g.collection.InsertOne(ctx, generationDocument{
		SessionID: generation.SessionID,
		Params:    bson.M(generation.Params.Map()),
		ResultURL: generation.ResultURL,
		CreatedAt: generation.CreatedAt,
	})
	if err != nil {
		return "", fmt.Errorf("saving generation: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", res.InsertedID)
	}
	return id.Hex(), nil
}

func (g *generationMongoRepository) GetByID(ctx context.Context, id string) (*domain.Generation, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid generation id %q: %w", id, domain.ErrNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, mongoOpTimeout)
	defer cancel()

	var doc generationDocument
	err = g.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding generation: %w", err)
	}

	params, err := domain.ParamsFromMap(doc.Params)
	if err != nil {
		return nil, fmt.Errorf("decoding params: %w", err)
	}

	return &domain.Generation{
		ID:        doc.ID.Hex(),
		SessionID: doc.SessionID,
		Params:    params,
		ResultURL: doc.ResultURL,
		CreatedAt: doc.CreatedAt,
	}, nil
}

func (g *generationMongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoOpTimeout)
	defer cancel()
	return g.client.Disconnect(ctx)
}
