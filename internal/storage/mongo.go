package storage

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"github.com/thisdougb/gamehealth/internal/probe"
)

const defaultMongoDatabase = "gamehealth"

type mongoResource struct {
	ID       string         `bson:"_id"`
	OwnerID  string         `bson:"owner_id"`
	ModuleID string         `bson:"module_id"`
	Data     map[string]any `bson:"data,omitempty"`
}

// MongoStore is a ResourceStore backed by a MongoDB collection.
type MongoStore struct {
	client    *mongo.Client
	resources *mongo.Collection
}

// NewMongoStore connects to uri. The database is taken from the URI path,
// defaulting to "gamehealth".
func NewMongoStore(ctx context.Context, uri string) (*MongoStore, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("parse mongo uri: %w", err)
	}
	database := cs.Database
	if database == "" {
		database = defaultMongoDatabase
	}

	clientOpts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(5 * time.Second)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	store := &MongoStore{
		client:    client,
		resources: client.Database(database).Collection("resources"),
	}

	if err := store.Ping(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	_, err = store.resources.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "module_id", Value: 1}},
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create mongo index: %w", err)
	}

	return store, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

func (s *MongoStore) QueryByOwnerAndModule(ctx context.Context, ownerID, moduleID string) ([]probe.Resource, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.resources.Find(ctx, bson.M{"owner_id": ownerID, "module_id": moduleID}, opts)
	if err != nil {
		return nil, fmt.Errorf("query mongo resources: %w", err)
	}
	defer cur.Close(ctx)

	var docs []mongoResource
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode mongo resources: %w", err)
	}

	resources := make([]probe.Resource, 0, len(docs))
	for _, d := range docs {
		resources = append(resources, probe.Resource{
			ID:       d.ID,
			OwnerID:  d.OwnerID,
			ModuleID: d.ModuleID,
			Data:     d.Data,
		})
	}
	return resources, nil
}

// PutResource upserts a resource document.
func (s *MongoStore) PutResource(ctx context.Context, r probe.Resource) error {
	doc := mongoResource{ID: r.ID, OwnerID: r.OwnerID, ModuleID: r.ModuleID, Data: r.Data}
	_, err := s.resources.ReplaceOne(ctx, bson.M{"_id": r.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save mongo resource: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
