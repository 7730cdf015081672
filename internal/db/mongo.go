package db

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"parking-service/internal/config"
)

const (
	detectionLogsCollection = "DetectionLogs"
	parkingEventsCollection = "ParkingEvents"
	usersCollection         = "Users"
)

// Mongo wraps the database handle and exposes the typed collections the
// repositories work with.
type Mongo struct {
	client   *mongo.Client
	database *mongo.Database
}

func New(cfg *config.Config, log zerolog.Logger) (*Mongo, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")

	return &Mongo{
		client:   client,
		database: client.Database(cfg.Mongo.Database),
	}, nil
}

func (m *Mongo) DetectionLogs() *mongo.Collection {
	return m.database.Collection(detectionLogsCollection)
}

func (m *Mongo) ParkingEvents() *mongo.Collection {
	return m.database.Collection(parkingEventsCollection)
}

func (m *Mongo) Users() *mongo.Collection {
	return m.database.Collection(usersCollection)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
