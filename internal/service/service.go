package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"parking-service/internal/model"
	"parking-service/internal/repository"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrConflict           = errors.New("conflict")
)

// DetectionLogStore is the slice of the log repository the services consume.
type DetectionLogStore interface {
	Insert(ctx context.Context, log *model.DetectionLog) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.DetectionLog, error)
	List(ctx context.Context, filter repository.DetectionLogFilter) ([]model.DetectionLog, error)
	GetByEventID(ctx context.Context, eventID primitive.ObjectID) ([]model.DetectionLog, error)
	GetByEventIDAndType(ctx context.Context, eventID primitive.ObjectID, isEntry bool) (*model.DetectionLog, error)
	CountByEventID(ctx context.Context, eventID primitive.ObjectID) (int64, error)
	Replace(ctx context.Context, log *model.DetectionLog) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByEventID(ctx context.Context, eventID primitive.ObjectID) error
}

type ParkingEventStore interface {
	Insert(ctx context.Context, event *model.ParkingEvent) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.ParkingEvent, error)
	GetLatestByPlate(ctx context.Context, plate string) (*model.ParkingEvent, error)
	List(ctx context.Context, filter repository.ParkingEventFilter) ([]model.ParkingEvent, error)
	GetByDateRange(ctx context.Context, start, end *time.Time) ([]model.ParkingEvent, error)
	Replace(ctx context.Context, event *model.ParkingEvent) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type UserStore interface {
	Insert(ctx context.Context, user *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	List(ctx context.Context, filter repository.UserFilter) ([]model.User, error)
	Replace(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

func parseID(raw string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidInput
	}
	return id, nil
}
