package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"parking-service/internal/db"
	"parking-service/internal/model"
)

type ParkingEventRepository struct {
	collection *mongo.Collection
}

func NewParkingEventRepository(database *db.Mongo) *ParkingEventRepository {
	return &ParkingEventRepository{collection: database.ParkingEvents()}
}

func (r *ParkingEventRepository) Insert(ctx context.Context, event *model.ParkingEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	event.CreateDate = now
	event.UpdateDate = now

	_, err := r.collection.InsertOne(ctx, event)
	return err
}

func (r *ParkingEventRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.ParkingEvent, error) {
	var event model.ParkingEvent
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// GetLatestByPlate returns the most recently created event for a plate,
// regardless of its state. The caller decides whether it is an open check-in.
func (r *ParkingEventRepository) GetLatestByPlate(ctx context.Context, plate string) (*model.ParkingEvent, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "createDate", Value: -1}})

	var event model.ParkingEvent
	err := r.collection.FindOne(ctx, bson.M{"licensePlate": plate}, opts).Decode(&event)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

type ParkingEventFilter struct {
	LicensePlate  *string
	IsCheckIn     *bool
	IsPaid        *bool
	StartDate     *time.Time
	EndDate       *time.Time
	SortBy        string // bson field name, validated at the boundary
	SortDirection string
	Page          int
	PageSize      int
}

func (r *ParkingEventRepository) List(ctx context.Context, filter ParkingEventFilter) ([]model.ParkingEvent, error) {
	query := bson.M{}
	if filter.LicensePlate != nil && *filter.LicensePlate != "" {
		query["licensePlate"] = *filter.LicensePlate
	}
	if filter.IsCheckIn != nil {
		query["isCheckIn"] = *filter.IsCheckIn
	}
	if filter.IsPaid != nil {
		query["isPaid"] = *filter.IsPaid
	}
	if rangeQuery := dateRange(filter.StartDate, filter.EndDate); rangeQuery != nil {
		query["createDate"] = rangeQuery
	}

	opts := options.Find().
		SetSort(sortSpec(filter.SortBy, filter.SortDirection)).
		SetSkip(skipFor(filter.Page, filter.PageSize)).
		SetLimit(int64(pageSizeOrDefault(filter.PageSize)))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []model.ParkingEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// GetByDateRange fetches every event in [start, end] without pagination.
// Used by the statistics aggregation, which groups in memory.
func (r *ParkingEventRepository) GetByDateRange(ctx context.Context, start, end *time.Time) ([]model.ParkingEvent, error) {
	query := bson.M{}
	if rangeQuery := dateRange(start, end); rangeQuery != nil {
		query["createDate"] = rangeQuery
	}

	cursor, err := r.collection.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var events []model.ParkingEvent
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// Replace overwrites the whole document keyed by its id. Last write wins;
// there is no version check guarding concurrent replaces.
func (r *ParkingEventRepository) Replace(ctx context.Context, event *model.ParkingEvent) error {
	event.UpdateDate = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": event.ID}, event)
	return err
}

func (r *ParkingEventRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
