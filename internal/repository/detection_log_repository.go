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

type DetectionLogRepository struct {
	collection *mongo.Collection
}

func NewDetectionLogRepository(database *db.Mongo) *DetectionLogRepository {
	return &DetectionLogRepository{collection: database.DetectionLogs()}
}

func (r *DetectionLogRepository) Insert(ctx context.Context, log *model.DetectionLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	log.CreateDate = now
	log.UpdateDate = now

	_, err := r.collection.InsertOne(ctx, log)
	return err
}

func (r *DetectionLogRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.DetectionLog, error) {
	var log model.DetectionLog
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&log)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

type DetectionLogFilter struct {
	LicensePlate  *string
	IsEntry       *bool
	StartDate     *time.Time
	EndDate       *time.Time
	SortBy        string // bson field name, validated at the boundary
	SortDirection string
	Page          int
	PageSize      int
}

func (r *DetectionLogRepository) List(ctx context.Context, filter DetectionLogFilter) ([]model.DetectionLog, error) {
	query := bson.M{}
	if filter.LicensePlate != nil && *filter.LicensePlate != "" {
		query["licensePlate"] = *filter.LicensePlate
	}
	if filter.IsEntry != nil {
		query["isEntry"] = *filter.IsEntry
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

	var logs []model.DetectionLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (r *DetectionLogRepository) GetByEventID(ctx context.Context, eventID primitive.ObjectID) ([]model.DetectionLog, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"parkingEventId": eventID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var logs []model.DetectionLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

// GetByEventIDAndType returns the entry (isEntry=true) or exit log of an event.
func (r *DetectionLogRepository) GetByEventIDAndType(ctx context.Context, eventID primitive.ObjectID, isEntry bool) (*model.DetectionLog, error) {
	var log model.DetectionLog
	err := r.collection.FindOne(ctx, bson.M{"parkingEventId": eventID, "isEntry": isEntry}).Decode(&log)
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *DetectionLogRepository) CountByEventID(ctx context.Context, eventID primitive.ObjectID) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"parkingEventId": eventID})
}

// Replace overwrites the whole document keyed by its id.
func (r *DetectionLogRepository) Replace(ctx context.Context, log *model.DetectionLog) error {
	log.UpdateDate = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": log.ID}, log)
	return err
}

func (r *DetectionLogRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *DetectionLogRepository) DeleteByEventID(ctx context.Context, eventID primitive.ObjectID) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"parkingEventId": eventID})
	return err
}
