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

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(database *db.Mongo) *UserRepository {
	return &UserRepository{collection: database.Users()}
}

func (r *UserRepository) Insert(ctx context.Context, user *model.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	user.CreateDate = now
	user.UpdateDate = now

	_, err := r.collection.InsertOne(ctx, user)
	return err
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type UserFilter struct {
	Username      *string
	PasswordHash  *string
	Role          *string
	StartDate     *time.Time
	EndDate       *time.Time
	SortBy        string // bson field name, validated at the boundary
	SortDirection string
	Page          int
	PageSize      int
}

func (r *UserRepository) List(ctx context.Context, filter UserFilter) ([]model.User, error) {
	query := bson.M{}
	if filter.Username != nil && *filter.Username != "" {
		query["username"] = *filter.Username
	}
	if filter.PasswordHash != nil && *filter.PasswordHash != "" {
		query["passwordHash"] = *filter.PasswordHash
	}
	if filter.Role != nil && *filter.Role != "" {
		query["role"] = *filter.Role
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

	var users []model.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *UserRepository) Replace(ctx context.Context, user *model.User) error {
	user.UpdateDate = time.Now().UTC()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
