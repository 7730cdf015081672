package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"parking-service/internal/model"
	"parking-service/internal/repository"
)

type UserService struct {
	userRepo UserStore
	log      zerolog.Logger
}

func NewUserService(userRepo UserStore, log zerolog.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		log:      log,
	}
}

type UserListInput struct {
	Username      *string
	Password      *string
	Role          *string
	StartDate     *time.Time
	EndDate       *time.Time
	SortBy        string
	SortDirection string
	Page          int
	PageSize      int
}

type UserView struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	PasswordHash string     `json:"password_hash"`
	Role         model.Role `json:"role"`
	CreateDate   time.Time  `json:"create_date"`
	UpdateDate   time.Time  `json:"update_date"`
}

func (s *UserService) List(ctx context.Context, input UserListInput) ([]UserView, error) {
	filter := repository.UserFilter{
		Username:      input.Username,
		Role:          input.Role,
		StartDate:     input.StartDate,
		EndDate:       input.EndDate,
		SortBy:        input.SortBy,
		SortDirection: input.SortDirection,
		Page:          input.Page,
		PageSize:      input.PageSize,
	}
	// The password filter matches against the stored hash.
	if input.Password != nil {
		hashed := hashPassword(*input.Password)
		filter.PasswordHash = &hashed
	}

	users, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	views := make([]UserView, 0, len(users))
	for _, user := range users {
		views = append(views, UserView{
			ID:           user.ID.Hex(),
			Username:     user.Username,
			PasswordHash: user.PasswordHash,
			Role:         user.Role,
			CreateDate:   user.CreateDate,
			UpdateDate:   user.UpdateDate,
		})
	}
	return views, nil
}

type UserUpdateInput struct {
	Username *string
	Password *string
	Role     *string
}

func (s *UserService) Update(ctx context.Context, id string, input UserUpdateInput) error {
	objID, err := parseID(id)
	if err != nil {
		return fmt.Errorf("%w: malformed user id", ErrInvalidInput)
	}

	user, err := s.userRepo.GetByID(ctx, objID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: user", ErrNotFound)
		}
		return err
	}

	if input.Username != nil {
		user.Username = *input.Username
	}
	if input.Password != nil {
		user.PasswordHash = hashPassword(*input.Password)
	}
	if input.Role != nil {
		user.Role = model.Role(*input.Role)
	}

	if err := s.userRepo.Replace(ctx, user); err != nil {
		return err
	}

	s.log.Info().Str("user_id", id).Msg("updated user")
	return nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	objID, err := parseID(id)
	if err != nil {
		return fmt.Errorf("%w: malformed user id", ErrInvalidInput)
	}

	if _, err := s.userRepo.GetByID(ctx, objID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: user", ErrNotFound)
		}
		return err
	}

	if err := s.userRepo.Delete(ctx, objID); err != nil {
		return err
	}

	s.log.Info().Str("user_id", id).Msg("deleted user")
	return nil
}
