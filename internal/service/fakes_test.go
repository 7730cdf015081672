package service

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"parking-service/internal/model"
	"parking-service/internal/repository"
)

// fakeClock hands out strictly increasing timestamps so "latest by plate"
// is deterministic inside a single test.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) next() time.Time {
	c.now = c.now.Add(time.Second)
	return c.now
}

type fakeLogStore struct {
	clock *fakeClock
	logs  map[primitive.ObjectID]model.DetectionLog
	order []primitive.ObjectID
}

func newFakeLogStore(clock *fakeClock) *fakeLogStore {
	return &fakeLogStore{
		clock: clock,
		logs:  make(map[primitive.ObjectID]model.DetectionLog),
	}
}

func (s *fakeLogStore) Insert(_ context.Context, log *model.DetectionLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	now := s.clock.next()
	log.CreateDate = now
	log.UpdateDate = now
	s.logs[log.ID] = *log
	s.order = append(s.order, log.ID)
	return nil
}

func (s *fakeLogStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.DetectionLog, error) {
	log, ok := s.logs[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &log, nil
}

func (s *fakeLogStore) List(_ context.Context, filter repository.DetectionLogFilter) ([]model.DetectionLog, error) {
	var result []model.DetectionLog
	for _, id := range s.order {
		log, ok := s.logs[id]
		if !ok {
			continue
		}
		if filter.LicensePlate != nil && (log.LicensePlate == nil || *log.LicensePlate != *filter.LicensePlate) {
			continue
		}
		if filter.IsEntry != nil && log.IsEntry != *filter.IsEntry {
			continue
		}
		result = append(result, log)
	}
	return result, nil
}

func (s *fakeLogStore) GetByEventID(_ context.Context, eventID primitive.ObjectID) ([]model.DetectionLog, error) {
	var result []model.DetectionLog
	for _, id := range s.order {
		log, ok := s.logs[id]
		if !ok {
			continue
		}
		if log.ParkingEventID != nil && *log.ParkingEventID == eventID {
			result = append(result, log)
		}
	}
	return result, nil
}

func (s *fakeLogStore) GetByEventIDAndType(ctx context.Context, eventID primitive.ObjectID, isEntry bool) (*model.DetectionLog, error) {
	logs, _ := s.GetByEventID(ctx, eventID)
	for _, log := range logs {
		if log.IsEntry == isEntry {
			match := log
			return &match, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (s *fakeLogStore) CountByEventID(ctx context.Context, eventID primitive.ObjectID) (int64, error) {
	logs, _ := s.GetByEventID(ctx, eventID)
	return int64(len(logs)), nil
}

func (s *fakeLogStore) Replace(_ context.Context, log *model.DetectionLog) error {
	if _, ok := s.logs[log.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	log.UpdateDate = s.clock.next()
	s.logs[log.ID] = *log
	return nil
}

func (s *fakeLogStore) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(s.logs, id)
	return nil
}

func (s *fakeLogStore) DeleteByEventID(ctx context.Context, eventID primitive.ObjectID) error {
	logs, _ := s.GetByEventID(ctx, eventID)
	for _, log := range logs {
		delete(s.logs, log.ID)
	}
	return nil
}

type fakeEventStore struct {
	clock  *fakeClock
	events map[primitive.ObjectID]model.ParkingEvent
	order  []primitive.ObjectID
}

func newFakeEventStore(clock *fakeClock) *fakeEventStore {
	return &fakeEventStore{
		clock:  clock,
		events: make(map[primitive.ObjectID]model.ParkingEvent),
	}
}

func (s *fakeEventStore) Insert(_ context.Context, event *model.ParkingEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	now := s.clock.next()
	event.CreateDate = now
	event.UpdateDate = now
	s.events[event.ID] = *event
	s.order = append(s.order, event.ID)
	return nil
}

func (s *fakeEventStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.ParkingEvent, error) {
	event, ok := s.events[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &event, nil
}

func (s *fakeEventStore) GetLatestByPlate(_ context.Context, plate string) (*model.ParkingEvent, error) {
	var latest *model.ParkingEvent
	for _, id := range s.order {
		event, ok := s.events[id]
		if !ok {
			continue
		}
		if event.LicensePlate == nil || *event.LicensePlate != plate {
			continue
		}
		if latest == nil || event.CreateDate.After(latest.CreateDate) {
			match := event
			latest = &match
		}
	}
	if latest == nil {
		return nil, mongo.ErrNoDocuments
	}
	return latest, nil
}

func (s *fakeEventStore) List(_ context.Context, filter repository.ParkingEventFilter) ([]model.ParkingEvent, error) {
	var result []model.ParkingEvent
	for _, id := range s.order {
		event, ok := s.events[id]
		if !ok {
			continue
		}
		if filter.LicensePlate != nil && (event.LicensePlate == nil || *event.LicensePlate != *filter.LicensePlate) {
			continue
		}
		if filter.IsCheckIn != nil && event.IsCheckIn != *filter.IsCheckIn {
			continue
		}
		if filter.IsPaid != nil && event.IsPaid != *filter.IsPaid {
			continue
		}
		result = append(result, event)
	}
	return result, nil
}

func (s *fakeEventStore) GetByDateRange(_ context.Context, start, end *time.Time) ([]model.ParkingEvent, error) {
	var result []model.ParkingEvent
	for _, id := range s.order {
		event, ok := s.events[id]
		if !ok {
			continue
		}
		if start != nil && event.CreateDate.Before(*start) {
			continue
		}
		if end != nil && event.CreateDate.After(*end) {
			continue
		}
		result = append(result, event)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreateDate.Before(result[j].CreateDate) })
	return result, nil
}

func (s *fakeEventStore) Replace(_ context.Context, event *model.ParkingEvent) error {
	if _, ok := s.events[event.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	event.UpdateDate = s.clock.next()
	s.events[event.ID] = *event
	return nil
}

func (s *fakeEventStore) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(s.events, id)
	return nil
}

// seed inserts an event with a fixed creation time, bypassing the clock.
func (s *fakeEventStore) seed(event model.ParkingEvent) {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	s.events[event.ID] = event
	s.order = append(s.order, event.ID)
}

type fakeUserStore struct {
	clock *fakeClock
	users map[primitive.ObjectID]model.User
	order []primitive.ObjectID
}

func newFakeUserStore(clock *fakeClock) *fakeUserStore {
	return &fakeUserStore{
		clock: clock,
		users: make(map[primitive.ObjectID]model.User),
	}
}

func (s *fakeUserStore) Insert(_ context.Context, user *model.User) error {
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := s.clock.next()
	user.CreateDate = now
	user.UpdateDate = now
	s.users[user.ID] = *user
	s.order = append(s.order, user.ID)
	return nil
}

func (s *fakeUserStore) GetByUsername(_ context.Context, username string) (*model.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			match := user
			return &match, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (s *fakeUserStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	return &user, nil
}

func (s *fakeUserStore) List(_ context.Context, filter repository.UserFilter) ([]model.User, error) {
	var result []model.User
	for _, id := range s.order {
		user, ok := s.users[id]
		if !ok {
			continue
		}
		if filter.Username != nil && user.Username != *filter.Username {
			continue
		}
		if filter.PasswordHash != nil && user.PasswordHash != *filter.PasswordHash {
			continue
		}
		if filter.Role != nil && string(user.Role) != *filter.Role {
			continue
		}
		result = append(result, user)
	}
	return result, nil
}

func (s *fakeUserStore) Replace(_ context.Context, user *model.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return mongo.ErrNoDocuments
	}
	user.UpdateDate = s.clock.next()
	s.users[user.ID] = *user
	return nil
}

func (s *fakeUserStore) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(s.users, id)
	return nil
}
