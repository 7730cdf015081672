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
	"parking-service/internal/utils"
)

type DetectionService struct {
	logRepo   DetectionLogStore
	eventRepo ParkingEventStore
	log       zerolog.Logger
}

func NewDetectionService(logRepo DetectionLogStore, eventRepo ParkingEventStore, log zerolog.Logger) *DetectionService {
	return &DetectionService{
		logRepo:   logRepo,
		eventRepo: eventRepo,
		log:       log,
	}
}

type DetectionInput struct {
	Images           [][]byte
	ConfidenceScores []float64
	LicensePlate     string
	Gate             string
}

type DetectionResult struct {
	ID              string  `json:"id"`
	LicensePlate    *string `json:"license_plate"`
	ConfidenceScore float64 `json:"confidence_score"`
	IsEntry         bool    `json:"is_entry"`
	ImageData       []byte  `json:"image_data"`
}

// ProcessDetections records one detection log per image. When a plate was
// recognized, a fresh open parking event is inserted first and every log of
// this call references it.
func (s *DetectionService) ProcessDetections(ctx context.Context, input DetectionInput) ([]DetectionResult, error) {
	if len(input.Images) != len(input.ConfidenceScores) {
		return nil, fmt.Errorf("%w: image and score counts differ", ErrInvalidInput)
	}
	if len(input.Images) == 0 {
		return nil, fmt.Errorf("%w: at least one image is required", ErrInvalidInput)
	}

	plate := utils.NormalizePlate(input.LicensePlate)
	platePresent := plate != ""

	var event *model.ParkingEvent
	if platePresent {
		event = &model.ParkingEvent{
			LicensePlate: &plate,
			EntryGate:    input.Gate,
			IsCheckIn:    true,
			Fee:          model.FeeUnset,
		}
		if err := s.eventRepo.Insert(ctx, event); err != nil {
			return nil, err
		}
		s.log.Info().Str("plate", plate).Str("gate", input.Gate).Msg("opened parking event")
	}

	results := make([]DetectionResult, 0, len(input.Images))
	for i, image := range input.Images {
		log := &model.DetectionLog{
			ConfidenceScore: input.ConfidenceScores[i],
			IsEntry:         platePresent,
			ImageData:       image,
		}
		if platePresent {
			log.LicensePlate = &plate
			log.ParkingEventID = &event.ID
		}

		// A failed insert here leaves the event and earlier logs in place;
		// there is no rollback for partially completed batches.
		if err := s.logRepo.Insert(ctx, log); err != nil {
			return nil, err
		}

		results = append(results, toDetectionResult(log))
	}

	return results, nil
}

type CheckoutInput struct {
	Images           [][]byte
	ConfidenceScores []float64
	LicensePlate     string
	ExitGate         string
	Fee              float64
}

// Checkout closes the most recent open check-in for the plate. The match is
// read-then-replace with no guard: two concurrent exits for the same plate
// can both pass the open-event check before either writes.
func (s *DetectionService) Checkout(ctx context.Context, input CheckoutInput) (*ParkingEventView, error) {
	if len(input.Images) != len(input.ConfidenceScores) {
		return nil, fmt.Errorf("%w: image and score counts differ", ErrInvalidInput)
	}

	plate := utils.NormalizePlate(input.LicensePlate)
	if plate == "" {
		return nil, fmt.Errorf("%w: license plate is required", ErrInvalidInput)
	}

	last, err := s.eventRepo.GetLatestByPlate(ctx, plate)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: no open check-in for this plate", ErrNotFound)
		}
		return nil, err
	}
	if !last.Open() {
		return nil, fmt.Errorf("%w: no open check-in for this plate", ErrNotFound)
	}

	last.ExitGate = &input.ExitGate
	last.IsCheckIn = false
	last.Fee = input.Fee
	last.IsPaid = true

	if err := s.eventRepo.Replace(ctx, last); err != nil {
		return nil, err
	}

	s.log.Info().Str("plate", plate).Str("gate", input.ExitGate).Msg("checked out")

	view := toEventView(last)
	return &view, nil
}

// UpdatePayment flips the paid flag of an event.
func (s *DetectionService) UpdatePayment(ctx context.Context, id string, isPaid bool) (*ParkingEventView, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed event id", ErrInvalidInput)
	}

	event, err := s.eventRepo.GetByID(ctx, objID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: parking event", ErrNotFound)
		}
		return nil, err
	}

	event.IsPaid = isPaid
	if err := s.eventRepo.Replace(ctx, event); err != nil {
		return nil, err
	}

	s.log.Info().Str("event_id", id).Bool("is_paid", isPaid).Msg("updated payment")

	view := toEventView(event)
	return &view, nil
}

// GetEventWithLogs returns an event together with its entry and exit logs,
// either of which may be absent.
func (s *DetectionService) GetEventWithLogs(ctx context.Context, id string) (*ParkingEventView, error) {
	objID, err := parseID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed event id", ErrInvalidInput)
	}

	event, err := s.eventRepo.GetByID(ctx, objID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: parking event", ErrNotFound)
		}
		return nil, err
	}

	view := toEventView(event)

	if entry, err := s.logRepo.GetByEventIDAndType(ctx, objID, true); err == nil {
		result := toDetectionResult(entry)
		view.EntryLog = &result
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	if exit, err := s.logRepo.GetByEventIDAndType(ctx, objID, false); err == nil {
		result := toDetectionResult(exit)
		view.ExitLog = &result
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, err
	}

	return &view, nil
}

func (s *DetectionService) ListLogs(ctx context.Context, filter repository.DetectionLogFilter) ([]model.DetectionLog, error) {
	return s.logRepo.List(ctx, filter)
}

func (s *DetectionService) ListEvents(ctx context.Context, filter repository.ParkingEventFilter) ([]model.ParkingEvent, error) {
	return s.eventRepo.List(ctx, filter)
}

type DetectionLogUpdateInput struct {
	LicensePlate    *string
	ConfidenceScore *float64
	ImageData       []byte
}

// UpdateDetectionLog applies the fields present in the input. A plate change
// propagates to the owning parking event.
func (s *DetectionService) UpdateDetectionLog(ctx context.Context, id string, input DetectionLogUpdateInput) error {
	objID, err := parseID(id)
	if err != nil {
		return fmt.Errorf("%w: malformed log id", ErrInvalidInput)
	}

	log, err := s.logRepo.GetByID(ctx, objID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: detection log", ErrNotFound)
		}
		return err
	}

	if input.LicensePlate != nil {
		plate := utils.NormalizePlate(*input.LicensePlate)
		log.LicensePlate = &plate

		if log.ParkingEventID != nil {
			event, err := s.eventRepo.GetByID(ctx, *log.ParkingEventID)
			if err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
				return err
			}
			if err == nil {
				event.LicensePlate = &plate
				if err := s.eventRepo.Replace(ctx, event); err != nil {
					return err
				}
			}
		}
	}
	if input.ConfidenceScore != nil {
		log.ConfidenceScore = *input.ConfidenceScore
	}
	if input.ImageData != nil {
		log.ImageData = input.ImageData
	}

	return s.logRepo.Replace(ctx, log)
}

type ParkingEventUpdateInput struct {
	LicensePlate *string
	EntryGate    *string
	ExitGate     *string
	IsCheckIn    *bool
	Fee          *float64
	IsPaid       *bool
}

// UpdateParkingEvent applies the fields present in the input. A plate change
// is rewritten onto every log referencing the event.
func (s *DetectionService) UpdateParkingEvent(ctx context.Context, id string, input ParkingEventUpdateInput) error {
	objID, err := parseID(id)
	if err != nil {
		return fmt.Errorf("%w: malformed event id", ErrInvalidInput)
	}

	event, err := s.eventRepo.GetByID(ctx, objID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: parking event", ErrNotFound)
		}
		return err
	}

	if input.LicensePlate != nil {
		plate := utils.NormalizePlate(*input.LicensePlate)
		event.LicensePlate = &plate

		logs, err := s.logRepo.GetByEventID(ctx, objID)
		if err != nil {
			return err
		}
		for i := range logs {
			logs[i].LicensePlate = &plate
			if err := s.logRepo.Replace(ctx, &logs[i]); err != nil {
				return err
			}
		}
	}
	if input.EntryGate != nil {
		event.EntryGate = *input.EntryGate
	}
	if input.ExitGate != nil {
		event.ExitGate = input.ExitGate
	}
	if input.IsCheckIn != nil {
		event.IsCheckIn = *input.IsCheckIn
	}
	if input.Fee != nil {
		event.Fee = *input.Fee
	}
	if input.IsPaid != nil {
		event.IsPaid = *input.IsPaid
	}

	return s.eventRepo.Replace(ctx, event)
}

// DeleteParkingEvent removes the event and every log referencing it.
func (s *DetectionService) DeleteParkingEvent(ctx context.Context, id string) error {
	objID, err := parseID(id)
	if err != nil {
		return fmt.Errorf("%w: malformed event id", ErrInvalidInput)
	}

	if _, err := s.eventRepo.GetByID(ctx, objID); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: parking event", ErrNotFound)
		}
		return err
	}

	if err := s.logRepo.DeleteByEventID(ctx, objID); err != nil {
		return err
	}
	if err := s.eventRepo.Delete(ctx, objID); err != nil {
		return err
	}

	s.log.Info().Str("event_id", id).Msg("deleted parking event with logs")
	return nil
}

// DeleteDetectionLog removes a log. Deleting the last remaining log of an
// event removes the event too. The count check and the deletes are separate
// round trips, so concurrent deletes for the same event can race.
func (s *DetectionService) DeleteDetectionLog(ctx context.Context, id string) error {
	objID, err := parseID(id)
	if err != nil {
		return fmt.Errorf("%w: malformed log id", ErrInvalidInput)
	}

	log, err := s.logRepo.GetByID(ctx, objID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: detection log", ErrNotFound)
		}
		return err
	}

	if log.ParkingEventID != nil {
		remaining, err := s.logRepo.CountByEventID(ctx, *log.ParkingEventID)
		if err != nil {
			return err
		}
		if remaining == 1 {
			if err := s.eventRepo.Delete(ctx, *log.ParkingEventID); err != nil {
				return err
			}
			s.log.Info().Str("event_id", log.ParkingEventID.Hex()).Msg("deleted orphaned parking event")
		}
	}

	return s.logRepo.Delete(ctx, objID)
}

type ParkingEventView struct {
	ID           string           `json:"id"`
	LicensePlate *string          `json:"license_plate"`
	EntryGate    string           `json:"entry_gate"`
	ExitGate     *string          `json:"exit_gate"`
	IsCheckIn    bool             `json:"is_check_in"`
	Fee          float64          `json:"fee"`
	IsPaid       bool             `json:"is_paid"`
	CreateDate   time.Time        `json:"create_date"`
	UpdateDate   time.Time        `json:"update_date"`
	EntryLog     *DetectionResult `json:"entry_log,omitempty"`
	ExitLog      *DetectionResult `json:"exit_log,omitempty"`
}

func toEventView(e *model.ParkingEvent) ParkingEventView {
	return ParkingEventView{
		ID:           e.ID.Hex(),
		LicensePlate: e.LicensePlate,
		EntryGate:    e.EntryGate,
		ExitGate:     e.ExitGate,
		IsCheckIn:    e.IsCheckIn,
		Fee:          e.Fee,
		IsPaid:       e.IsPaid,
		CreateDate:   e.CreateDate,
		UpdateDate:   e.UpdateDate,
	}
}

func toDetectionResult(l *model.DetectionLog) DetectionResult {
	return DetectionResult{
		ID:              l.ID.Hex(),
		LicensePlate:    l.LicensePlate,
		ConfidenceScore: l.ConfidenceScore,
		IsEntry:         l.IsEntry,
		ImageData:       l.ImageData,
	}
}
