package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parking-service/internal/model"
)

func newTestDetectionService() (*DetectionService, *fakeLogStore, *fakeEventStore) {
	clock := newFakeClock()
	logs := newFakeLogStore(clock)
	events := newFakeEventStore(clock)
	return NewDetectionService(logs, events, zerolog.Nop()), logs, events
}

func TestProcessDetectionsCreatesEventAndLogs(t *testing.T) {
	svc, logs, events := newTestDetectionService()

	results, err := svc.ProcessDetections(context.Background(), DetectionInput{
		Images:           [][]byte{[]byte("a"), []byte("b"), []byte("c")},
		ConfidenceScores: []float64{0.9, 0.8, 0.7},
		LicensePlate:     " abc 123 ",
		Gate:             "north",
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	require.Len(t, events.events, 1)
	var event model.ParkingEvent
	for _, e := range events.events {
		event = e
	}
	require.NotNil(t, event.LicensePlate)
	assert.Equal(t, "ABC123", *event.LicensePlate)
	assert.Equal(t, "north", event.EntryGate)
	assert.True(t, event.IsCheckIn)
	assert.Equal(t, model.FeeUnset, event.Fee)
	assert.False(t, event.IsPaid)
	assert.True(t, event.Open())

	require.Len(t, logs.logs, 3)
	for _, log := range logs.logs {
		assert.True(t, log.IsEntry)
		require.NotNil(t, log.ParkingEventID)
		assert.Equal(t, event.ID, *log.ParkingEventID)
		require.NotNil(t, log.LicensePlate)
		assert.Equal(t, "ABC123", *log.LicensePlate)
	}

	for i, result := range results {
		assert.Equal(t, []float64{0.9, 0.8, 0.7}[i], result.ConfidenceScore)
		assert.True(t, result.IsEntry)
	}
}

func TestProcessDetectionsWithoutPlate(t *testing.T) {
	svc, logs, events := newTestDetectionService()

	results, err := svc.ProcessDetections(context.Background(), DetectionInput{
		Images:           [][]byte{[]byte("a")},
		ConfidenceScores: []float64{0.4},
		LicensePlate:     "",
		Gate:             "north",
	})
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Empty(t, events.events)
	require.Len(t, logs.logs, 1)
	for _, log := range logs.logs {
		assert.False(t, log.IsEntry)
		assert.Nil(t, log.ParkingEventID)
		assert.Nil(t, log.LicensePlate)
	}
}

func TestProcessDetectionsCountMismatch(t *testing.T) {
	svc, logs, events := newTestDetectionService()

	_, err := svc.ProcessDetections(context.Background(), DetectionInput{
		Images:           [][]byte{[]byte("a"), []byte("b")},
		ConfidenceScores: []float64{0.9},
		LicensePlate:     "ABC123",
	})
	require.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, logs.logs)
	assert.Empty(t, events.events)
}

func TestProcessDetectionsNoImages(t *testing.T) {
	svc, _, _ := newTestDetectionService()

	_, err := svc.ProcessDetections(context.Background(), DetectionInput{
		LicensePlate: "ABC123",
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func checkIn(t *testing.T, svc *DetectionService, plate string) {
	t.Helper()
	_, err := svc.ProcessDetections(context.Background(), DetectionInput{
		Images:           [][]byte{[]byte("entry")},
		ConfidenceScores: []float64{0.95},
		LicensePlate:     plate,
		Gate:             "north",
	})
	require.NoError(t, err)
}

func TestCheckoutClosesOpenEvent(t *testing.T) {
	svc, _, events := newTestDetectionService()
	checkIn(t, svc, "ABC123")

	view, err := svc.Checkout(context.Background(), CheckoutInput{
		Images:           [][]byte{[]byte("exit")},
		ConfidenceScores: []float64{0.91},
		LicensePlate:     "abc-123",
		ExitGate:         "south",
		Fee:              42.5,
	})
	require.NoError(t, err)

	assert.False(t, view.IsCheckIn)
	assert.True(t, view.IsPaid)
	assert.Equal(t, 42.5, view.Fee)
	require.NotNil(t, view.ExitGate)
	assert.Equal(t, "south", *view.ExitGate)

	require.Len(t, events.events, 1)
	for _, event := range events.events {
		assert.False(t, event.Open())
	}
}

func TestCheckoutWithoutOpenEvent(t *testing.T) {
	svc, _, _ := newTestDetectionService()

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		Images:           [][]byte{[]byte("exit")},
		ConfidenceScores: []float64{0.91},
		LicensePlate:     "ZZZ999",
		ExitGate:         "south",
		Fee:              10,
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheckoutTwiceFails(t *testing.T) {
	svc, _, _ := newTestDetectionService()
	checkIn(t, svc, "ABC123")

	input := CheckoutInput{
		Images:           [][]byte{[]byte("exit")},
		ConfidenceScores: []float64{0.91},
		LicensePlate:     "ABC123",
		ExitGate:         "south",
		Fee:              10,
	}

	_, err := svc.Checkout(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Checkout(context.Background(), input)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheckoutRequiresPlate(t *testing.T) {
	svc, _, _ := newTestDetectionService()

	_, err := svc.Checkout(context.Background(), CheckoutInput{
		Images:           [][]byte{[]byte("exit")},
		ConfidenceScores: []float64{0.91},
		ExitGate:         "south",
	})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUpdatePayment(t *testing.T) {
	svc, _, events := newTestDetectionService()
	checkIn(t, svc, "ABC123")

	var id string
	for _, event := range events.events {
		id = event.ID.Hex()
	}

	view, err := svc.UpdatePayment(context.Background(), id, true)
	require.NoError(t, err)
	assert.True(t, view.IsPaid)

	view, err = svc.UpdatePayment(context.Background(), id, false)
	require.NoError(t, err)
	assert.False(t, view.IsPaid)
}

func TestUpdatePaymentMalformedID(t *testing.T) {
	svc, _, _ := newTestDetectionService()

	_, err := svc.UpdatePayment(context.Background(), "not-an-id", true)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestGetEventWithLogs(t *testing.T) {
	svc, logs, events := newTestDetectionService()
	checkIn(t, svc, "ABC123")

	var eventID string
	for _, event := range events.events {
		eventID = event.ID.Hex()
	}

	// Entry log only so far.
	view, err := svc.GetEventWithLogs(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, view.EntryLog)
	assert.Nil(t, view.ExitLog)
	assert.True(t, view.EntryLog.IsEntry)

	// Attach an exit log by hand and fetch again.
	for _, event := range events.events {
		exitLog := model.DetectionLog{
			LicensePlate:    event.LicensePlate,
			ConfidenceScore: 0.5,
			ParkingEventID:  &event.ID,
			IsEntry:         false,
		}
		require.NoError(t, logs.Insert(context.Background(), &exitLog))
	}

	view, err = svc.GetEventWithLogs(context.Background(), eventID)
	require.NoError(t, err)
	require.NotNil(t, view.EntryLog)
	require.NotNil(t, view.ExitLog)
	assert.False(t, view.ExitLog.IsEntry)
}

func TestUpdateDetectionLogPropagatesPlate(t *testing.T) {
	svc, logs, events := newTestDetectionService()
	checkIn(t, svc, "ABC123")

	var logID string
	for _, log := range logs.logs {
		logID = log.ID.Hex()
	}

	newPlate := "xy z-789"
	err := svc.UpdateDetectionLog(context.Background(), logID, DetectionLogUpdateInput{
		LicensePlate: &newPlate,
	})
	require.NoError(t, err)

	for _, log := range logs.logs {
		require.NotNil(t, log.LicensePlate)
		assert.Equal(t, "XYZ789", *log.LicensePlate)
	}
	for _, event := range events.events {
		require.NotNil(t, event.LicensePlate)
		assert.Equal(t, "XYZ789", *event.LicensePlate)
	}
}

func TestUpdateParkingEventPropagatesPlate(t *testing.T) {
	svc, logs, events := newTestDetectionService()
	checkIn(t, svc, "ABC123")

	var eventID string
	for _, event := range events.events {
		eventID = event.ID.Hex()
	}

	newPlate := "def456"
	newFee := 15.0
	err := svc.UpdateParkingEvent(context.Background(), eventID, ParkingEventUpdateInput{
		LicensePlate: &newPlate,
		Fee:          &newFee,
	})
	require.NoError(t, err)

	for _, event := range events.events {
		require.NotNil(t, event.LicensePlate)
		assert.Equal(t, "DEF456", *event.LicensePlate)
		assert.Equal(t, 15.0, event.Fee)
	}
	for _, log := range logs.logs {
		require.NotNil(t, log.LicensePlate)
		assert.Equal(t, "DEF456", *log.LicensePlate)
	}
}

func TestDeleteParkingEventCascades(t *testing.T) {
	svc, logs, events := newTestDetectionService()
	checkIn(t, svc, "ABC123")

	var eventID string
	for _, event := range events.events {
		eventID = event.ID.Hex()
	}

	require.NoError(t, svc.DeleteParkingEvent(context.Background(), eventID))
	assert.Empty(t, events.events)
	assert.Empty(t, logs.logs)
}

func TestDeleteLastDetectionLogRemovesEvent(t *testing.T) {
	svc, logs, events := newTestDetectionService()
	checkIn(t, svc, "ABC123")

	var logID string
	for _, log := range logs.logs {
		logID = log.ID.Hex()
	}

	require.NoError(t, svc.DeleteDetectionLog(context.Background(), logID))
	assert.Empty(t, logs.logs)
	assert.Empty(t, events.events)
}

func TestDeleteDetectionLogKeepsEventWithRemainingLogs(t *testing.T) {
	svc, logs, events := newTestDetectionService()

	_, err := svc.ProcessDetections(context.Background(), DetectionInput{
		Images:           [][]byte{[]byte("a"), []byte("b")},
		ConfidenceScores: []float64{0.9, 0.8},
		LicensePlate:     "ABC123",
		Gate:             "north",
	})
	require.NoError(t, err)

	var logID string
	for _, log := range logs.logs {
		logID = log.ID.Hex()
		break
	}

	require.NoError(t, svc.DeleteDetectionLog(context.Background(), logID))
	assert.Len(t, logs.logs, 1)
	assert.Len(t, events.events, 1)
}

func TestDeleteDetectionLogNotFound(t *testing.T) {
	svc, _, _ := newTestDetectionService()

	err := svc.DeleteDetectionLog(context.Background(), "64b0c0d0e0f0a0b0c0d0e0f0")
	require.ErrorIs(t, err, ErrNotFound)
}
