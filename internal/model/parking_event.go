package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FeeUnset marks an event whose fee has not been settled yet. New check-ins
// carry it until checkout writes the real amount.
const FeeUnset float64 = -1

// ParkingEvent is the lifecycle record from a vehicle's entry to its exit.
// An open event has IsCheckIn=true and no exit gate; checkout closes it.
type ParkingEvent struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	LicensePlate *string            `bson:"licensePlate,omitempty" json:"license_plate"`
	EntryGate    string             `bson:"entryGate" json:"entry_gate"`
	ExitGate     *string            `bson:"exitGate,omitempty" json:"exit_gate"`
	IsCheckIn    bool               `bson:"isCheckIn" json:"is_check_in"`
	Fee          float64            `bson:"fee" json:"fee"`
	IsPaid       bool               `bson:"isPaid" json:"is_paid"`
	CreateDate   time.Time          `bson:"createDate" json:"create_date"`
	UpdateDate   time.Time          `bson:"updateDate" json:"update_date"`
}

// Open reports whether the event is still waiting for a matching exit scan.
func (e *ParkingEvent) Open() bool {
	return e.IsCheckIn && (e.ExitGate == nil || *e.ExitGate == "")
}
