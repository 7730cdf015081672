package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DetectionLog is one recorded image+score+plate observation at a gate.
// ParkingEventID is a weak back-reference to the owning ParkingEvent; it is
// nil for scans where no plate was recognized.
type DetectionLog struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	LicensePlate    *string             `bson:"licensePlate,omitempty" json:"license_plate"`
	ConfidenceScore float64             `bson:"confidenceScore" json:"confidence_score"`
	ParkingEventID  *primitive.ObjectID `bson:"parkingEventId,omitempty" json:"parking_event_id"`
	IsEntry         bool                `bson:"isEntry" json:"is_entry"`
	ImageData       []byte              `bson:"imageData" json:"image_data"`
	CreateDate      time.Time           `bson:"createDate" json:"create_date"`
	UpdateDate      time.Time           `bson:"updateDate" json:"update_date"`
}
