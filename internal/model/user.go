package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleStaff Role = "staff"
	RoleAdmin Role = "admin"
)

// ValidRole reports whether raw is one of the two allowed role values.
// Enforced at the boundary, not inside the services.
func ValidRole(raw string) bool {
	switch Role(raw) {
	case RoleStaff, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	PasswordHash string             `bson:"passwordHash" json:"password_hash"`
	Role         Role               `bson:"role" json:"role"`
	CreateDate   time.Time          `bson:"createDate" json:"create_date"`
	UpdateDate   time.Time          `bson:"updateDate" json:"update_date"`
}
