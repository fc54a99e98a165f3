package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type PaidHoliday struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string          `bson:"name" json:"name"`
	Date        string          `bson:"date" json:"date"` // YYYY-MM-DD
	Hours       decimal.Decimal `bson:"hours" json:"hours"`
	Description string          `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy   string          `bson:"created_by" json:"createdBy"`
	CreatedAt   time.Time       `bson:"created_at" json:"createdAt"`
}

type HolidayUpdate struct {
	Name        *string
	Date        *string
	Hours       *decimal.Decimal
	Description *string
}

// PaidHolidayAssignment persists the hours granted at assignment time; later edits
// to the holiday's base hours do not rescale it.
type PaidHolidayAssignment struct {
	ID            bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	PaidHolidayID bson.ObjectID   `bson:"paid_holiday_id" json:"paidHolidayId"`
	UserID        string          `bson:"user_id" json:"userId"`
	Hours         decimal.Decimal `bson:"hours" json:"hours"`
	AssignedBy    string          `bson:"assigned_by" json:"assignedBy"`
	AssignedAt    time.Time       `bson:"assigned_at" json:"assignedAt"`
}
