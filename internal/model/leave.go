package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type LeaveStatus string

const (
	LeaveStatusPending  LeaveStatus = "PENDING"
	LeaveStatusApproved LeaveStatus = "APPROVED"
	LeaveStatusRejected LeaveStatus = "REJECTED"
)

func (s LeaveStatus) Valid() bool {
	switch s {
	case LeaveStatusPending, LeaveStatusApproved, LeaveStatusRejected:
		return true
	}
	return false
}

type LeaveRequest struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID      string          `bson:"user_id" json:"userId"`
	Date        string          `bson:"date" json:"date"` // YYYY-MM-DD
	Hours       decimal.Decimal `bson:"hours" json:"hours"`
	Reason      string          `bson:"reason,omitempty" json:"reason,omitempty"`
	Status      LeaveStatus     `bson:"status" json:"status"`
	ReviewedBy  string          `bson:"reviewed_by,omitempty" json:"reviewedBy,omitempty"`
	ReviewedAt  *time.Time      `bson:"reviewed_at,omitempty" json:"reviewedAt,omitempty"`
	ReviewNote  string          `bson:"review_note,omitempty" json:"reviewNote,omitempty"`
	AddedBy     string          `bson:"added_by,omitempty" json:"addedBy,omitempty"`
	TimeEntryID *bson.ObjectID  `bson:"time_entry_id,omitempty" json:"timeEntryId,omitempty"`
	CreatedAt   time.Time       `bson:"created_at" json:"createdAt"`
}

// LeaveReview is the reviewer state written on a PENDING → APPROVED/REJECTED transition.
type LeaveReview struct {
	Status      LeaveStatus
	ReviewedBy  string
	ReviewedAt  time.Time
	ReviewNote  string
	TimeEntryID *bson.ObjectID
}

type LeaveFilter struct {
	UserID string
	Status LeaveStatus
}
