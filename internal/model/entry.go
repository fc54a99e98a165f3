package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type EntryType string

const (
	EntryTypeRegular       EntryType = "REGULAR"
	EntryTypePaidLeave     EntryType = "PAID_LEAVE"
	EntryTypeApprovedLeave EntryType = "APPROVED_LEAVE"
)

// Valid reports whether t is one of the known entry kinds.
func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeRegular, EntryTypePaidLeave, EntryTypeApprovedLeave:
		return true
	}
	return false
}

// IsLeave reports whether entries of this kind are produced by the leave and holiday workflows.
func (t EntryType) IsLeave() bool {
	return t == EntryTypePaidLeave || t == EntryTypeApprovedLeave
}

// TimeEntry is one ledger record of hours worked or taken.
type TimeEntry struct {
	ID          bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID      string          `bson:"user_id" json:"userId"`
	ProjectID   *bson.ObjectID  `bson:"project_id,omitempty" json:"projectId,omitempty"`
	EntryType   EntryType       `bson:"entry_type" json:"entryType"`
	Date        string          `bson:"date" json:"date"` // YYYY-MM-DD
	Hours       decimal.Decimal `bson:"hours" json:"hours"`
	Description string          `bson:"description,omitempty" json:"description,omitempty"`
	AddedBy     string          `bson:"added_by,omitempty" json:"addedBy,omitempty"`
	AddedByNote string          `bson:"added_by_note,omitempty" json:"addedByNote,omitempty"`
	CreatedAt   time.Time       `bson:"created_at" json:"createdAt"`
}

// EntryFilter narrows time entry listings. Empty fields match everything.
type EntryFilter struct {
	UserID    string
	ProjectID *bson.ObjectID
	StartDate string
	EndDate   string
	Types     []EntryType
}

// EntryUpdate holds the mutable fields of a time entry. Nil fields are left unchanged.
type EntryUpdate struct {
	ProjectID   *bson.ObjectID
	Hours       *decimal.Decimal
	Description *string
	AddedByNote *string
}
