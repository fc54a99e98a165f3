package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// ClockSession is a live-tracked work interval. A session is open while ClockOutAt is nil;
// Open mirrors that state so the store can index it.
type ClockSession struct {
	ID           bson.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID       string         `bson:"user_id" json:"userId"`
	Open         bool           `bson:"open" json:"-"`
	ClockInAt    time.Time      `bson:"clock_in_at" json:"clockInAt"`
	ClockOutAt   *time.Time     `bson:"clock_out_at,omitempty" json:"clockOutAt,omitempty"`
	ProjectID    *bson.ObjectID `bson:"project_id,omitempty" json:"projectId,omitempty"`
	Description  string         `bson:"description,omitempty" json:"description,omitempty"`
	AutoClockOut bool           `bson:"auto_clock_out" json:"autoClockOut"`
	// Acknowledged is set once an auto-closed session has been surfaced to its owner.
	Acknowledged bool           `bson:"acknowledged" json:"-"`
	TimeEntryID  *bson.ObjectID `bson:"time_entry_id,omitempty" json:"timeEntryId,omitempty"`
	CreatedAt    time.Time      `bson:"created_at" json:"createdAt"`
}

// SessionClose is the final state written to a session when it is closed.
type SessionClose struct {
	ClockOutAt   time.Time
	ProjectID    *bson.ObjectID
	Description  string
	AutoClockOut bool
	Acknowledged bool
	TimeEntryID  bson.ObjectID
}

// AutoClosedSession summarizes a session that was closed automatically.
type AutoClosedSession struct {
	ID          bson.ObjectID   `json:"id"`
	ClockInAt   time.Time       `json:"clockInAt"`
	ClockOutAt  time.Time       `json:"clockOutAt"`
	TimeEntryID bson.ObjectID   `json:"timeEntryId"`
	Hours       decimal.Decimal `json:"hours"`
}

// ClockStatus is the answer to a status query.
type ClockStatus struct {
	Active            bool               `json:"active"`
	SessionID         *bson.ObjectID     `json:"sessionId,omitempty"`
	ClockInAt         *time.Time         `json:"clockInAt,omitempty"`
	ElapsedSeconds    int64              `json:"elapsedSeconds,omitempty"`
	AutoClosedSession *AutoClosedSession `json:"autoClosedSession,omitempty"`
}
