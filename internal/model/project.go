package model

import (
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type ProjectStatus string

const (
	ProjectStatusActive    ProjectStatus = "ACTIVE"
	ProjectStatusInactive  ProjectStatus = "INACTIVE"
	ProjectStatusCompleted ProjectStatus = "COMPLETED"
)

func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectStatusActive, ProjectStatusInactive, ProjectStatusCompleted:
		return true
	}
	return false
}

// Project carries the running hour budget. HoursBudget always equals the sum of the
// project's BudgetAdjustment amounts; BudgetVersion increments on every change to it.
type Project struct {
	ID            bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string          `bson:"name" json:"name"`
	Code          string          `bson:"code" json:"code"`
	Description   string          `bson:"description,omitempty" json:"description,omitempty"`
	Status        ProjectStatus   `bson:"status" json:"status"`
	HoursBudget   decimal.Decimal `bson:"hours_budget" json:"hoursBudget"`
	BudgetVersion int64           `bson:"budget_version" json:"-"`
	CreatedAt     time.Time       `bson:"created_at" json:"createdAt"`
}

type ProjectUpdate struct {
	Name        *string
	Code        *string
	Description *string
	Status      *ProjectStatus
}

// BudgetAdjustment is one immutable record of the budget ledger.
type BudgetAdjustment struct {
	ID               bson.ObjectID   `bson:"_id,omitempty" json:"id"`
	ProjectID        bson.ObjectID   `bson:"project_id" json:"projectId"`
	AdjustedBy       string          `bson:"adjusted_by" json:"adjustedBy"`
	AdjustmentAmount decimal.Decimal `bson:"adjustment_amount" json:"adjustmentAmount"`
	PreviousBudget   decimal.Decimal `bson:"previous_budget" json:"previousBudget"`
	NewBudget        decimal.Decimal `bson:"new_budget" json:"newBudget"`
	Reason           string          `bson:"reason" json:"reason"`
	CreatedAt        time.Time       `bson:"created_at" json:"createdAt"`
}

type ProjectMember struct {
	ProjectID  bson.ObjectID `bson:"project_id" json:"projectId"`
	UserID     string        `bson:"user_id" json:"userId"`
	AssignedAt time.Time     `bson:"assigned_at" json:"assignedAt"`
}

// Utilization is derived from the ledger on read and never persisted.
type Utilization struct {
	Project        *Project        `json:"project"`
	LoggedHours    decimal.Decimal `json:"loggedHours"`
	RemainingHours decimal.Decimal `json:"remainingHours"`
	PercentUsed    int64           `json:"percentUsed"`
}
