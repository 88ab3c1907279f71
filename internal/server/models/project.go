package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	StatusDraft     ProjectStatus = "draft"
	StatusActive    ProjectStatus = "active"
	StatusCompleted ProjectStatus = "completed"
	StatusRejected  ProjectStatus = "rejected"
)

// Valid reports whether s is one of the four known statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusActive, StatusCompleted, StatusRejected:
		return true
	}
	return false
}

// Project is a fundraising campaign. CurrentAmount only ever changes through
// the contribution transaction.
type Project struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	GoalAmount    decimal.Decimal `json:"goalAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	UserID        int64           `json:"userId"`
	OwnerName     string          `json:"ownerName,omitempty"`
	Status        ProjectStatus   `json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// ProjectFilter narrows project listings. A zero value lists everything.
type ProjectFilter struct {
	Status ProjectStatus
	UserID int64
}
