package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Approval workflow statuses. StatusApproved is terminal.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// Actor roles known to the role directory
const (
	RoleViewer  = "viewer"
	RoleAnalyst = "analyst"
	RoleAdmin   = "admin"
)

// VersionApproval is the one-to-one approval status record of a Version
type VersionApproval struct {
	ID          uuid.UUID  `gorm:"type:char(36);primaryKey"`
	VersionID   uuid.UUID  `gorm:"type:char(36);not null;uniqueIndex"`
	Status      string     `gorm:"size:20;not null;default:draft"`
	SubmittedBy *uuid.UUID `gorm:"type:char(36)"`
	SubmittedAt *time.Time
	ReviewedBy  *uuid.UUID `gorm:"type:char(36)"`
	ReviewedAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ApprovalHistoryEntry is the append-only record of one status transition.
// FromStatus is null only for the entry written at version creation.
// Entries are never updated or deleted.
type ApprovalHistoryEntry struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey"`
	VersionID  uuid.UUID `gorm:"type:char(36);not null;index"`
	FromStatus *string   `gorm:"size:20"`
	ToStatus   string    `gorm:"size:20;not null"`
	ChangedBy  uuid.UUID `gorm:"type:char(36);not null"`
	Comment    *string   `gorm:"size:500"`
	CreatedAt  time.Time
}

// TableName overrides the table name for VersionApproval
func (VersionApproval) TableName() string {
	return "version_approvals"
}

// TableName overrides the table name for ApprovalHistoryEntry
func (ApprovalHistoryEntry) TableName() string {
	return "version_approval_history"
}

func (a *VersionApproval) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

func (h *ApprovalHistoryEntry) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}
