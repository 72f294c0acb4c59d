// approvals.go
//
// A version snapshot, diff, and approval data service for actuarial assumption tables
// Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC
//
// This file is part of actudb.
// actudb is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the Free Software
// Foundation, either version 3 of the License, or (at your option) any later version.
// actudb is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY;
// without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.
// See the GNU Affero General Public License for more details.
// You should have received a copy of the GNU Affero General Public License along with actudb.
// If not, see <https://www.gnu.org/licenses/>.
// Additional terms under GNU AGPL version 3 section 7:
// a) The reasonable legal notice of original copyright and author attribution must be preserved
//    by including the string: "Copyright (c) 2026 Alex Grant <info@localnerve.com> (https://www.localnerve.com), LocalNerve LLC"
//    in this material, copies, or source code of derived works.

package services

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/actudb/internal/config"
	"github.com/localnerve/actudb/internal/models"
	"github.com/localnerve/actudb/internal/types"
	"gorm.io/gorm"
)

// ApprovalService drives a version's review workflow:
// draft -> submitted -> approved | rejected, rejected -> submitted.
// Approved is terminal.
type ApprovalService struct {
	DB         *gorm.DB
	Cfg        *config.Config
	Versioning *VersioningService
}

// NewApprovalService creates an ApprovalService
func NewApprovalService(db *gorm.DB, cfg *config.Config, versioning *VersioningService) *ApprovalService {
	return &ApprovalService{DB: db, Cfg: cfg, Versioning: versioning}
}

// transitionRule describes one legal edge of the workflow.
type transitionRule struct {
	name            string
	from            string
	to              string
	roles           []string
	commentRequired bool
}

var (
	submitRule   = transitionRule{"submit", models.StatusDraft, models.StatusSubmitted, []string{models.RoleAnalyst, models.RoleAdmin}, false}
	resubmitRule = transitionRule{"resubmit", models.StatusRejected, models.StatusSubmitted, []string{models.RoleAnalyst, models.RoleAdmin}, true}
	approveRule  = transitionRule{"approve", models.StatusSubmitted, models.StatusApproved, []string{models.RoleAdmin}, false}
	rejectRule   = transitionRule{"reject", models.StatusSubmitted, models.StatusRejected, []string{models.RoleAdmin}, true}
)

// Submit moves a draft version into review.
func (s *ApprovalService) Submit(actor Actor, versionID uuid.UUID, comment string) (*VersionMeta, error) {
	return s.transition(actor, versionID, comment, submitRule)
}

// Resubmit moves a rejected version back into review. A comment explaining
// what changed is mandatory.
func (s *ApprovalService) Resubmit(actor Actor, versionID uuid.UUID, comment string) (*VersionMeta, error) {
	return s.transition(actor, versionID, comment, resubmitRule)
}

// Approve finalizes a submitted version. Approved versions are terminal.
func (s *ApprovalService) Approve(actor Actor, versionID uuid.UUID, comment string) (*VersionMeta, error) {
	return s.transition(actor, versionID, comment, approveRule)
}

// Reject returns a submitted version to its author. The rejection comment
// is mandatory so the author knows what to fix.
func (s *ApprovalService) Reject(actor Actor, versionID uuid.UUID, comment string) (*VersionMeta, error) {
	return s.transition(actor, versionID, comment, rejectRule)
}

func (s *ApprovalService) transition(actor Actor, versionID uuid.UUID, comment string, rule transitionRule) (*VersionMeta, error) {
	if err := requireRole(actor, rule.roles...); err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if rule.commentRequired && len(comment) < s.Cfg.ReviewCommentMinLength {
		return nil, types.NewValidation("%s requires a comment of at least %d characters", rule.name, s.Cfg.ReviewCommentMinLength)
	}
	if comment != "" && len(comment) > s.Cfg.ReviewCommentMaxLength {
		return nil, types.NewValidation("comment exceeds %d characters", s.Cfg.ReviewCommentMaxLength)
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		version, err := s.Versioning.requireVersion(tx, actor, versionID)
		if err != nil {
			return err
		}

		now := time.Now()
		updates := map[string]interface{}{
			"status":     rule.to,
			"updated_at": now,
		}
		switch rule.to {
		case models.StatusSubmitted:
			// A fresh submission invalidates any prior review.
			updates["submitted_by"] = actor.UserID
			updates["submitted_at"] = now
			updates["reviewed_by"] = nil
			updates["reviewed_at"] = nil
		case models.StatusApproved, models.StatusRejected:
			updates["reviewed_by"] = actor.UserID
			updates["reviewed_at"] = now
		}

		// Conditional update: the status guard makes concurrent transitions
		// on the same version race safely, exactly one writer wins.
		res := tx.Model(&models.VersionApproval{}).
			Where("version_id = ? AND status = ?", version.ID, rule.from).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			current := models.StatusDraft
			var approval models.VersionApproval
			err := tx.Where("version_id = ?", version.ID).First(&approval).Error
			if err == nil {
				current = approval.Status
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			return types.NewInvalidTransition(current,
				"cannot %s version %d from status %q", rule.name, version.VersionNumber, current)
		}

		entry := models.ApprovalHistoryEntry{
			VersionID:  version.ID,
			FromStatus: &rule.from,
			ToStatus:   rule.to,
			ChangedBy:  actor.UserID,
		}
		if comment != "" {
			entry.Comment = &comment
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Versioning.GetVersion(actor, versionID)
}

// HistoryEntry is one audit record of a version's workflow.
type HistoryEntry struct {
	ID         uuid.UUID `json:"id"`
	VersionID  uuid.UUID `json:"versionId"`
	FromStatus *string   `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ChangedBy  uuid.UUID `json:"changedBy"`
	Comment    *string   `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
}

// GetHistory returns the version's full audit trail, oldest first. The first
// entry is always the creation record (from null to draft).
func (s *ApprovalService) GetHistory(actor Actor, versionID uuid.UUID) ([]HistoryEntry, error) {
	if _, err := s.Versioning.requireVersion(s.DB, actor, versionID); err != nil {
		return nil, err
	}

	var records []models.ApprovalHistoryEntry
	err := s.DB.Where("version_id = ?", versionID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(records))
	for _, r := range records {
		entries = append(entries, HistoryEntry{
			ID:         r.ID,
			VersionID:  r.VersionID,
			FromStatus: r.FromStatus,
			ToStatus:   r.ToStatus,
			ChangedBy:  r.ChangedBy,
			Comment:    r.Comment,
			CreatedAt:  r.CreatedAt,
		})
	}
	return entries, nil
}
