// versioning.go
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
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/actudb/internal/coerce"
	"github.com/localnerve/actudb/internal/config"
	"github.com/localnerve/actudb/internal/models"
	"github.com/localnerve/actudb/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/hints"
)

const snapshotBatchSize = 500

// VersioningService manages immutable version snapshots of assumption tables.
type VersioningService struct {
	DB   *gorm.DB
	Cfg  *config.Config
	Live LiveTableStore
}

// NewVersioningService creates a VersioningService
func NewVersioningService(db *gorm.DB, cfg *config.Config, live LiveTableStore) *VersioningService {
	return &VersioningService{DB: db, Cfg: cfg, Live: live}
}

// VersionMeta is a version's metadata joined with its approval status.
type VersionMeta struct {
	ID            uuid.UUID `json:"id"`
	TableID       uuid.UUID `json:"tableId"`
	VersionNumber int       `json:"versionNumber"`
	Comment       string    `json:"comment"`
	CreatedBy     uuid.UUID `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	Status        string    `json:"status"`
}

// VersionRow is one snapshotted row with cell values coerced to the
// column's current data kind.
type VersionRow struct {
	Index int                    `json:"rowIndex"`
	Cells map[string]interface{} `json:"cells"`
}

// VersionData is a full snapshot: metadata plus typed rows.
type VersionData struct {
	VersionMeta
	Rows []VersionRow `json:"rows"`
}

// CreateVersion snapshots the table's current live rows as the next version.
// Version numbers are contiguous per table; concurrent snapshots of the same
// table serialize on the table row lock.
func (s *VersioningService) CreateVersion(actor Actor, tableID uuid.UUID, comment string) (*VersionMeta, error) {
	if err := requireRole(actor, models.RoleAnalyst, models.RoleAdmin); err != nil {
		return nil, err
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return nil, types.NewValidation("version comment is required")
	}
	if len(comment) > s.Cfg.VersionCommentMaxLength {
		return nil, types.NewValidation("version comment exceeds %d characters", s.Cfg.VersionCommentMaxLength)
	}

	meta, err := s.snapshotTable(actor, tableID, comment)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another writer took the number between MAX and INSERT; the table
		// row lock normally prevents this. Retry in a fresh transaction
		// (the failed INSERT aborts the first one on some dialects).
		meta, err = s.snapshotTable(actor, tableID, comment)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, types.NewConflict("version number allocation conflict for table %s", tableID)
		}
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// snapshotTable runs one snapshot attempt in its own transaction.
func (s *VersioningService) snapshotTable(actor Actor, tableID uuid.UUID, comment string) (*VersionMeta, error) {
	var meta *VersionMeta
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		table, err := s.requireTableForUpdate(tx, actor, tableID)
		if err != nil {
			return err
		}
		version, err := s.createSnapshotTx(tx, actor, table.ID, comment, nil)
		if err != nil {
			return err
		}
		meta = &VersionMeta{
			ID:            version.ID,
			TableID:       version.TableID,
			VersionNumber: version.VersionNumber,
			Comment:       version.Comment,
			CreatedBy:     version.CreatedBy,
			CreatedAt:     version.CreatedAt,
			Status:        models.StatusDraft,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// snapshotContext is stored on the version row as audit provenance.
type snapshotContext struct {
	Rows         int  `json:"rows"`
	Cells        int  `json:"cells"`
	RestoredFrom *int `json:"restoredFrom,omitempty"`
}

// createSnapshotTx allocates the next version number, freezes the live rows,
// and seeds the approval record. Must run inside a transaction holding the
// table row lock.
func (s *VersioningService) createSnapshotTx(tx *gorm.DB, actor Actor, tableID uuid.UUID, comment string, restoredFrom *int) (*models.Version, error) {
	rows, err := s.Live.ReadRows(tx, tableID)
	if err != nil {
		return nil, err
	}
	cellCount := 0
	for _, row := range rows {
		cellCount += len(row.Cells)
	}
	provenance, err := json.Marshal(snapshotContext{
		Rows:         len(rows),
		Cells:        cellCount,
		RestoredFrom: restoredFrom,
	})
	if err != nil {
		return nil, err
	}

	version, err := s.insertVersion(tx, actor, tableID, comment, provenance)
	if err != nil {
		return nil, err
	}

	cells := make([]models.VersionCell, 0, cellCount)
	for _, row := range rows {
		for name, value := range row.Cells {
			cells = append(cells, models.VersionCell{
				VersionID:  version.ID,
				ColumnName: name,
				RowIndex:   row.Index,
				Value:      value,
			})
		}
	}
	if len(cells) > 0 {
		if err := tx.CreateInBatches(&cells, snapshotBatchSize).Error; err != nil {
			return nil, err
		}
	}

	approval := models.VersionApproval{VersionID: version.ID, Status: models.StatusDraft}
	if err := tx.Create(&approval).Error; err != nil {
		return nil, err
	}
	entry := models.ApprovalHistoryEntry{
		VersionID: version.ID,
		ToStatus:  models.StatusDraft,
		ChangedBy: actor.UserID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}

	return version, nil
}

func (s *VersioningService) insertVersion(tx *gorm.DB, actor Actor, tableID uuid.UUID, comment string, provenance []byte) (*models.Version, error) {
	var maxNumber int
	err := tx.Model(&models.Version{}).
		Where("table_id = ?", tableID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&maxNumber).Error
	if err != nil {
		return nil, err
	}

	version := models.Version{
		TableID:       tableID,
		VersionNumber: maxNumber + 1,
		Comment:       comment,
		CreatedBy:     actor.UserID,
		Context:       datatypes.JSON(provenance),
	}
	if err := tx.Create(&version).Error; err != nil {
		return nil, err
	}
	return &version, nil
}

// ListVersions returns the table's versions, newest first, optionally
// filtered by approval status.
func (s *VersioningService) ListVersions(actor Actor, tableID uuid.UUID, statuses []string) ([]VersionMeta, error) {
	if _, err := s.requireTable(s.DB, actor, tableID); err != nil {
		return nil, err
	}
	for _, status := range statuses {
		if !validStatus(status) {
			return nil, types.NewValidation("unknown approval status %q", status)
		}
	}

	query := s.DB.Table("assumption_versions AS v").
		Select("v.id, v.table_id, v.version_number, v.comment, v.created_by, v.created_at, COALESCE(a.status, 'draft') AS status").
		Joins("LEFT JOIN version_approvals a ON a.version_id = v.id").
		Where("v.table_id = ?", tableID)
	if s.DB.Dialector.Name() == "mysql" {
		query = query.Clauses(hints.UseIndex("idx_versions_table_number"))
	}
	if len(statuses) > 0 {
		query = query.Where("COALESCE(a.status, 'draft') IN ?", statuses)
	}

	var versions []VersionMeta
	if err := query.Order("v.version_number DESC").Scan(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// CountVersions returns the number of versions snapshotted for the table.
func (s *VersioningService) CountVersions(actor Actor, tableID uuid.UUID) (int64, error) {
	if _, err := s.requireTable(s.DB, actor, tableID); err != nil {
		return 0, err
	}
	var count int64
	err := s.DB.Model(&models.Version{}).Where("table_id = ?", tableID).Count(&count).Error
	return count, err
}

// GetVersion returns one version's metadata with its approval status.
func (s *VersioningService) GetVersion(actor Actor, versionID uuid.UUID) (*VersionMeta, error) {
	version, err := s.requireVersion(s.DB, actor, versionID)
	if err != nil {
		return nil, err
	}
	meta := VersionMeta{
		ID:            version.ID,
		TableID:       version.TableID,
		VersionNumber: version.VersionNumber,
		Comment:       version.Comment,
		CreatedBy:     version.CreatedBy,
		CreatedAt:     version.CreatedAt,
		Status:        models.StatusDraft,
	}
	var approval models.VersionApproval
	err = s.DB.Where("version_id = ?", versionID).First(&approval).Error
	if err == nil {
		meta.Status = approval.Status
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return &meta, nil
}

// GetVersionByNumber resolves a table-scoped version number to the version.
func (s *VersioningService) GetVersionByNumber(actor Actor, tableID uuid.UUID, number int) (*VersionMeta, error) {
	if _, err := s.requireTable(s.DB, actor, tableID); err != nil {
		return nil, err
	}
	var version models.Version
	err := s.DB.Where("table_id = ? AND version_number = ?", tableID, number).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFound("version %d not found for table %s", number, tableID)
	}
	if err != nil {
		return nil, err
	}
	return s.GetVersion(actor, version.ID)
}

// GetVersionData returns the version's metadata plus its snapshotted rows,
// cell values coerced to the column's current data kind. Columns that no
// longer exist in the live schema fall back to text.
func (s *VersioningService) GetVersionData(actor Actor, versionID uuid.UUID) (*VersionData, error) {
	meta, err := s.GetVersion(actor, versionID)
	if err != nil {
		return nil, err
	}
	rows, err := s.typedRows(actor, meta)
	if err != nil {
		return nil, err
	}
	return &VersionData{VersionMeta: *meta, Rows: rows}, nil
}

func (s *VersioningService) typedRows(actor Actor, meta *VersionMeta) ([]VersionRow, error) {
	columns, err := s.Live.ListColumns(s.DB, meta.TableID)
	if err != nil {
		return nil, err
	}
	kinds := make(map[string]string, len(columns))
	for _, col := range columns {
		kinds[col.Name] = col.DataKind
	}

	var cells []models.VersionCell
	err = s.DB.Where("version_id = ?", meta.ID).
		Order("row_index").
		Find(&cells).Error
	if err != nil {
		return nil, err
	}

	byIndex := make(map[int]*VersionRow)
	order := make([]int, 0)
	for _, cell := range cells {
		row, ok := byIndex[cell.RowIndex]
		if !ok {
			row = &VersionRow{Index: cell.RowIndex, Cells: make(map[string]interface{})}
			byIndex[cell.RowIndex] = row
			order = append(order, cell.RowIndex)
		}
		kind, ok := kinds[cell.ColumnName]
		if !ok {
			kind = models.KindText
		}
		typed, err := coerce.Parse(cell.Value, kind)
		if err != nil {
			// Stored before a column kind change; surface the raw text.
			row.Cells[cell.ColumnName] = deref(cell.Value)
			continue
		}
		row.Cells[cell.ColumnName] = coerce.JSONValue(typed)
	}

	rows := make([]VersionRow, 0, len(order))
	for _, idx := range order {
		rows = append(rows, *byIndex[idx])
	}
	return rows, nil
}

// RestoreVersion replaces the table's live rows with the snapshot's rows and
// immediately snapshots the restored state as a new version. Snapshot column
// names that no longer exist in the live schema are dropped.
func (s *VersioningService) RestoreVersion(actor Actor, versionID uuid.UUID) (*VersionMeta, error) {
	if err := requireRole(actor, models.RoleAnalyst, models.RoleAdmin); err != nil {
		return nil, err
	}

	var meta *VersionMeta
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		version, err := s.requireVersion(tx, actor, versionID)
		if err != nil {
			return err
		}
		if _, err := s.requireTableForUpdate(tx, actor, version.TableID); err != nil {
			return err
		}

		var cells []models.VersionCell
		err = tx.Where("version_id = ?", version.ID).
			Order("row_index").
			Find(&cells).Error
		if err != nil {
			return err
		}
		byIndex := make(map[int]*LiveRow)
		order := make([]int, 0)
		for _, cell := range cells {
			row, ok := byIndex[cell.RowIndex]
			if !ok {
				row = &LiveRow{Index: cell.RowIndex, Cells: make(map[string]*string)}
				byIndex[cell.RowIndex] = row
				order = append(order, cell.RowIndex)
			}
			row.Cells[cell.ColumnName] = cell.Value
		}
		rows := make([]LiveRow, 0, len(order))
		for _, idx := range order {
			rows = append(rows, *byIndex[idx])
		}

		if err := s.Live.ReplaceRows(tx, version.TableID, rows); err != nil {
			return err
		}

		comment := fmt.Sprintf("Restored from version %d", version.VersionNumber)
		restored, err := s.createSnapshotTx(tx, actor, version.TableID, comment, &version.VersionNumber)
		if err != nil {
			return err
		}
		meta = &VersionMeta{
			ID:            restored.ID,
			TableID:       restored.TableID,
			VersionNumber: restored.VersionNumber,
			Comment:       restored.Comment,
			CreatedBy:     restored.CreatedBy,
			CreatedAt:     restored.CreatedAt,
			Status:        models.StatusDraft,
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, types.NewConflict("version number allocation conflict for version %s", versionID)
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// DeleteVersion removes a version and all of its dependent records.
// Approved versions are immutable audit artifacts and cannot be deleted;
// a table must always retain at least one version.
func (s *VersioningService) DeleteVersion(actor Actor, versionID uuid.UUID) error {
	if err := requireRole(actor, models.RoleAdmin); err != nil {
		return err
	}

	return s.DB.Transaction(func(tx *gorm.DB) error {
		version, err := s.requireVersion(tx, actor, versionID)
		if err != nil {
			return err
		}
		if _, err := s.requireTableForUpdate(tx, actor, version.TableID); err != nil {
			return err
		}

		var approval models.VersionApproval
		err = tx.Where("version_id = ?", version.ID).First(&approval).Error
		if err == nil && approval.Status == models.StatusApproved {
			return types.NewConflict("version %d is approved and cannot be deleted", version.VersionNumber)
		}
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var count int64
		if err := tx.Model(&models.Version{}).Where("table_id = ?", version.TableID).Count(&count).Error; err != nil {
			return err
		}
		if count <= 1 {
			return types.NewValidation("cannot delete the only version of a table")
		}

		if err := tx.Where("version_id = ?", version.ID).Delete(&models.ApprovalHistoryEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("version_id = ?", version.ID).Delete(&models.VersionApproval{}).Error; err != nil {
			return err
		}
		if err := tx.Where("version_id = ?", version.ID).Delete(&models.VersionCell{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Version{}, "id = ?", version.ID).Error
	})
}

// requireTable loads a table scoped to the actor's tenant. Tables outside
// the tenant are indistinguishable from missing ones.
func (s *VersioningService) requireTable(db *gorm.DB, actor Actor, tableID uuid.UUID) (*models.AssumptionTable, error) {
	var table models.AssumptionTable
	err := db.Where("id = ? AND tenant_id = ?", tableID, actor.TenantID).First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFound("table %s not found", tableID)
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// requireTableForUpdate locks the table row for the transaction's duration,
// serializing version-number allocation and restore against concurrent writers.
func (s *VersioningService) requireTableForUpdate(tx *gorm.DB, actor Actor, tableID uuid.UUID) (*models.AssumptionTable, error) {
	query := tx.Where("id = ? AND tenant_id = ?", tableID, actor.TenantID)
	if tx.Dialector.Name() != "sqlite" {
		// SQLite has no FOR UPDATE; its database-level write lock covers this.
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var table models.AssumptionTable
	err := query.First(&table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFound("table %s not found", tableID)
	}
	if err != nil {
		return nil, err
	}
	return &table, nil
}

// requireVersion loads a version and verifies its table belongs to the
// actor's tenant.
func (s *VersioningService) requireVersion(db *gorm.DB, actor Actor, versionID uuid.UUID) (*models.Version, error) {
	var version models.Version
	err := db.Where("id = ?", versionID).First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewNotFound("version %s not found", versionID)
	}
	if err != nil {
		return nil, err
	}
	if _, err := s.requireTable(db, actor, version.TableID); err != nil {
		return nil, types.NewNotFound("version %s not found", versionID)
	}
	return &version, nil
}

func validStatus(status string) bool {
	switch status {
	case models.StatusDraft, models.StatusSubmitted, models.StatusApproved, models.StatusRejected:
		return true
	}
	return false
}

func deref(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}
