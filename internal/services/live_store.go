package services

import (
	"github.com/google/uuid"
	"github.com/localnerve/actudb/internal/models"
	"gorm.io/gorm"
)

// LiveRow is one live table row keyed by column name. Cell values are
// nullable text, interpreted per the column's data kind.
type LiveRow struct {
	Index int
	Cells map[string]*string
}

// LiveTableStore is the live-state collaborator consumed by the snapshot
// manager. The tx handle carries the caller's transaction and context so
// reads and replacements stay atomic with snapshot bookkeeping.
type LiveTableStore interface {
	ReadRows(tx *gorm.DB, tableID uuid.UUID) ([]LiveRow, error)
	ReplaceRows(tx *gorm.DB, tableID uuid.UUID, rows []LiveRow) error
	ListColumns(tx *gorm.DB, tableID uuid.UUID) ([]models.AssumptionColumn, error)
}

// NewLiveTableStore returns the GORM-backed live table store.
func NewLiveTableStore() LiveTableStore {
	return gormLiveStore{}
}

type gormLiveStore struct{}

type liveCellScan struct {
	RowIndex   int
	ColumnName string
	Value      *string
}

// ReadRows returns every (row_index, column_name) pair with a defined
// value. Rows whose cells are all undefined do not appear.
func (gormLiveStore) ReadRows(tx *gorm.DB, tableID uuid.UUID) ([]LiveRow, error) {
	var cells []liveCellScan
	err := tx.Table("assumption_cells AS ac").
		Select("ar.row_index AS row_index, acol.name AS column_name, ac.value AS value").
		Joins("JOIN assumption_rows ar ON ar.id = ac.row_id").
		Joins("JOIN assumption_columns acol ON acol.id = ac.column_id").
		Where("ar.table_id = ?", tableID).
		Order("ar.row_index").
		Scan(&cells).Error
	if err != nil {
		return nil, err
	}

	byIndex := make(map[int]*LiveRow)
	order := make([]int, 0)
	for _, c := range cells {
		row, ok := byIndex[c.RowIndex]
		if !ok {
			row = &LiveRow{Index: c.RowIndex, Cells: make(map[string]*string)}
			byIndex[c.RowIndex] = row
			order = append(order, c.RowIndex)
		}
		row.Cells[c.ColumnName] = c.Value
	}

	rows := make([]LiveRow, 0, len(order))
	for _, idx := range order {
		rows = append(rows, *byIndex[idx])
	}
	return rows, nil
}

// ReplaceRows atomically swaps the table's live rows/cells for the given
// set. Cell column names are re-resolved against the table's current
// column set; names that no longer exist are dropped (schema drift is
// tolerated, not an error).
func (s gormLiveStore) ReplaceRows(tx *gorm.DB, tableID uuid.UUID, rows []LiveRow) error {
	// Delete current cells, then rows
	if err := tx.Where("row_id IN (?)",
		tx.Model(&models.AssumptionRow{}).Select("id").Where("table_id = ?", tableID),
	).Delete(&models.AssumptionCell{}).Error; err != nil {
		return err
	}
	if err := tx.Where("table_id = ?", tableID).Delete(&models.AssumptionRow{}).Error; err != nil {
		return err
	}

	columns, err := s.ListColumns(tx, tableID)
	if err != nil {
		return err
	}
	columnIDs := make(map[string]uuid.UUID, len(columns))
	for _, col := range columns {
		columnIDs[col.Name] = col.ID
	}

	for _, row := range rows {
		newRow := models.AssumptionRow{TableID: tableID, RowIndex: row.Index}
		if err := tx.Create(&newRow).Error; err != nil {
			return err
		}
		for name, value := range row.Cells {
			columnID, ok := columnIDs[name]
			if !ok {
				continue
			}
			cell := models.AssumptionCell{RowID: newRow.ID, ColumnID: columnID, Value: value}
			if err := tx.Create(&cell).Error; err != nil {
				return err
			}
		}
	}

	return nil
}

// ListColumns returns the table's current column definitions in position order.
func (gormLiveStore) ListColumns(tx *gorm.DB, tableID uuid.UUID) ([]models.AssumptionColumn, error) {
	var columns []models.AssumptionColumn
	err := tx.Where("table_id = ?", tableID).
		Order("position").
		Find(&columns).Error
	if err != nil {
		return nil, err
	}
	return columns, nil
}
