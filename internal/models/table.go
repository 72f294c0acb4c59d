package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Column data kinds supported by assumption tables
const (
	KindText    = "text"
	KindInteger = "integer"
	KindDecimal = "decimal"
	KindDate    = "date"
	KindBoolean = "boolean"
)

// AssumptionTable represents a tenant-owned actuarial assumption table
type AssumptionTable struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	TenantID      uuid.UUID `gorm:"type:char(36);not null;index"`
	Name          string    `gorm:"size:255;not null"`
	Description   string    `gorm:"size:1024"`
	EffectiveDate *time.Time
	CreatedBy     uuid.UUID `gorm:"type:char(36);not null"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AssumptionColumn represents a column definition of a live table
type AssumptionColumn struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	TableID   uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_columns_table_name"`
	Name      string    `gorm:"size:255;not null;uniqueIndex:idx_columns_table_name"`
	DataKind  string    `gorm:"size:20;not null;default:text"`
	Position  int       `gorm:"not null"`
	CreatedAt time.Time
}

// AssumptionRow represents a row of live table data, identified by its index
type AssumptionRow struct {
	ID        uuid.UUID `gorm:"type:char(36);primaryKey"`
	TableID   uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_rows_table_index"`
	RowIndex  int       `gorm:"not null;uniqueIndex:idx_rows_table_index"`
	CreatedAt time.Time
}

// AssumptionCell holds one live cell value; Value is nullable text
// interpreted per the column's data kind
type AssumptionCell struct {
	ID       uuid.UUID `gorm:"type:char(36);primaryKey"`
	RowID    uuid.UUID `gorm:"type:char(36);not null;index"`
	ColumnID uuid.UUID `gorm:"type:char(36);not null"`
	Value    *string   `gorm:"size:1024"`
}

// TableName overrides the table name for AssumptionTable
func (AssumptionTable) TableName() string {
	return "assumption_tables"
}

// TableName overrides the table name for AssumptionColumn
func (AssumptionColumn) TableName() string {
	return "assumption_columns"
}

// TableName overrides the table name for AssumptionRow
func (AssumptionRow) TableName() string {
	return "assumption_rows"
}

// TableName overrides the table name for AssumptionCell
func (AssumptionCell) TableName() string {
	return "assumption_cells"
}

func (t *AssumptionTable) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

func (c *AssumptionColumn) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (r *AssumptionRow) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (c *AssumptionCell) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
