package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Version is an immutable snapshot of a table's row/cell data.
// VersionNumber is allocated by the snapshot manager and forms the
// contiguous sequence 1..N per table.
type Version struct {
	ID            uuid.UUID `gorm:"type:char(36);primaryKey"`
	TableID       uuid.UUID `gorm:"type:char(36);not null;uniqueIndex:idx_versions_table_number"`
	VersionNumber int       `gorm:"not null;uniqueIndex:idx_versions_table_number"`
	Comment       string    `gorm:"size:500;not null"`
	CreatedBy     uuid.UUID `gorm:"type:char(36);not null"`
	CreatedAt     time.Time
	Context       datatypes.JSON `gorm:"type:json"`
}

// VersionCell is one frozen (row_index, column_name, value) triple.
// Column identity is by NAME, not a foreign key: snapshots must survive
// later column rename/delete in the live schema.
type VersionCell struct {
	ID         uuid.UUID `gorm:"type:char(36);primaryKey"`
	VersionID  uuid.UUID `gorm:"type:char(36);not null;index"`
	ColumnName string    `gorm:"size:255;not null"`
	RowIndex   int       `gorm:"not null"`
	Value      *string   `gorm:"size:1024"`
}

// TableName overrides the table name for Version
func (Version) TableName() string {
	return "assumption_versions"
}

// TableName overrides the table name for VersionCell
func (VersionCell) TableName() string {
	return "assumption_version_cells"
}

func (v *Version) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (c *VersionCell) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
