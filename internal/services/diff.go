// diff.go
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
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/localnerve/actudb/internal/coerce"
	"github.com/localnerve/actudb/internal/models"
	"github.com/localnerve/actudb/internal/types"
	"gorm.io/gorm"
)

// Diff change statuses for rows and cells
const (
	ChangeAdded     = "added"
	ChangeRemoved   = "removed"
	ChangeModified  = "modified"
	ChangeUnchanged = "unchanged"
)

// DiffService compares two version snapshots of the same table.
// Comparison is on raw stored text: null and empty string are distinct.
type DiffService struct {
	DB         *gorm.DB
	Versioning *VersioningService
}

// NewDiffService creates a DiffService
func NewDiffService(db *gorm.DB, versioning *VersioningService) *DiffService {
	return &DiffService{DB: db, Versioning: versioning}
}

// DiffOptions narrows a computed diff. Filters apply to the row output
// only; the summary always describes the full diff.
type DiffOptions struct {
	Columns  []string
	RowStart *int
	RowEnd   *int
}

// DiffCell is one cell of a changed row. For added and removed rows one
// side is nil by construction; modified rows carry their unchanged cells
// too, as context.
type DiffCell struct {
	ColumnName string  `json:"columnName"`
	OldValue   *string `json:"oldValue"`
	NewValue   *string `json:"newValue"`
	Status     string  `json:"status"`
}

// DiffRow is one changed row and its cells.
type DiffRow struct {
	RowIndex int        `json:"rowIndex"`
	Status   string     `json:"status"`
	Cells    []DiffCell `json:"cells"`
}

// DiffColumnSummary aggregates changes per column. ChangeCount covers
// modified cells in matched rows plus every cell of added and removed rows.
type DiffColumnSummary struct {
	ColumnName       string `json:"columnName"`
	ChangeCount      int    `json:"changeCount"`
	HasAdditions     bool   `json:"hasAdditions"`
	HasRemovals      bool   `json:"hasRemovals"`
	HasModifications bool   `json:"hasModifications"`
}

// DiffSummary aggregates the diff. Cells inside added or removed rows are
// part of the row change and do not count as cell modifications.
type DiffSummary struct {
	RowsAdded     int `json:"rowsAdded"`
	RowsRemoved   int `json:"rowsRemoved"`
	RowsUnchanged int `json:"rowsUnchanged"`
	CellsModified int `json:"cellsModified"`
	TotalChanges  int `json:"totalChanges"`
}

// DiffVersionRef identifies one side of a comparison.
type DiffVersionRef struct {
	ID            uuid.UUID `json:"id"`
	VersionNumber int       `json:"versionNumber"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DiffResult is a full comparison of two versions of one table.
type DiffResult struct {
	TableID uuid.UUID           `json:"tableId"`
	From    DiffVersionRef      `json:"from"`
	To      DiffVersionRef      `json:"to"`
	Summary DiffSummary         `json:"summary"`
	Columns []DiffColumnSummary `json:"columns"`
	Rows    []DiffRow           `json:"rows"`
}

// ComputeDiff compares two snapshots of the same table, matching rows by
// row index. Comparing a version with itself yields an empty diff.
func (s *DiffService) ComputeDiff(actor Actor, fromID, toID uuid.UUID, opts DiffOptions) (*DiffResult, error) {
	from, err := s.Versioning.requireVersion(s.DB, actor, fromID)
	if err != nil {
		return nil, err
	}
	to, err := s.Versioning.requireVersion(s.DB, actor, toID)
	if err != nil {
		return nil, err
	}
	if from.TableID != to.TableID {
		return nil, types.NewValidation("versions %d and %d belong to different tables", from.VersionNumber, to.VersionNumber)
	}

	fromCells, err := s.snapshotCells(from.ID)
	if err != nil {
		return nil, err
	}
	toCells, err := s.snapshotCells(to.ID)
	if err != nil {
		return nil, err
	}

	result := &DiffResult{
		TableID: from.TableID,
		From:    versionRef(from),
		To:      versionRef(to),
	}

	columnDomain := make(map[string]bool)
	perColumn := make(map[string]*DiffColumnSummary)
	column := func(name string) *DiffColumnSummary {
		stat, ok := perColumn[name]
		if !ok {
			stat = &DiffColumnSummary{ColumnName: name}
			perColumn[name] = stat
		}
		return stat
	}
	for _, cells := range []map[int]map[string]*string{fromCells, toCells} {
		for _, row := range cells {
			for name := range row {
				columnDomain[name] = true
			}
		}
	}

	indexes := unionIndexes(fromCells, toCells)
	for _, idx := range indexes {
		oldRow, inFrom := fromCells[idx]
		newRow, inTo := toCells[idx]

		switch {
		case !inFrom:
			result.Summary.RowsAdded++
			row := rowChange(idx, ChangeAdded, nil, newRow)
			for _, c := range row.Cells {
				stat := column(c.ColumnName)
				stat.ChangeCount++
				stat.HasAdditions = true
			}
			result.Rows = append(result.Rows, row)
		case !inTo:
			result.Summary.RowsRemoved++
			row := rowChange(idx, ChangeRemoved, oldRow, nil)
			for _, c := range row.Cells {
				stat := column(c.ColumnName)
				stat.ChangeCount++
				stat.HasRemovals = true
			}
			result.Rows = append(result.Rows, row)
		default:
			cells, changed := matchedRowChanges(oldRow, newRow)
			if changed == 0 {
				result.Summary.RowsUnchanged++
				continue
			}
			result.Summary.CellsModified += changed
			for _, c := range cells {
				if c.Status != ChangeModified {
					continue
				}
				stat := column(c.ColumnName)
				stat.ChangeCount++
				stat.HasModifications = true
			}
			result.Rows = append(result.Rows, DiffRow{RowIndex: idx, Status: ChangeModified, Cells: cells})
		}
	}
	result.Summary.TotalChanges = result.Summary.RowsAdded + result.Summary.RowsRemoved + result.Summary.CellsModified

	names := make([]string, 0, len(perColumn))
	for name := range perColumn {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		result.Columns = append(result.Columns, *perColumn[name])
	}

	if err := applyFilters(result, opts, columnDomain); err != nil {
		return nil, err
	}
	return result, nil
}

// snapshotCells loads one version's cells as row-index keyed maps.
func (s *DiffService) snapshotCells(versionID uuid.UUID) (map[int]map[string]*string, error) {
	var cells []models.VersionCell
	err := s.DB.Where("version_id = ?", versionID).Find(&cells).Error
	if err != nil {
		return nil, err
	}
	rows := make(map[int]map[string]*string)
	for _, cell := range cells {
		row, ok := rows[cell.RowIndex]
		if !ok {
			row = make(map[string]*string)
			rows[cell.RowIndex] = row
		}
		row[cell.ColumnName] = cell.Value
	}
	return rows, nil
}

func versionRef(v *models.Version) DiffVersionRef {
	return DiffVersionRef{ID: v.ID, VersionNumber: v.VersionNumber, Comment: v.Comment, CreatedAt: v.CreatedAt}
}

func unionIndexes(a, b map[int]map[string]*string) []int {
	seen := make(map[int]bool, len(a)+len(b))
	for idx := range a {
		seen[idx] = true
	}
	for idx := range b {
		seen[idx] = true
	}
	indexes := make([]int, 0, len(seen))
	for idx := range seen {
		indexes = append(indexes, idx)
	}
	sort.Ints(indexes)
	return indexes
}

// rowChange builds the cell list of an added or removed row. Cells are
// ordered by column name for stable output.
func rowChange(idx int, status string, oldRow, newRow map[string]*string) DiffRow {
	source := oldRow
	if status == ChangeAdded {
		source = newRow
	}
	names := make([]string, 0, len(source))
	for name := range source {
		names = append(names, name)
	}
	sort.Strings(names)

	cells := make([]DiffCell, 0, len(names))
	for _, name := range names {
		cell := DiffCell{ColumnName: name, Status: status}
		if status == ChangeAdded {
			cell.NewValue = newRow[name]
		} else {
			cell.OldValue = oldRow[name]
		}
		cells = append(cells, cell)
	}
	return DiffRow{RowIndex: idx, Status: status, Cells: cells}
}

// matchedRowChanges compares two matched rows cell by cell over the union of
// their column names. A column present on one side only compares against a
// missing (null) value. Unchanged cells are included for context; the second
// return value counts the modified ones.
func matchedRowChanges(oldRow, newRow map[string]*string) ([]DiffCell, int) {
	names := make(map[string]bool, len(oldRow)+len(newRow))
	for name := range oldRow {
		names[name] = true
	}
	for name := range newRow {
		names[name] = true
	}
	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	var cells []DiffCell
	changed := 0
	for _, name := range ordered {
		oldValue := oldRow[name]
		newValue := newRow[name]
		status := ChangeModified
		if valuesEqual(oldValue, newValue) {
			status = ChangeUnchanged
		} else {
			changed++
		}
		cells = append(cells, DiffCell{
			ColumnName: name,
			OldValue:   oldValue,
			NewValue:   newValue,
			Status:     status,
		})
	}
	return cells, changed
}

// valuesEqual treats null and empty string as distinct values.
func valuesEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// applyFilters narrows the row output in place. Filtering never touches the
// summary. Requesting a column outside the diff's column domain is an error,
// not an empty result.
func applyFilters(result *DiffResult, opts DiffOptions, columnDomain map[string]bool) error {
	var keepColumn map[string]bool
	if len(opts.Columns) > 0 {
		keepColumn = make(map[string]bool, len(opts.Columns))
		for _, name := range opts.Columns {
			if !columnDomain[name] {
				return types.NewValidation("column %q does not exist in either version", name)
			}
			keepColumn[name] = true
		}
	}

	filtered := result.Rows[:0]
	for _, row := range result.Rows {
		if opts.RowStart != nil && row.RowIndex < *opts.RowStart {
			continue
		}
		if opts.RowEnd != nil && row.RowIndex > *opts.RowEnd {
			continue
		}
		if keepColumn != nil {
			cells := make([]DiffCell, 0, len(row.Cells))
			kept := 0
			for _, cell := range row.Cells {
				if keepColumn[cell.ColumnName] {
					cells = append(cells, cell)
					if cell.Status != ChangeUnchanged {
						kept++
					}
				}
			}
			// A row with nothing left but context is noise
			if kept == 0 {
				continue
			}
			row.Cells = cells
		}
		filtered = append(filtered, row)
	}
	result.Rows = filtered
	return nil
}

// ExportDiffCSV renders a computed diff as CSV, one line per changed cell.
// The output carries a UTF-8 BOM and CRLF line endings for spreadsheet
// compatibility, preceded by `# key: value` metadata comment lines.
func (s *DiffService) ExportDiffCSV(actor Actor, fromID, toID uuid.UUID, opts DiffOptions) ([]byte, error) {
	diff, err := s.ComputeDiff(actor, fromID, toID, opts)
	if err != nil {
		return nil, err
	}

	columns, err := s.Versioning.Live.ListColumns(s.DB, diff.TableID)
	if err != nil {
		return nil, err
	}
	kinds := make(map[string]string, len(columns))
	for _, col := range columns {
		kinds[col.Name] = col.DataKind
	}

	var buf bytes.Buffer
	buf.WriteString("\xEF\xBB\xBF")
	fmt.Fprintf(&buf, "# table_id: %s\r\n", diff.TableID)
	fmt.Fprintf(&buf, "# from_version: %d\r\n", diff.From.VersionNumber)
	fmt.Fprintf(&buf, "# to_version: %d\r\n", diff.To.VersionNumber)
	fmt.Fprintf(&buf, "# total_changes: %d\r\n", diff.Summary.TotalChanges)
	fmt.Fprintf(&buf, "# generated_at: %s\r\n", time.Now().UTC().Format(time.RFC3339))

	w := csv.NewWriter(&buf)
	w.UseCRLF = true
	if err := w.Write([]string{"row_index", "column_name", "old_value", "new_value", "status"}); err != nil {
		return nil, err
	}
	for _, row := range diff.Rows {
		for _, cell := range row.Cells {
			// Context cells stay in the structured diff only
			if cell.Status == ChangeUnchanged {
				continue
			}
			kind, ok := kinds[cell.ColumnName]
			if !ok {
				kind = models.KindText
			}
			record := []string{
				strconv.Itoa(row.RowIndex),
				cell.ColumnName,
				coerce.FormatRaw(cell.OldValue, kind),
				coerce.FormatRaw(cell.NewValue, kind),
				cell.Status,
			}
			if err := w.Write(record); err != nil {
				return nil, err
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
