// versions.go
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

package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/localnerve/actudb/internal/services"
	"github.com/localnerve/actudb/internal/types"
	"github.com/localnerve/actudb/internal/utils"
)

// VersionsHandler handles version snapshot and diff routes
type VersionsHandler struct {
	Versioning *services.VersioningService
	Diff       *services.DiffService
}

// CreateVersion handles POST /api/tables/:tableId/versions
// @Summary Create a version snapshot
// @Description Snapshot the table's current rows as the next version number
// @Tags Versions
// @Accept json
// @Produce json
// @Param tableId path string true "Table ID"
// @Param body body object true "Snapshot comment"
// @Success 201 {object} services.VersionMeta
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{tableId}/versions [post]
func (h *VersionsHandler) CreateVersion(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return engineError(c, err)
	}
	tableID, err := parseUUIDParam(c, "tableId")
	if err != nil {
		return engineError(c, err)
	}

	var body struct {
		Comment string `json:"comment"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation")
	}

	meta, err := h.Versioning.CreateVersion(actor, tableID, body.Comment)
	if err != nil {
		return engineError(c, err)
	}
	return utils.SuccessResponse(c, meta, fiber.StatusCreated)
}

// ListVersions handles GET /api/tables/:tableId/versions
// @Summary List versions
// @Description List the table's versions newest first, optionally filtered by approval status
// @Tags Versions
// @Accept json
// @Produce json
// @Param tableId path string true "Table ID"
// @Param status query string false "Comma-separated approval statuses to filter"
// @Success 200 {array} services.VersionMeta
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{tableId}/versions [get]
func (h *VersionsHandler) ListVersions(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return engineError(c, err)
	}
	tableID, err := parseUUIDParam(c, "tableId")
	if err != nil {
		return engineError(c, err)
	}

	versions, err := h.Versioning.ListVersions(actor, tableID, parseMultiQuery(c, "status"))
	if err != nil {
		return engineError(c, err)
	}
	return utils.SuccessResponse(c, versions, fiber.StatusOK)
}

// GetVersion handles GET /api/tables/:tableId/versions/:versionId
// @Summary Get a version with its rows
// @Description Get one version's metadata, approval status, and typed snapshot rows
// @Tags Versions
// @Accept json
// @Produce json
// @Param tableId path string true "Table ID"
// @Param versionId path string true "Version ID"
// @Success 200 {object} services.VersionData
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{tableId}/versions/{versionId} [get]
func (h *VersionsHandler) GetVersion(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return engineError(c, err)
	}
	versionID, err := parseUUIDParam(c, "versionId")
	if err != nil {
		return engineError(c, err)
	}

	data, err := h.Versioning.GetVersionData(actor, versionID)
	if err != nil {
		return engineError(c, err)
	}
	return utils.SuccessResponse(c, data, fiber.StatusOK)
}

// RestoreVersion handles POST /api/tables/:tableId/versions/:versionId/restore
// @Summary Restore a version
// @Description Replace the table's live rows with the snapshot and record the restored state as a new version
// @Tags Versions
// @Accept json
// @Produce json
// @Param tableId path string true "Table ID"
// @Param versionId path string true "Version ID"
// @Success 201 {object} services.VersionMeta
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{tableId}/versions/{versionId}/restore [post]
func (h *VersionsHandler) RestoreVersion(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return engineError(c, err)
	}
	versionID, err := parseUUIDParam(c, "versionId")
	if err != nil {
		return engineError(c, err)
	}

	meta, err := h.Versioning.RestoreVersion(actor, versionID)
	if err != nil {
		return engineError(c, err)
	}
	return utils.SuccessResponse(c, meta, fiber.StatusCreated)
}

// DeleteVersion handles DELETE /api/tables/:tableId/versions/:versionId
// @Summary Delete a version
// @Description Delete a non-approved version; a table must retain at least one version
// @Tags Versions
// @Accept json
// @Produce json
// @Param tableId path string true "Table ID"
// @Param versionId path string true "Version ID"
// @Success 204
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{tableId}/versions/{versionId} [delete]
func (h *VersionsHandler) DeleteVersion(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return engineError(c, err)
	}
	versionID, err := parseUUIDParam(c, "versionId")
	if err != nil {
		return engineError(c, err)
	}

	if err := h.Versioning.DeleteVersion(actor, versionID); err != nil {
		return engineError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CompareVersions handles GET /api/tables/:tableId/versions/compare
// @Summary Compare two versions
// @Description Compute the row/cell diff between two versions of the table
// @Tags Versions
// @Accept json
// @Produce json
// @Param tableId path string true "Table ID"
// @Param v1 query int true "From version number"
// @Param v2 query int true "To version number"
// @Param columns query string false "Comma-separated column names to filter"
// @Param row_start query int false "Lowest row index to include"
// @Param row_end query int false "Highest row index to include"
// @Success 200 {object} services.DiffResult
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{tableId}/versions/compare [get]
func (h *VersionsHandler) CompareVersions(c *fiber.Ctx) error {
	actor, from, to, opts, err := h.compareArgs(c)
	if err != nil {
		return engineError(c, err)
	}

	diff, err := h.Diff.ComputeDiff(actor, from, to, opts)
	if err != nil {
		return engineError(c, err)
	}
	return utils.SuccessResponse(c, diff, fiber.StatusOK)
}

// ExportCompare handles GET /api/tables/:tableId/versions/compare/export
// @Summary Export a version comparison as CSV
// @Description Download the diff between two versions as a CSV file, one line per changed cell
// @Tags Versions
// @Accept json
// @Produce text/csv
// @Param tableId path string true "Table ID"
// @Param v1 query int true "From version number"
// @Param v2 query int true "To version number"
// @Param columns query string false "Comma-separated column names to filter"
// @Param row_start query int false "Lowest row index to include"
// @Param row_end query int false "Highest row index to include"
// @Success 200 {string} string
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{tableId}/versions/compare/export [get]
func (h *VersionsHandler) ExportCompare(c *fiber.Ctx) error {
	actor, from, to, opts, err := h.compareArgs(c)
	if err != nil {
		return engineError(c, err)
	}
	return h.sendCSV(c, actor, from, to, opts)
}

// ExportCompareBody handles POST /api/tables/:tableId/versions/compare/export
// @Summary Export a version comparison as CSV (request body variant)
// @Description Download the diff between two versions as CSV, with selection in the JSON body
// @Tags Versions
// @Accept json
// @Produce text/csv
// @Param tableId path string true "Table ID"
// @Param body body object true "Comparison selection"
// @Success 200 {string} string
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /tables/{tableId}/versions/compare/export [post]
func (h *VersionsHandler) ExportCompareBody(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return engineError(c, err)
	}
	tableID, err := parseUUIDParam(c, "tableId")
	if err != nil {
		return engineError(c, err)
	}

	var body struct {
		V1       types.FlexUint64       `json:"v1"`
		V2       types.FlexUint64       `json:"v2"`
		Columns  types.FlexList[string] `json:"columns"`
		RowStart *types.FlexUint64      `json:"rowStart"`
		RowEnd   *types.FlexUint64      `json:"rowEnd"`
	}
	if err := c.BodyParser(&body); err != nil {
		return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation")
	}
	if body.V1 == 0 || body.V2 == 0 {
		return utils.ErrorResponse(c, "v1 and v2 version numbers are required", fiber.StatusBadRequest, "validation")
	}
	if body.V1 == body.V2 {
		return utils.ErrorResponse(c, "v1 and v2 must name different versions", fiber.StatusBadRequest, "validation")
	}

	from, to, err := h.resolvePair(actor, c, tableID, body.V1.Int(), body.V2.Int())
	if err != nil {
		return engineError(c, err)
	}

	opts := services.DiffOptions{Columns: body.Columns.Slice()}
	if body.RowStart != nil {
		start := body.RowStart.Int()
		opts.RowStart = &start
	}
	if body.RowEnd != nil {
		end := body.RowEnd.Int()
		opts.RowEnd = &end
	}

	return h.sendCSV(c, actor, from, to, opts)
}

func (h *VersionsHandler) compareArgs(c *fiber.Ctx) (services.Actor, uuid.UUID, uuid.UUID, services.DiffOptions, error) {
	var opts services.DiffOptions

	actor, err := currentActor(c)
	if err != nil {
		return actor, uuid.Nil, uuid.Nil, opts, err
	}
	tableID, err := parseUUIDParam(c, "tableId")
	if err != nil {
		return actor, uuid.Nil, uuid.Nil, opts, err
	}

	v1, err := strconv.Atoi(c.Query("v1"))
	if err != nil || v1 < 1 {
		return actor, uuid.Nil, uuid.Nil, opts, types.NewValidation("query parameter \"v1\" must be a positive version number")
	}
	v2, err := strconv.Atoi(c.Query("v2"))
	if err != nil || v2 < 1 {
		return actor, uuid.Nil, uuid.Nil, opts, types.NewValidation("query parameter \"v2\" must be a positive version number")
	}
	if v1 == v2 {
		return actor, uuid.Nil, uuid.Nil, opts, types.NewValidation("v1 and v2 must name different versions")
	}

	from, to, err := h.resolvePair(actor, c, tableID, v1, v2)
	if err != nil {
		return actor, uuid.Nil, uuid.Nil, opts, err
	}

	opts.Columns = parseMultiQuery(c, "columns")
	opts.RowStart, opts.RowEnd, err = parseRowRange(c)
	if err != nil {
		return actor, uuid.Nil, uuid.Nil, opts, err
	}
	return actor, from, to, opts, nil
}

func (h *VersionsHandler) resolvePair(actor services.Actor, c *fiber.Ctx, tableID uuid.UUID, v1, v2 int) (uuid.UUID, uuid.UUID, error) {
	from, err := h.Versioning.GetVersionByNumber(actor, tableID, v1)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	to, err := h.Versioning.GetVersionByNumber(actor, tableID, v2)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return from.ID, to.ID, nil
}

func (h *VersionsHandler) sendCSV(c *fiber.Ctx, actor services.Actor, from, to uuid.UUID, opts services.DiffOptions) error {
	data, err := h.Diff.ExportDiffCSV(actor, from, to, opts)
	if err != nil {
		return engineError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="version_diff.csv"`)
	return c.Status(fiber.StatusOK).Send(data)
}
