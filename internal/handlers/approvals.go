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

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/localnerve/actudb/internal/services"
	"github.com/localnerve/actudb/internal/utils"
)

// ApprovalsHandler handles version approval workflow routes
type ApprovalsHandler struct {
	Approvals *services.ApprovalService
}

type reviewBody struct {
	Comment string `json:"comment"`
}

// Submit handles POST /api/versions/:versionId/submit
// @Summary Submit a version for review
// @Description Move a draft version into the submitted state
// @Tags Approvals
// @Accept json
// @Produce json
// @Param versionId path string true "Version ID"
// @Param body body reviewBody false "Optional comment"
// @Success 200 {object} services.VersionMeta
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /versions/{versionId}/submit [post]
func (h *ApprovalsHandler) Submit(c *fiber.Ctx) error {
	return h.review(c, h.Approvals.Submit)
}

// Resubmit handles POST /api/versions/:versionId/resubmit
// @Summary Resubmit a rejected version
// @Description Move a rejected version back into the submitted state; a comment is required
// @Tags Approvals
// @Accept json
// @Produce json
// @Param versionId path string true "Version ID"
// @Param body body reviewBody true "Comment describing what changed"
// @Success 200 {object} services.VersionMeta
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /versions/{versionId}/resubmit [post]
func (h *ApprovalsHandler) Resubmit(c *fiber.Ctx) error {
	return h.review(c, h.Approvals.Resubmit)
}

// Approve handles POST /api/versions/:versionId/approve
// @Summary Approve a submitted version
// @Description Finalize a submitted version; approved versions are terminal
// @Tags Approvals
// @Accept json
// @Produce json
// @Param versionId path string true "Version ID"
// @Param body body reviewBody false "Optional comment"
// @Success 200 {object} services.VersionMeta
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /versions/{versionId}/approve [post]
func (h *ApprovalsHandler) Approve(c *fiber.Ctx) error {
	return h.review(c, h.Approvals.Approve)
}

// Reject handles POST /api/versions/:versionId/reject
// @Summary Reject a submitted version
// @Description Return a submitted version to its author; a comment is required
// @Tags Approvals
// @Accept json
// @Produce json
// @Param versionId path string true "Version ID"
// @Param body body reviewBody true "Comment explaining the rejection"
// @Success 200 {object} services.VersionMeta
// @Failure 400 {object} utils.ErrorResponseStruct
// @Failure 403 {object} utils.ErrorResponseStruct
// @Failure 404 {object} utils.ErrorResponseStruct
// @Failure 409 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /versions/{versionId}/reject [post]
func (h *ApprovalsHandler) Reject(c *fiber.Ctx) error {
	return h.review(c, h.Approvals.Reject)
}

// GetHistory handles GET /api/versions/:versionId/history
// @Summary Get a version's approval history
// @Description Get the version's full audit trail, oldest first
// @Tags Approvals
// @Accept json
// @Produce json
// @Param versionId path string true "Version ID"
// @Success 200 {array} services.HistoryEntry
// @Failure 404 {object} utils.ErrorResponseStruct
// @Security CookieAuth
// @Router /versions/{versionId}/history [get]
func (h *ApprovalsHandler) GetHistory(c *fiber.Ctx) error {
	actor, err := currentActor(c)
	if err != nil {
		return engineError(c, err)
	}
	versionID, err := parseUUIDParam(c, "versionId")
	if err != nil {
		return engineError(c, err)
	}

	entries, err := h.Approvals.GetHistory(actor, versionID)
	if err != nil {
		return engineError(c, err)
	}
	return utils.SuccessResponse(c, entries, fiber.StatusOK)
}

func (h *ApprovalsHandler) review(c *fiber.Ctx, transition func(services.Actor, uuid.UUID, string) (*services.VersionMeta, error)) error {
	actor, err := currentActor(c)
	if err != nil {
		return engineError(c, err)
	}
	versionID, err := parseUUIDParam(c, "versionId")
	if err != nil {
		return engineError(c, err)
	}

	var body reviewBody
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&body); err != nil {
			return utils.ErrorResponse(c, "Invalid input", fiber.StatusBadRequest, "validation")
		}
	}

	meta, err := transition(actor, versionID, body.Comment)
	if err != nil {
		return engineError(c, err)
	}
	return utils.SuccessResponse(c, meta, fiber.StatusOK)
}
