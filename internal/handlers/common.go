// common.go
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
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/localnerve/actudb/internal/services"
	"github.com/localnerve/actudb/internal/types"
	"github.com/localnerve/actudb/internal/utils"
)

// currentActor returns the actor resolved by the auth middleware.
func currentActor(c *fiber.Ctx) (services.Actor, error) {
	actor, ok := c.Locals("actor").(services.Actor)
	if !ok {
		return services.Actor{}, types.NewForbidden("no authenticated actor on request")
	}
	return actor, nil
}

// parseUUIDParam parses a path parameter as a UUID.
func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(name))
	if err != nil {
		return uuid.Nil, types.NewValidation("parameter %q is not a valid UUID", name)
	}
	return id, nil
}

// parseMultiQuery extracts values for a query key, supporting both repeated
// keys and comma-separated values.
func parseMultiQuery(c *fiber.Ctx, key string) []string {
	seen := make(map[string]struct{})
	var values []string

	args := c.Context().QueryArgs()
	for k, v := range args.All() {
		if string(k) != key {
			continue
		}
		for _, part := range strings.Split(string(v), ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			if _, ok := seen[part]; ok {
				continue
			}
			seen[part] = struct{}{}
			values = append(values, part)
		}
	}

	return values
}

// parseRowRange reads the optional row_start/row_end query bounds.
func parseRowRange(c *fiber.Ctx) (*int, *int, error) {
	parse := func(key string) (*int, error) {
		raw := c.Query(key)
		if raw == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, types.NewValidation("query parameter %q must be a non-negative integer", key)
		}
		return &n, nil
	}

	start, err := parse("row_start")
	if err != nil {
		return nil, nil, err
	}
	end, err := parse("row_end")
	if err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && *end < *start {
		return nil, nil, types.NewValidation("row_end must not be less than row_start")
	}
	return start, end, nil
}

// engineError translates an engine error into the standard error envelope.
func engineError(c *fiber.Ctx, err error) error {
	var e *types.Error
	if !errors.As(err, &e) {
		return utils.ErrorResponse(c, err.Error(), fiber.StatusInternalServerError, "internal")
	}
	switch e.Kind {
	case types.ErrNotFound:
		return utils.NotFoundResponse(c, e.Message)
	case types.ErrInvalidStateTransition:
		return utils.TransitionErrorResponse(c, e.Message, e.CurrentStatus)
	}
	return utils.ErrorResponse(c, e.Message, e.HTTPStatus(), string(e.Kind))
}
