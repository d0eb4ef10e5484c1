package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/domain"
	"github.com/spec-kit/crm-service/internal/service"
	apperrors "github.com/spec-kit/crm-service/pkg/util/errorutil"
)

const defaultPageSize = 20

func staffPrincipal(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Staff, nil
}

func actorFrom(c *fiber.Ctx) (service.Actor, error) {
	staff, err := staffPrincipal(c)
	if err != nil {
		return service.Actor{}, err
	}
	return service.StaffActor(staff), nil
}

func invalidPayload() error {
	return apperrors.NewValidationError("invalid payload", nil)
}

// pagination maps page/page_size query values to offset and limit.
func pagination(c *fiber.Ctx) (offset, limit int) {
	page := parseInt(c.Query("page"), 1)
	size := parseInt(c.Query("page_size"), defaultPageSize)
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	return (page - 1) * size, size
}

func splitQuery(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func parseBool(val string) bool {
	parsed, err := strconv.ParseBool(val)
	return err == nil && parsed
}
