package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Staff roles. RoleAdmin satisfies every role check.
const (
	RoleAdmin     = "admin"
	RolePhysician = "physician"
	RoleNurse     = "nurse"
	RoleMidwife   = "midwife"
	RoleBHW       = "bhw"
)

var knownRoles = map[string]bool{
	RoleAdmin:     true,
	RolePhysician: true,
	RoleNurse:     true,
	RoleMidwife:   true,
	RoleBHW:       true,
}

// ValidRole reports whether role is one of the staff roles above.
func ValidRole(role string) bool {
	return knownRoles[role]
}

// ClinicalRoles may see patient data and fill in assessments.
var ClinicalRoles = []string{RolePhysician, RoleNurse, RoleMidwife, RoleBHW}

// HasRole reports whether granted satisfies any of required.
func HasRole(granted []string, required ...string) bool {
	for _, has := range granted {
		if has == RoleAdmin {
			return true
		}
		for _, r := range required {
			if has == r {
				return true
			}
		}
	}
	return false
}

// RequireRole returns middleware that checks if the user has at least one of the specified roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if HasRole(RolesFromContext(c.Request().Context()), roles...) {
				return next(c)
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
