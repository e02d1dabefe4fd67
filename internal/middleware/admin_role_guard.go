package middleware

import (
	"net/http"

	"smartplant/internal/domain/model"

	"github.com/labstack/echo/v4"
)

// RequireRole はAuthJWTが入れたroleがrolesのどれかなら通す
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[string(r)] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(CtxUserRoleKey).(string)
			if role == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, errorJSON("You do not have permission to perform this action."))
			}
			return next(c)
		}
	}
}
