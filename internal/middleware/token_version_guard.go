package middleware

import (
	"context"
	"net/http"

	"smartplant/internal/domain/model"

	"github.com/labstack/echo/v4"
)

const CtxUserKey = "user" // *model.User

// UserLookup はtoken_version照合に必要な分だけ
type UserLookup interface {
	FindByID(ctx context.Context, userID int64) (*model.User, error)
}

// AuthJWTの後ろに置く。tvがDBと違う（強制ログアウト・パスワード変更後）か、
// 無効化されたユーザーなら401。通ったユーザーはcontextに載せる
func TokenVersionGuard(users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(CtxUserIDKey).(int64)
			tv, hasTV := c.Get(CtxTokenVersionKey).(int)
			if userID <= 0 || !hasTV {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			switch {
			case err != nil || user == nil:
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			case user.TokenVersion != tv, !user.IsActive:
				return c.JSON(http.StatusUnauthorized, errorJSON("Token is invalid or expired"))
			}

			c.Set(CtxUserKey, user)
			return next(c)
		}
	}
}
