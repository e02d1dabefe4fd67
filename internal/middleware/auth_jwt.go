package middleware

import (
	"context"
	"net/http"
	"strings"

	auth "smartplant/internal/usecase/auth_usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	CtxUserIDKey       = "user_id"       // int64
	CtxUserRoleKey     = "user_role"     // string
	CtxTokenVersionKey = "token_version" // int
	CtxAccessClaimsKey = "access_claims" // auth.AccessClaims
)

// アクセストークンの検証
type AccessTokenParser interface {
	Parse(raw string) (auth.AccessClaims, error)
}

// ログアウト済みjtiの確認
type TokenDenylist interface {
	Contains(ctx context.Context, jti string) (bool, error)
}

// bearerAuth用のJWT検証ミドルウェア。
// denylistがnilなら失効チェックはしない
func AuthJWT(parser AccessTokenParser, denylist TokenDenylist, log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			//Authorizationヘッダを取得
			authz := c.Request().Header.Get("Authorization")
			if authz == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("Authentication credentials were not provided."))
			}

			//Bearer形式か確認してtokenを抜く
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}
			rawToken := strings.TrimSpace(parts[1])
			if rawToken == "" {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			claims, err := parser.Parse(rawToken)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, errorJSON("Token is invalid or expired"))
			}

			if denylist != nil {
				revoked, err := denylist.Contains(c.Request().Context(), claims.JTI)
				if err != nil {
					// Redis障害時はtoken_versionの確認に任せる
					log.Warn("denylist_lookup_failed", zap.Int64("user_id", claims.UserID), zap.Error(err))
				} else if revoked {
					return c.JSON(http.StatusUnauthorized, errorJSON("Token is invalid or expired"))
				}
			}

			//contextへ保存
			c.Set(CtxUserIDKey, claims.UserID)
			c.Set(CtxUserRoleKey, string(claims.Role))
			c.Set(CtxTokenVersionKey, claims.TokenVersion)
			c.Set(CtxAccessClaimsKey, claims)

			return next(c)
		}
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func errorJSON(msg string) errorResponse {
	return errorResponse{Error: msg}
}
