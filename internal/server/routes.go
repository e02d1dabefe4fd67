package server

import (
	"smartplant/internal/config"
	"smartplant/internal/domain/model"
	"smartplant/internal/handler"
	mw "smartplant/internal/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Handlers はルーティング対象の一式
type Handlers struct {
	Auth       *handler.AuthHandler
	AdminUser  *handler.AdminUserHandler
	Address    *handler.AddressHandler
	Product    *handler.ProductHandler
	Cart       *handler.CartHandler
	Order      *handler.OrderHandler
	AdminOrder *handler.AdminOrderHandler
	AdminAudit *handler.AdminAuditHandler
	Plant      *handler.PlantHandler
	Chat       *handler.ChatHandler
	Disease    *handler.DiseaseHandler
}

// Guards は認証まわりの部品
type Guards struct {
	Parser   mw.AccessTokenParser
	Denylist mw.TokenDenylist // nilなら失効チェックなし
	Users    mw.UserLookup
}

func RegisterRoutes(e *echo.Echo, cfg config.Config, log *zap.Logger, h Handlers, g Guards) {
	//JWT → token_version の順
	authed := []echo.MiddlewareFunc{
		mw.AuthJWT(g.Parser, g.Denylist, log),
		mw.TokenVersionGuard(g.Users),
	}
	staff := append(append([]echo.MiddlewareFunc{}, authed...), mw.RequireRole(model.RoleAdmin))

	//auth: 公開部分のみレート制限
	authPublic := e.Group("/auth", mw.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	authAuthed := e.Group("/auth", authed...)
	h.Auth.RegisterRoutes(authPublic, authAuthed)

	//store: 閲覧は公開、更新系はルート単位でstaff
	store := e.Group("/store")
	h.Product.RegisterRoutes(store, staff...)

	storeAuthed := e.Group("/store", authed...)
	h.Cart.RegisterRoutes(storeAuthed)
	h.Order.RegisterRoutes(storeAuthed)

	//ログインユーザー
	user := e.Group("", authed...)
	h.Address.RegisterRoutes(user)
	h.Plant.RegisterRoutes(user)
	h.Chat.RegisterRoutes(user)

	//管理者
	admin := e.Group("/admin", staff...)
	h.AdminUser.RegisterRoutes(admin)
	h.AdminOrder.RegisterRoutes(admin)
	h.AdminAudit.RegisterRoutes(admin)

	//病気判定は匿名
	disease := e.Group("/disease", mw.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	h.Disease.RegisterRoutes(disease)
}
