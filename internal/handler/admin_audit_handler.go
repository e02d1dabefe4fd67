package handler

import (
	"net/http"

	"smartplant/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 監査ログの閲覧（スタッフのみ）
type AdminAuditHandler struct {
	uc *usecase.AuditLogUsecase
}

func NewAdminAuditHandler(uc *usecase.AuditLogUsecase) *AdminAuditHandler {
	return &AdminAuditHandler{uc: uc}
}

func (h *AdminAuditHandler) RegisterRoutes(admin *echo.Group) {
	admin.GET("/audit-logs", h.list)
}

func (h *AdminAuditHandler) list(c echo.Context) error {
	var in usecase.AuditLogListInput
	err := echo.QueryParamsBinder(c).
		Int64("actor_user_id", &in.ActorUserID).
		String("action", &in.Action).
		String("resource_type", &in.ResourceType).
		Int64("resource_id", &in.ResourceID).
		String("from", &in.From).
		String("to", &in.To).
		Int("page", &in.Page).
		Int("limit", &in.Limit).
		BindError()
	if err != nil {
		return writeError(c, usecase.WrapHTTPError(http.StatusBadRequest, "invalid query", err))
	}

	out, err := h.uc.List(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
