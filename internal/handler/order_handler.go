package handler

import (
	"net/http"

	"smartplant/internal/usecase"

	"github.com/labstack/echo/v4"
)

const headerIdempotencyKey = "X-Idempotency-Key"

type OrderHandler struct {
	uc *usecase.OrderUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase) *OrderHandler {
	return &OrderHandler{uc: uc}
}

// shipping_address か address_id のどちらか
type OrderCreateRequest struct {
	ShippingAddress string `json:"shipping_address" validate:"max=2000"`
	AddressID       int64  `json:"address_id" validate:"gte=0"`
}

// g は /store（JWT必須）
func (h *OrderHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders", withUser(h.create))
	g.GET("/orders", withUser(h.list))
	g.GET("/orders/:id", withUser(h.detail))
}

// 同じ冪等キーの再送は作らずに既存の注文を200で返す
func (h *OrderHandler) create(c echo.Context, userID int64) error {
	var req OrderCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	out, created, err := h.uc.Checkout(c.Request().Context(), userID, usecase.CheckoutInput{
		ShippingAddress: req.ShippingAddress,
		AddressID:       req.AddressID,
		IdempotencyKey:  c.Request().Header.Get(headerIdempotencyKey),
	})
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	return c.JSON(status, out)
}

func (h *OrderHandler) list(c echo.Context, userID int64) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	out, err := h.uc.List(c.Request().Context(), userID, page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// 他人の注文は404
func (h *OrderHandler) detail(c echo.Context, userID int64) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	out, err := h.uc.Get(c.Request().Context(), userID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
