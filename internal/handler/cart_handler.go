package handler

import (
	"net/http"

	"smartplant/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /store/cart のHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

// product は商品ID。quantity省略時は1、明示の0以下は400
type AddCartRequest struct {
	Product  int64  `json:"product" validate:"required,gt=0"`
	Quantity *int64 `json:"quantity" validate:"omitempty,gte=1"`
}

func (r AddCartRequest) quantity() int64 {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type RemoveCartItemRequest struct {
	Product int64 `json:"product" validate:"required,gt=0"`
}

// 0以下は削除
type UpdateCartItemRequest struct {
	Product  int64 `json:"product" validate:"required,gt=0"`
	Quantity int64 `json:"quantity"`
}

// :id は受けるだけで見ない。カートは常にログインユーザーのもの
func (h *CartHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/cart", withUser(h.get))
	g.POST("/cart/:id/add_item", withUser(h.addItem))
	g.POST("/cart/:id/remove_item", withUser(h.removeItem))
	g.POST("/cart/:id/update_quantity", withUser(h.updateQuantity))
}

func (h *CartHandler) get(c echo.Context, userID int64) error {
	out, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) addItem(c echo.Context, userID int64) error {
	var req AddCartRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.uc.AddItem(c.Request().Context(), userID, usecase.AddCartInput{
		ProductID: req.Product,
		Quantity:  req.quantity(),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CartHandler) removeItem(c echo.Context, userID int64) error {
	var req RemoveCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.uc.RemoveItem(c.Request().Context(), userID, req.Product); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// 数量0以下で削除したときは204
func (h *CartHandler) updateQuantity(c echo.Context, userID int64) error {
	var req UpdateCartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	out, err := h.uc.UpdateQuantity(c.Request().Context(), userID, usecase.UpdateCartItemInput{
		ProductID: req.Product,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return err
	}
	if out == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, out)
}
