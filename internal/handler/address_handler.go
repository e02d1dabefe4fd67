package handler

import (
	"net/http"

	"smartplant/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AddressHandler struct {
	uc *usecase.AddressUsecase
}

func NewAddressHandler(uc *usecase.AddressUsecase) *AddressHandler {
	return &AddressHandler{uc: uc}
}

func (h *AddressHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/addresses", withUser(h.list))
	g.POST("/addresses", withUser(h.create))
	g.PATCH("/addresses/:id", withUser(h.update))
	g.DELETE("/addresses/:id", withUser(h.delete))
	g.POST("/addresses/:id/default", withUser(h.setDefault))
}

func (h *AddressHandler) list(c echo.Context, userID int64) error {
	list, err := h.uc.List(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

func (h *AddressHandler) create(c echo.Context, userID int64) error {
	var req usecase.AddressCreateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	created, err := h.uc.Create(c.Request().Context(), userID, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

// 送られた項目だけ変える
func (h *AddressHandler) update(c echo.Context, userID int64) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req usecase.AddressUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	updated, err := h.uc.Update(c.Request().Context(), userID, id, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *AddressHandler) delete(c echo.Context, userID int64) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.uc.Delete(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AddressHandler) setDefault(c echo.Context, userID int64) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	if err := h.uc.SetDefault(c.Request().Context(), userID, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "default set"})
}
