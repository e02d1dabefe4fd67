package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"smartplant/internal/middleware"
	"smartplant/internal/repository"
	"smartplant/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	ProductID *int64 `json:"product_id,omitempty"`
}

// usecaseのエラーをHTTPに変換する。想定外のものは500でechoに返してログに残す
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if ise, ok := usecase.AsInsufficientStock(err); ok {
		id := ise.ProductID
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: ise.Error(), ProductID: &id})
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Err != nil && he.Status >= 500 {
			// 原因はRequestLoggerで出す
			c.Set(middleware.CtxErrorCauseKey, he.Err.Error())
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}
	if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "Not found."})
	}

	//500
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

// HTTPErrorHandler はechoのエラー（404ルート・bind失敗・500）も同じ形で返す
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "internal error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		msg = fmt.Sprint(he.Message)
	} else if uhe, ok := usecase.AsHTTPError(err); ok {
		status = uhe.Status
		msg = uhe.Message
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, ErrorResponse{Error: msg})
}

// bindしてvalidateする。失敗は400
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return usecase.WrapHTTPError(http.StatusBadRequest, "invalid request body", err)
	}
	if err := c.Validate(req); err != nil {
		return err
	}
	return nil
}

// withUser はログインユーザーのIDを渡して呼ぶ。返ったエラーはwriteErrorで書く
func withUser(fn func(c echo.Context, userID int64) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, ok := getUserIDFromContext(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		}
		if err := fn(c, userID); err != nil {
			return writeError(c, err)
		}
		return nil
	}
}

func getUserIDFromContext(c echo.Context) (int64, bool) {
	uid, ok := c.Get(middleware.CtxUserIDKey).(int64)
	return uid, ok && uid > 0
}

// パスパラメータの数値ID
func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}

func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return n, nil
}

func queryInt64Ptr(c echo.Context, name string) (*int64, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, usecase.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return &n, nil
}
