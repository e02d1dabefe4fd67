package handler

import (
	"io"
	"net/http"

	"smartplant/internal/usecase"

	"github.com/labstack/echo/v4"
)

// 画像の上限
const maxClassifyImageBytes = 10 << 20

type DiseaseHandler struct {
	uc *usecase.DiseaseUsecase
}

func NewDiseaseHandler(uc *usecase.DiseaseUsecase) *DiseaseHandler {
	return &DiseaseHandler{uc: uc}
}

// 匿名で叩ける。レート制限はグループ側
func (h *DiseaseHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/classify", h.classify)
}

func (h *DiseaseHandler) classify(c echo.Context) error {
	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No image provided"})
	}
	if fh.Size > maxClassifyImageBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Image is too large"})
	}

	f, err := fh.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxClassifyImageBytes))
	if err != nil {
		return writeError(c, err)
	}

	out, err := h.uc.Classify(c.Request().Context(), fh.Filename, data)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
