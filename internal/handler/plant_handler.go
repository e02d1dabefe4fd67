package handler

import (
	"net/http"

	"smartplant/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PlantHandler struct {
	uc *usecase.PlantUsecase
}

func NewPlantHandler(uc *usecase.PlantUsecase) *PlantHandler {
	return &PlantHandler{uc: uc}
}

type PlantRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description"`
}

type NoteRequest struct {
	Content string `json:"content" validate:"required"`
}

type CareRoutineRequest struct {
	Task         string `json:"task" validate:"required,max=100"`
	Frequency    string `json:"frequency" validate:"required,oneof=daily weekly biweekly monthly"`
	Instructions string `json:"instructions"`
}

type GrowthRecordRequest struct {
	Height    *float64 `json:"height"`
	Width     *float64 `json:"width"`
	NumLeaves *int     `json:"num_leaves"`
	Notes     string   `json:"notes"`
}

type CompleteCareTaskRequest struct {
	RoutineID int64 `json:"routine_id" validate:"required,gt=0"`
}

// 全ルート認証必須。他人の植物は404
func (h *PlantHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/plants", h.list)
	g.POST("/plants", h.create)
	g.GET("/plants/:id", h.get)
	g.PUT("/plants/:id", h.update)
	g.DELETE("/plants/:id", h.delete)
	g.POST("/plants/:id/image", h.uploadImage)

	g.POST("/plants/:id/add_note", h.addNote)
	g.DELETE("/plants/:id/notes/:note_id", h.deleteNote)
	g.POST("/plants/:id/add_care_routine", h.addCareRoutine)
	g.DELETE("/plants/:id/care_routines/:routine_id", h.deleteCareRoutine)
	g.POST("/plants/:id/complete_care_task", h.completeCareTask)
	g.POST("/plants/:id/record_growth", h.recordGrowth)
	g.DELETE("/plants/:id/growth_records/:record_id", h.deleteGrowthRecord)
}

// ユーザーIDと:idをまとめて取る
func (h *PlantHandler) owner(c echo.Context) (int64, int64, error) {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return 0, 0, usecase.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	plantID, err := paramID(c, "id")
	if err != nil {
		return 0, 0, err
	}
	return userID, plantID, nil
}

func (h *PlantHandler) list(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	plants, err := h.uc.List(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, plants)
}

func (h *PlantHandler) create(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
	}

	var req PlantRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.Create(c.Request().Context(), userID, usecase.PlantInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *PlantHandler) get(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.Get(c.Request().Context(), userID, plantID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PlantHandler) update(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	var req PlantRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	p, err := h.uc.Update(c.Request().Context(), userID, plantID, usecase.PlantInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PlantHandler) delete(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.Delete(c.Request().Context(), userID, plantID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// multipart の image フィールド
func (h *PlantHandler) uploadImage(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	fh, err := c.FormFile("image")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No image provided"})
	}
	f, err := fh.Open()
	if err != nil {
		return writeError(c, err)
	}
	defer f.Close()

	p, err := h.uc.UploadImage(c.Request().Context(), userID, plantID, fh.Filename, fh.Header.Get(echo.HeaderContentType), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *PlantHandler) addNote(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	var req NoteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	note, err := h.uc.AddNote(c.Request().Context(), userID, plantID, req.Content)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, note)
}

func (h *PlantHandler) deleteNote(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}
	noteID, err := paramID(c, "note_id")
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.DeleteNote(c.Request().Context(), userID, plantID, noteID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PlantHandler) addCareRoutine(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	var req CareRoutineRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	r, err := h.uc.AddCareRoutine(c.Request().Context(), userID, plantID, usecase.CareRoutineInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *PlantHandler) deleteCareRoutine(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}
	routineID, err := paramID(c, "routine_id")
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.DeleteCareRoutine(c.Request().Context(), userID, plantID, routineID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *PlantHandler) completeCareTask(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	var req CompleteCareTaskRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	r, err := h.uc.CompleteCareTask(c.Request().Context(), userID, plantID, req.RoutineID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *PlantHandler) recordGrowth(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}

	var req GrowthRecordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	rec, err := h.uc.RecordGrowth(c.Request().Context(), userID, plantID, usecase.GrowthRecordInput(req))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *PlantHandler) deleteGrowthRecord(c echo.Context) error {
	userID, plantID, err := h.owner(c)
	if err != nil {
		return writeError(c, err)
	}
	recordID, err := paramID(c, "record_id")
	if err != nil {
		return writeError(c, err)
	}

	if err := h.uc.DeleteGrowthRecord(c.Request().Context(), userID, plantID, recordID); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
