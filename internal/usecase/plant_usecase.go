package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"smartplant/internal/domain/model"
	"smartplant/internal/infra/storage"
	repo "smartplant/internal/repository"

	"go.uber.org/zap"
)

// PlantUsecase は植物日記。全て本人の植物に限定する
type PlantUsecase struct {
	plants repo.PlantRepository
	images storage.ImageStore
	log    *zap.Logger
	now    func() time.Time
}

func NewPlantUsecase(plants repo.PlantRepository, images storage.ImageStore, log *zap.Logger) *PlantUsecase {
	return &PlantUsecase{plants: plants, images: images, log: log, now: time.Now}
}

type PlantInput struct {
	Name        string
	Description string
}

type CareRoutineInput struct {
	Task         string
	Frequency    string
	Instructions string
}

type GrowthRecordInput struct {
	Height    *float64
	Width     *float64
	NumLeaves *int
	Notes     string
}

var errPlantNotFound = NewHTTPError(http.StatusNotFound, "Plant not found")

func (u *PlantUsecase) List(ctx context.Context, userID int64) ([]model.UserPlant, error) {
	return u.plants.ListByUserID(ctx, userID)
}

func (u *PlantUsecase) Create(ctx context.Context, userID int64, in PlantInput) (model.UserPlant, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.UserPlant{}, NewHTTPError(http.StatusBadRequest, "name is required")
	}

	p := &model.UserPlant{UserID: userID, Name: name, Description: in.Description}
	if err := u.plants.Create(ctx, p); err != nil {
		return model.UserPlant{}, err
	}
	return *p, nil
}

// 子レコード付き
func (u *PlantUsecase) Get(ctx context.Context, userID, plantID int64) (model.UserPlant, error) {
	return u.find(ctx, userID, plantID, true)
}

func (u *PlantUsecase) Update(ctx context.Context, userID, plantID int64, in PlantInput) (model.UserPlant, error) {
	p, err := u.find(ctx, userID, plantID, false)
	if err != nil {
		return model.UserPlant{}, err
	}

	if name := strings.TrimSpace(in.Name); name != "" {
		p.Name = name
	}
	p.Description = in.Description
	p.UpdatedAt = u.now()

	if err := u.plants.Update(ctx, p); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return model.UserPlant{}, errPlantNotFound
		}
		return model.UserPlant{}, err
	}
	return p, nil
}

func (u *PlantUsecase) Delete(ctx context.Context, userID, plantID int64) error {
	if err := u.plants.Delete(ctx, userID, plantID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errPlantNotFound
		}
		return err
	}
	return nil
}

// UploadImage はS3に上げてimage_urlを置き換える。ストレージ未設定なら503
func (u *PlantUsecase) UploadImage(ctx context.Context, userID, plantID int64, filename, contentType string, body io.Reader) (model.UserPlant, error) {
	p, err := u.find(ctx, userID, plantID, false)
	if err != nil {
		return model.UserPlant{}, err
	}
	if u.images == nil {
		return model.UserPlant{}, NewHTTPError(http.StatusServiceUnavailable, "Image storage is not configured")
	}

	url, err := u.images.Upload(ctx, fmt.Sprintf("plants/%d", userID), filename, contentType, body)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return model.UserPlant{}, NewHTTPError(http.StatusServiceUnavailable, "Image storage is not configured")
		}
		u.log.Error("plant_image_upload_failed", zap.Int64("plant_id", plantID), zap.Error(err))
		return model.UserPlant{}, WrapHTTPError(http.StatusBadGateway, "Failed to upload image", fmt.Errorf("%w: %v", ErrExternalService, err))
	}

	p.ImageURL = url
	p.UpdatedAt = u.now()
	if err := u.plants.Update(ctx, p); err != nil {
		return model.UserPlant{}, err
	}
	return p, nil
}

func (u *PlantUsecase) AddNote(ctx context.Context, userID, plantID int64, content string) (model.PlantNote, error) {
	if _, err := u.find(ctx, userID, plantID, false); err != nil {
		return model.PlantNote{}, err
	}
	if strings.TrimSpace(content) == "" {
		return model.PlantNote{}, NewHTTPError(http.StatusBadRequest, "content is required")
	}

	n := &model.PlantNote{PlantID: plantID, Content: content}
	if err := u.plants.AddNote(ctx, n); err != nil {
		return model.PlantNote{}, err
	}
	return *n, nil
}

func (u *PlantUsecase) DeleteNote(ctx context.Context, userID, plantID, noteID int64) error {
	if _, err := u.find(ctx, userID, plantID, false); err != nil {
		return err
	}
	return childNotFound(u.plants.DeleteNote(ctx, plantID, noteID), "Note not found")
}

// next_due = 今 + 頻度
func (u *PlantUsecase) AddCareRoutine(ctx context.Context, userID, plantID int64, in CareRoutineInput) (model.CareRoutine, error) {
	if _, err := u.find(ctx, userID, plantID, false); err != nil {
		return model.CareRoutine{}, err
	}
	task := strings.TrimSpace(in.Task)
	if task == "" {
		return model.CareRoutine{}, NewHTTPError(http.StatusBadRequest, "task is required")
	}
	freq := model.CareFrequency(in.Frequency)
	interval, ok := freq.Interval()
	if !ok {
		return model.CareRoutine{}, NewHTTPError(http.StatusBadRequest, "frequency must be one of daily, weekly, biweekly, monthly")
	}

	next := u.now().Add(interval)
	cr := &model.CareRoutine{
		PlantID:      plantID,
		Task:         task,
		Frequency:    freq,
		Instructions: in.Instructions,
		NextDue:      &next,
	}
	if err := u.plants.AddCareRoutine(ctx, cr); err != nil {
		return model.CareRoutine{}, err
	}
	return *cr, nil
}

// CompleteCareTask は実施日時を記録して次回予定を進める
func (u *PlantUsecase) CompleteCareTask(ctx context.Context, userID, plantID, routineID int64) (model.CareRoutine, error) {
	if _, err := u.find(ctx, userID, plantID, false); err != nil {
		return model.CareRoutine{}, err
	}

	cr, err := u.plants.FindCareRoutine(ctx, plantID, routineID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.CareRoutine{}, NewHTTPError(http.StatusNotFound, "Care routine not found")
	}
	if err != nil {
		return model.CareRoutine{}, err
	}

	now := u.now()
	cr.LastPerformed = &now
	if interval, ok := cr.Frequency.Interval(); ok {
		next := now.Add(interval)
		cr.NextDue = &next
	}

	if err := u.plants.UpdateCareRoutine(ctx, cr); err != nil {
		return model.CareRoutine{}, childNotFound(err, "Care routine not found")
	}
	return cr, nil
}

func (u *PlantUsecase) DeleteCareRoutine(ctx context.Context, userID, plantID, routineID int64) error {
	if _, err := u.find(ctx, userID, plantID, false); err != nil {
		return err
	}
	return childNotFound(u.plants.DeleteCareRoutine(ctx, plantID, routineID), "Care routine not found")
}

func (u *PlantUsecase) RecordGrowth(ctx context.Context, userID, plantID int64, in GrowthRecordInput) (model.GrowthRecord, error) {
	if _, err := u.find(ctx, userID, plantID, false); err != nil {
		return model.GrowthRecord{}, err
	}
	if (in.Height != nil && *in.Height < 0) || (in.Width != nil && *in.Width < 0) || (in.NumLeaves != nil && *in.NumLeaves < 0) {
		return model.GrowthRecord{}, NewHTTPError(http.StatusBadRequest, "measurements must be >= 0")
	}

	g := &model.GrowthRecord{
		PlantID:   plantID,
		Height:    in.Height,
		Width:     in.Width,
		NumLeaves: in.NumLeaves,
		Notes:     in.Notes,
	}
	if err := u.plants.AddGrowthRecord(ctx, g); err != nil {
		return model.GrowthRecord{}, err
	}
	return *g, nil
}

func (u *PlantUsecase) DeleteGrowthRecord(ctx context.Context, userID, plantID, recordID int64) error {
	if _, err := u.find(ctx, userID, plantID, false); err != nil {
		return err
	}
	return childNotFound(u.plants.DeleteGrowthRecord(ctx, plantID, recordID), "Growth record not found")
}

// 他人の植物は存在しない扱い
func (u *PlantUsecase) find(ctx context.Context, userID, plantID int64, withChildren bool) (model.UserPlant, error) {
	p, err := u.plants.FindByUserAndID(ctx, userID, plantID, withChildren)
	if errors.Is(err, repo.ErrNotFound) {
		return model.UserPlant{}, errPlantNotFound
	}
	return p, err
}

func childNotFound(err error, msg string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, msg)
	}
	return err
}
