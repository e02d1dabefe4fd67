package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"smartplant/internal/domain/model"
	"smartplant/internal/repository"
)

type AddressDTO struct {
	ID         int64   `json:"id"`
	PostalCode string  `json:"postal_code"`
	Region     string  `json:"region"`
	City       string  `json:"city"`
	Line1      string  `json:"line1"`
	Line2      string  `json:"line2"`
	Name       string  `json:"name"`
	Phone      string  `json:"phone"`
	IsDefault  bool    `json:"is_default"`
	CreatedAt  string  `json:"created_at"`
	UpdatedAt  *string `json:"updated_at,omitempty"`
}

type AddressCreateRequest struct {
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Region     string `json:"region" validate:"required,max=100"`
	City       string `json:"city" validate:"required,max=255"`
	Line1      string `json:"line1" validate:"required,max=255"`
	Line2      string `json:"line2" validate:"max=255"`
	Name       string `json:"name" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"max=30"`
}

// PATCHなので空欄は変更しない
type AddressUpdateRequest struct {
	PostalCode *string `json:"postal_code" validate:"omitempty,max=20"`
	Region     *string `json:"region" validate:"omitempty,max=100"`
	City       *string `json:"city" validate:"omitempty,max=255"`
	Line1      *string `json:"line1" validate:"omitempty,max=255"`
	Line2      *string `json:"line2" validate:"omitempty,max=255"`
	Name       *string `json:"name" validate:"omitempty,max=255"`
	Phone      *string `json:"phone" validate:"omitempty,max=30"`
}

type AddressUsecase struct {
	addresses repository.AddressRepository
}

func NewAddressUsecase(addresses repository.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addresses: addresses}
}

var errAddressNotFound = NewHTTPError(http.StatusNotFound, "Address not found")

func (u *AddressUsecase) List(ctx context.Context, userID int64) ([]AddressDTO, error) {
	list, err := u.addresses.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]AddressDTO, 0, len(list))
	for i := range list {
		out = append(out, toAddressDTO(&list[i]))
	}
	return out, nil
}

func (u *AddressUsecase) Create(ctx context.Context, userID int64, req AddressCreateRequest) (AddressDTO, error) {
	//入力チェック
	if strings.TrimSpace(req.PostalCode) == "" || strings.TrimSpace(req.Region) == "" ||
		strings.TrimSpace(req.City) == "" || strings.TrimSpace(req.Line1) == "" || strings.TrimSpace(req.Name) == "" {
		return AddressDTO{}, NewHTTPError(http.StatusBadRequest, "postal_code, region, city, line1 and name are required")
	}

	now := time.Now()
	created, err := u.addresses.Create(ctx, model.Address{
		UserID:     userID,
		PostalCode: strings.TrimSpace(req.PostalCode),
		Region:     strings.TrimSpace(req.Region),
		City:       strings.TrimSpace(req.City),
		Line1:      strings.TrimSpace(req.Line1),
		Line2:      strings.TrimSpace(req.Line2),
		Name:       strings.TrimSpace(req.Name),
		Phone:      strings.TrimSpace(req.Phone),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return AddressDTO{}, err
	}
	return toAddressDTO(&created), nil
}

func (u *AddressUsecase) Update(ctx context.Context, userID int64, addressID int64, req AddressUpdateRequest) (AddressDTO, error) {
	//所有チェック（他人の住所は404）
	a, err := u.addresses.FindByUserAndID(ctx, userID, addressID)
	if errors.Is(err, repository.ErrNotFound) {
		return AddressDTO{}, errAddressNotFound
	}
	if err != nil {
		return AddressDTO{}, err
	}

	patch := func(dst *string, v *string) {
		if v != nil && strings.TrimSpace(*v) != "" {
			*dst = strings.TrimSpace(*v)
		}
	}
	patch(&a.PostalCode, req.PostalCode)
	patch(&a.Region, req.Region)
	patch(&a.City, req.City)
	patch(&a.Line1, req.Line1)
	patch(&a.Name, req.Name)
	// 空にできる項目
	if req.Line2 != nil {
		a.Line2 = strings.TrimSpace(*req.Line2)
	}
	if req.Phone != nil {
		a.Phone = strings.TrimSpace(*req.Phone)
	}
	a.UpdatedAt = time.Now()

	if err := u.addresses.Update(ctx, a); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return AddressDTO{}, errAddressNotFound
		}
		return AddressDTO{}, err
	}
	return toAddressDTO(&a), nil
}

func (u *AddressUsecase) Delete(ctx context.Context, userID int64, addressID int64) error {
	if err := u.addresses.Delete(ctx, userID, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errAddressNotFound
		}
		return err
	}
	return nil
}

//user内でdefaultは1つ
func (u *AddressUsecase) SetDefault(ctx context.Context, userID int64, addressID int64) error {
	if err := u.addresses.SetDefault(ctx, userID, addressID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errAddressNotFound
		}
		return err
	}
	return nil
}

func toAddressDTO(a *model.Address) AddressDTO {
	dto := AddressDTO{
		ID:         a.ID,
		PostalCode: a.PostalCode,
		Region:     a.Region,
		City:       a.City,
		Line1:      a.Line1,
		Line2:      a.Line2,
		Name:       a.Name,
		Phone:      a.Phone,
		IsDefault:  a.IsDefault,
		CreatedAt:  a.CreatedAt.Format(time.RFC3339),
	}
	t := a.UpdatedAt.Format(time.RFC3339)
	dto.UpdatedAt = &t
	return dto
}
