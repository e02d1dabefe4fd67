package usecase_test

import (
	"context"
	"net/http"
	"testing"

	infraRepo "smartplant/internal/infra/repository"
	"smartplant/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressReq(name string) usecase.AddressCreateRequest {
	return usecase.AddressCreateRequest{
		PostalCode: "100-0001",
		Region:     "Tokyo",
		City:       "Chiyoda",
		Line1:      "1-1",
		Name:       name,
	}
}

func defaults(list []usecase.AddressDTO) []int64 {
	var ids []int64
	for _, a := range list {
		if a.IsDefault {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

func TestAddressUsecase_DefaultLifecycle(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	uc := usecase.NewAddressUsecase(infraRepo.NewAddressGormRepository(gdb))
	u := seedUser(t, gdb, "home@example.com", true)

	first, err := uc.Create(ctx, u.ID, addressReq("Home"))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := uc.Create(ctx, u.ID, addressReq("Office"))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	third, err := uc.Create(ctx, u.ID, addressReq("Parents"))
	require.NoError(t, err)

	// 切り替えても1件だけ
	require.NoError(t, uc.SetDefault(ctx, u.ID, third.ID))
	list, err := uc.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []int64{third.ID}, defaults(list))
	assert.Equal(t, third.ID, list[0].ID)

	// デフォルトを消すと最古が昇格
	require.NoError(t, uc.Delete(ctx, u.ID, third.ID))
	list, err = uc.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID}, defaults(list))

	// 非デフォルトを消してもそのまま
	require.NoError(t, uc.Delete(ctx, u.ID, second.ID))
	list, err = uc.List(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID}, defaults(list))
}

func TestAddressUsecase_OwnerScopingAndPatch(t *testing.T) {
	ctx := context.Background()
	gdb := newTestDB(t)
	uc := usecase.NewAddressUsecase(infraRepo.NewAddressGormRepository(gdb))
	owner := seedUser(t, gdb, "owner@example.com", true)
	other := seedUser(t, gdb, "other@example.com", true)

	a, err := uc.Create(ctx, owner.ID, addressReq("Home"))
	require.NoError(t, err)

	_, err = uc.Create(ctx, owner.ID, usecase.AddressCreateRequest{Name: "x"})
	assert.Equal(t, http.StatusBadRequest, statusOf(t, err))

	city := "Minato"
	empty := "  "
	_, err = uc.Update(ctx, other.ID, a.ID, usecase.AddressUpdateRequest{City: &city})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	assert.Equal(t, http.StatusNotFound, statusOf(t, uc.Delete(ctx, other.ID, a.ID)))
	assert.Equal(t, http.StatusNotFound, statusOf(t, uc.SetDefault(ctx, other.ID, a.ID)))

	// 空白は無視、Line2は空にできる
	line2 := "Room 2"
	updated, err := uc.Update(ctx, owner.ID, a.ID, usecase.AddressUpdateRequest{City: &city, Name: &empty, Line2: &line2})
	require.NoError(t, err)
	assert.Equal(t, "Minato", updated.City)
	assert.Equal(t, "Home", updated.Name)
	assert.Equal(t, "Room 2", updated.Line2)
	assert.True(t, updated.IsDefault)

	otherList, err := uc.List(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, otherList)
}
