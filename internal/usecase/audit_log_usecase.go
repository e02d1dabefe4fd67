package usecase

import (
	"context"
	"net/http"
	"strings"

	"smartplant/internal/domain/model"
	repo "smartplant/internal/repository"
)

type AuditLogUsecase struct {
	logs repo.AuditLogRepository
}

func NewAuditLogUsecase(logs repo.AuditLogRepository) *AuditLogUsecase {
	return &AuditLogUsecase{logs: logs}
}

// resource_idはresource_typeと一緒のときだけ効く
type AuditLogListInput struct {
	ActorUserID  int64
	Action       string
	ResourceType string
	ResourceID   int64
	From         string
	To           string
	Page         int
	Limit        int
}

type AuditLogListOutput struct {
	Items []model.AuditLog `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

var auditActions = map[model.AuditAction]bool{
	model.AuditActionUpdateStock:       true,
	model.AuditActionUpdateOrderStatus: true,
	model.AuditActionForceLogout:       true,
}

var auditResources = map[model.AuditResourceType]bool{
	model.AuditResourceProduct: true,
	model.AuditResourceOrder:   true,
	model.AuditResourceUser:    true,
}

func (u *AuditLogUsecase) List(ctx context.Context, in AuditLogListInput) (AuditLogListOutput, error) {
	page, limit := normalizePage(in.Page, in.Limit, 50, 200)

	q := repo.AuditLogQuery{
		ActorUserID:  in.ActorUserID,
		Action:       model.AuditAction(strings.ToUpper(strings.TrimSpace(in.Action))),
		ResourceType: model.AuditResourceType(strings.ToLower(strings.TrimSpace(in.ResourceType))),
		ResourceID:   in.ResourceID,
		Page:         page,
		Limit:        limit,
	}
	if q.Action != "" && !auditActions[q.Action] {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid action")
	}
	if q.ResourceType != "" && !auditResources[q.ResourceType] {
		return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid resource_type")
	}

	var ok bool
	if in.From != "" {
		if q.From, ok = parseDateTimeRFC3339(in.From); !ok {
			return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid from")
		}
	}
	if in.To != "" {
		if q.To, ok = parseDateTimeRFC3339(in.To); !ok {
			return AuditLogListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid to")
		}
	}

	items, total, err := u.logs.Search(ctx, q)
	if err != nil {
		return AuditLogListOutput{}, err
	}
	return AuditLogListOutput{Items: items, Total: total, Page: page, Limit: limit}, nil
}
