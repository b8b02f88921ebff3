package usecase

import (
	"context"
	"net/http"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type SellerNotificationUsecase struct {
	tx        repo.TransactionManager
	auditRepo repo.AuditLogRepository
}

func NewSellerNotificationUsecase(tx repo.TransactionManager, auditRepo repo.AuditLogRepository) *SellerNotificationUsecase {
	return &SellerNotificationUsecase{tx: tx, auditRepo: auditRepo}
}

type NotificationListOutput struct {
	Items []model.Notification `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

func (u *SellerNotificationUsecase) List(ctx context.Context, sellerUserID int64, f repo.NotificationListFilter) (NotificationListOutput, error) {
	if sellerUserID <= 0 {
		return NotificationListOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if f.Page < 1 {
		return NotificationListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return NotificationListOutput{}, NewHTTPError(http.StatusBadRequest, "invalid limit")
	}

	var out NotificationListOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		items, total, err := r.Notifications().ListBySellerID(ctx, sellerUserID, f)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		out = NotificationListOutput{Items: items, Total: total, Page: f.Page, Limit: f.Limit}
		return nil
	})

	if err != nil {
		return NotificationListOutput{}, err
	}
	return out, nil
}

func (u *SellerNotificationUsecase) MarkRead(ctx context.Context, sellerUserID int64, notificationID int64) error {
	if sellerUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if notificationID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		n, err := r.Notifications().FindByID(ctx, notificationID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		//他のセラー宛ては「存在しない扱い」にする
		if n.SellerID != sellerUserID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if err := r.Notifications().MarkRead(ctx, notificationID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}

func (u *SellerNotificationUsecase) Delete(ctx context.Context, sellerUserID int64, notificationID int64) error {
	if sellerUserID <= 0 {
		return NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if notificationID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		n, err := r.Notifications().FindByID(ctx, notificationID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if n.SellerID != sellerUserID {
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		if err := r.Notifications().Delete(ctx, notificationID); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		// ★監査ログ（DELETE_NOTIFICATION）
		if err := u.auditRepo.Create(ctx, model.AuditLog{
			ActorUserID:  sellerUserID,
			Action:       model.AuditActionDeleteNotification,
			ResourceType: model.AuditResourceNotification,
			ResourceID:   notificationID,
			BeforeJSON:   `{"deleted":false}`,
			AfterJSON:    `{"deleted":true}`,
			CreatedAt:    time.Now(),
		}); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
}
