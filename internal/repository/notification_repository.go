package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type NotificationListFilter struct {
	Page       int
	Limit      int
	UnreadOnly bool
}

// セラー通知の保存・取得の約束。
type NotificationRepository interface {
	Create(ctx context.Context, n model.Notification) (int64, error)
	FindByID(ctx context.Context, id int64) (model.Notification, error)
	ListBySellerID(ctx context.Context, sellerID int64, f NotificationListFilter) ([]model.Notification, int64, error)

	//メール送信成功後に呼ぶ
	MarkEmailSent(ctx context.Context, id int64, sentAt time.Time) error

	MarkRead(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
