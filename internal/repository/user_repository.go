package repository

import (
	"app/internal/domain/model"
	"context"
)

// 通知スナップショット用に顧客の連絡先を1件引くだけ。
type UserRepository interface {
	FindByID(ctx context.Context, userID int64) (model.User, error)
}
