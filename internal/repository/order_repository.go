package repository

import (
	"context"
	"time"

	"app/internal/domain/model"
)

type SellerOrderListFilter struct {
	Page   int
	Limit  int
	IsPaid *bool
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error)
	Create(ctx context.Context, order model.Order) (int64, error)

	//支払いフィールドだけをまとめて更新する（セラー操作とコールバックだけが呼ぶ）
	MarkPaid(ctx context.Context, orderID int64, status string, paidAt time.Time) error

	//検索（同じキーなら同じ結果を返す）
	FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error)

	//ゲートウェイ参照番号での検索（コールバック再送の重複検知）
	FindByPaymentID(ctx context.Context, paymentID string) (model.Order, bool, error)

	//セラー用の注文一覧
	ListSeller(ctx context.Context, f SellerOrderListFilter) ([]model.Order, int64, error)
}
