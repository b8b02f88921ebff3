package repository

import (
	"app/internal/domain/model"
	"context"
	"errors"
)

var ErrNotFound = errors.New("not found")

// 商品カタログへの読み取り専用の窓口。価格参照にしか使わない。
type ProductRepository interface {
	FindByID(ctx context.Context, id int64) (model.Product, error)
}
