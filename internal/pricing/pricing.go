package pricing

import (
	"context"
	"errors"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

const (
	//代引きだけ配達料がかかる（最小通貨単位）
	codDeliveryFee = 30

	//税率5%（端数は切り捨て）
	taxRatePercent = 5
)

type Item struct {
	ProductID int64
	Quantity  int64
}

// 価格確定済みの明細。注文スナップショットの元になる。
type QuotedItem struct {
	ProductID int64
	Name      string
	UnitPrice int64
	Quantity  int64
}

type Totals struct {
	Subtotal    int64 `json:"subtotal"`
	DeliveryFee int64 `json:"delivery_fee"`
	Tax         int64 `json:"tax"`
	Total       int64 `json:"total"`
}

type Quote struct {
	Items  []QuotedItem
	Totals Totals
}

// Computeは明細の単価をカタログから引いて合計を確定する。
// 単価はクライアントから受け取らない。同じ入力なら必ず同じ結果になる。
func Compute(ctx context.Context, products repo.ProductRepository, items []Item, paymentType model.PaymentType) (Quote, error) {
	if len(items) == 0 {
		return Quote{}, ErrInvalidQuantity
	}

	quoted := make([]QuotedItem, 0, len(items))
	var subtotal int64 = 0

	for _, it := range items {
		if it.Quantity <= 0 {
			return Quote{}, ErrInvalidQuantity
		}

		p, err := products.FindByID(ctx, it.ProductID)
		if errors.Is(err, repo.ErrNotFound) {
			return Quote{}, ErrProductNotFound
		}
		if err != nil {
			return Quote{}, err
		}
		if !p.IsActive {
			return Quote{}, ErrProductNotFound
		}

		quoted = append(quoted, QuotedItem{
			ProductID: p.ID,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  it.Quantity,
		})
		subtotal += p.Price * it.Quantity
	}

	var fee int64 = 0
	if paymentType == model.PaymentTypeCOD {
		fee = codDeliveryFee
	}

	//整数演算なので自動的に切り捨てになる
	tax := subtotal * taxRatePercent / 100

	return Quote{
		Items: quoted,
		Totals: Totals{
			Subtotal:    subtotal,
			DeliveryFee: fee,
			Tax:         tax,
			Total:       subtotal + fee + tax,
		},
	}, nil
}
