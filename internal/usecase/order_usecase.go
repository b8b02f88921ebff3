package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/payment"
	"app/internal/pricing"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// 注文作成後の通知フェーズ。失敗しても注文は取り消さない。
type OrderNotifier interface {
	OnOrderCreated(ctx context.Context, order model.Order, customer model.User) (model.Notification, error)
}

type OrderUsecase struct {
	tx       repo.TransactionManager
	gateways map[string]payment.Gateway
	notifier OrderNotifier
	log      *zap.Logger
}

func NewOrderUsecase(tx repo.TransactionManager, gateways map[string]payment.Gateway, notifier OrderNotifier, log *zap.Logger) *OrderUsecase {
	return &OrderUsecase{tx: tx, gateways: gateways, notifier: notifier, log: log}
}

type OrderItemInput struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type AddressInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Street    string `json:"street"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

type PlaceOrderInput struct {
	Items          []OrderItemInput
	Address        AddressInput
	IdempotencyKey string
}

type OrderItemOutput struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	UserID        int64             `json:"user_id"`
	Status        string            `json:"status"`
	PaymentType   string            `json:"payment_type"`
	Amount        int64             `json:"amount"`
	IsPaid        bool              `json:"is_paid"`
	PaymentID     string            `json:"payment_id,omitempty"`
	PaymentStatus string            `json:"payment_status,omitempty"`
	PaidAt        *time.Time        `json:"paid_at,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []OrderItemOutput `json:"items"`
}

// PlaceOrderCODは代引き注文。
// 価格確定→注文保存→通知の順で、保存前に失敗したら何も残らない。
func (u *OrderUsecase) PlaceOrderCOD(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateAddress(in.Address); err != nil {
		return OrderOutput{}, err
	}
	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" || len(key) > 255 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid idempotency_key")
	}

	var out OrderOutput
	var created model.Order
	var customer model.User
	var isNew bool

	//注文処理はトランザクション
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, key)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = toOrderOutput(existing, items)
			return nil
		}

		//単価はカタログから引き直して合計を確定する
		quote, err := pricing.Compute(ctx, r.Products(), toPricingItems(in.Items), model.PaymentTypeCOD)
		if err != nil {
			return pricingError(err)
		}

		order := model.Order{
			UserID:         userID,
			Status:         model.OrderStatusPlaced,
			PaymentType:    model.PaymentTypeCOD,
			Amount:         quote.Totals.Total,
			IsPaid:         false,
			IdempotencyKey: key,
		}
		applyAddress(&order, in.Address)

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			//競合（同時で同じキーが入った等）はもう一回検索して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, key)
			if err2 == nil && found2 {
				items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				out = toOrderOutput(ex2, items2)
				return nil
			}
			return NewHTTPError(http.StatusBadRequest, "idempotency conflict")
		}

		orderItems := toOrderItems(quote.Items)
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		//通知スナップショット用の連絡先
		customer, err = r.Users().FindByID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		created = order
		isNew = true
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	if isNew {
		u.notify(ctx, created, customer)
	}
	return out, nil
}

type InitiatePaymentInput struct {
	Items []OrderItemInput
}

type InitiatePaymentOutput struct {
	Reference string            `json:"reference"`
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Fields    map[string]string `json:"fields,omitempty"`
	Totals    pricing.Totals    `json:"totals"`
}

// InitiateOnlinePaymentは署名済みのリダイレクトを作るだけで何も保存しない。
// 注文はコールバック検証が通ったときに初めて作られる。
func (u *OrderUsecase) InitiateOnlinePayment(ctx context.Context, userID int64, gatewayName string, in InitiatePaymentInput) (InitiatePaymentOutput, error) {
	if userID <= 0 {
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	gw, ok := u.gateways[gatewayName]
	if !ok {
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusNotFound, "unknown gateway")
	}

	var quote pricing.Quote
	var customer model.User

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		quote, err = pricing.Compute(ctx, r.Products(), toPricingItems(in.Items), model.PaymentTypeOnline)
		if err != nil {
			return pricingError(err)
		}

		customer, err = r.Users().FindByID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		return nil
	})
	if err != nil {
		return InitiatePaymentOutput{}, err
	}

	redirect, err := gw.Initiate(ctx, payment.InitiateInput{
		Amount: quote.Totals.Total,
		Phone:  customer.Phone,
		Email:  customer.Email,
	})
	if errors.Is(err, payment.ErrGatewayUnavailable) || errors.Is(err, payment.ErrGatewayRejected) {
		u.log.Warn("gateway initiation failed", zap.String("gateway", gatewayName), zap.Error(err))
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusBadGateway, "payment gateway unavailable")
	}
	if err != nil {
		return InitiatePaymentOutput{}, NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return InitiatePaymentOutput{
		Reference: redirect.Reference,
		URL:       redirect.URL,
		Method:    redirect.Method,
		Fields:    redirect.Fields,
		Totals:    quote.Totals,
	}, nil
}

type CompletePaymentInput struct {
	Payload map[string]string
	Items   []OrderItemInput
	Address AddressInput
}

// CompleteOnlinePaymentはゲートウェイコールバックの検証が通ったときだけ
// 支払い済みの注文を作る。同じ参照番号の再送は既存の注文をそのまま返す。
func (u *OrderUsecase) CompleteOnlinePayment(ctx context.Context, userID int64, gatewayName string, in CompletePaymentInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err := validateAddress(in.Address); err != nil {
		return OrderOutput{}, err
	}

	gw, ok := u.gateways[gatewayName]
	if !ok {
		return OrderOutput{}, NewHTTPError(http.StatusNotFound, "unknown gateway")
	}

	v := gw.VerifyCallback(in.Payload)
	if !v.Success {
		u.log.Warn("gateway callback rejected",
			zap.String("gateway", gatewayName),
			zap.String("reference", v.Reference),
			zap.String("reason", v.Reason))
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "payment failed")
	}

	var out OrderOutput
	var created model.Order
	var customer model.User
	var isNew bool

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//ゲートウェイの再送なら既存の注文を返す
		existing, found, err := r.Orders().FindByPaymentID(ctx, v.Reference)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			out = toOrderOutput(existing, items)
			return nil
		}

		quote, err := pricing.Compute(ctx, r.Products(), toPricingItems(in.Items), model.PaymentTypeOnline)
		if err != nil {
			return pricingError(err)
		}

		//ゲートウェイが確認した金額とサーバー計算が食い違ったら信用しない
		if quote.Totals.Total != v.Amount {
			u.log.Warn("callback amount mismatch",
				zap.String("gateway", gatewayName),
				zap.String("reference", v.Reference),
				zap.Int64("computed", quote.Totals.Total),
				zap.Int64("confirmed", v.Amount))
			return NewHTTPError(http.StatusBadRequest, "payment failed")
		}

		now := time.Now()
		order := model.Order{
			UserID:      userID,
			Status:      model.OrderStatusPlaced,
			PaymentType: model.PaymentTypeOnline,
			Amount:      quote.Totals.Total,

			//オンラインは検証済みで保存するので作成時点から支払い済み
			IsPaid:        true,
			PaymentID:     v.Reference,
			PaymentStatus: "success",
			PaidAt:        &now,

			IdempotencyKey: v.Reference,
		}
		applyAddress(&order, in.Address)

		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			//同じ参照番号の同時挿入に負けたときは読み直す
			ex2, found2, err2 := r.Orders().FindByPaymentID(ctx, v.Reference)
			if err2 == nil && found2 {
				items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return NewHTTPError(http.StatusInternalServerError, "db error")
				}
				out = toOrderOutput(ex2, items2)
				return nil
			}
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		orderItems := toOrderItems(quote.Items)
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		customer, err = r.Users().FindByID(ctx, userID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		order.ID = orderID
		created = order
		isNew = true
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	if isNew {
		u.notify(ctx, created, customer)
	}
	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]OrderOutput, error) {
	if userID <= 0 {
		return []OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	//ページングでまずは固定で取る
	var outs []OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, _, err := r.Orders().ListByUserID(ctx, userID, 1, 50)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, "db error")
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, err
	}
	return outs, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if orderID <= 0 {
		return OrderOutput{}, NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return NewHTTPError(http.StatusNotFound, "not found")
		}
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}
		if o.UserID != userID {
			//他人の注文は「存在しない扱い」にする
			return NewHTTPError(http.StatusNotFound, "not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, "db error")
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// notifyは通知フェーズ。保存失敗は運用アラートとしてログに残すだけで、
// 顧客から見た注文作成は成功のまま。
func (u *OrderUsecase) notify(ctx context.Context, order model.Order, customer model.User) {
	if _, err := u.notifier.OnOrderCreated(ctx, order, customer); err != nil {
		u.log.Error("notification persist failed for placed order",
			zap.Int64("order_id", order.ID),
			zap.Error(err))
	}
}

func validateAddress(a AddressInput) error {
	if strings.TrimSpace(a.FirstName) == "" ||
		strings.TrimSpace(a.LastName) == "" ||
		strings.TrimSpace(a.Street) == "" ||
		strings.TrimSpace(a.Phone) == "" ||
		strings.TrimSpace(a.City) == "" {
		return NewHTTPError(http.StatusBadRequest, "invalid address")
	}
	return nil
}

func applyAddress(o *model.Order, a AddressInput) {
	o.ShipFirstName = a.FirstName
	o.ShipLastName = a.LastName
	o.ShipStreet = a.Street
	o.ShipPhone = a.Phone
	o.ShipCity = a.City
	o.ShipState = a.State
	o.ShipZip = a.Zip
}

func toPricingItems(items []OrderItemInput) []pricing.Item {
	out := make([]pricing.Item, 0, len(items))
	for _, it := range items {
		out = append(out, pricing.Item{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return out
}

func toOrderItems(items []pricing.QuotedItem) []model.OrderItem {
	out := make([]model.OrderItem, 0, len(items))
	for _, it := range items {
		//スナップショット
		out = append(out, model.OrderItem{
			ProductID:           it.ProductID,
			ProductNameSnapshot: it.Name,
			UnitPriceSnapshot:   it.UnitPrice,
			Quantity:            it.Quantity,
		})
	}
	return out
}

func pricingError(err error) error {
	if errors.Is(err, pricing.ErrProductNotFound) {
		return NewHTTPError(http.StatusBadRequest, "invalid product")
	}
	if errors.Is(err, pricing.ErrInvalidQuantity) {
		return NewHTTPError(http.StatusBadRequest, "invalid quantity")
	}
	return NewHTTPError(http.StatusInternalServerError, "db error")
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	return OrderOutput{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PaymentType:   string(o.PaymentType),
		Amount:        o.Amount,
		IsPaid:        o.IsPaid,
		PaymentID:     o.PaymentID,
		PaymentStatus: o.PaymentStatus,
		PaidAt:        o.PaidAt,
		CreatedAt:     o.CreatedAt,
		Items:         outItems,
	}
}
