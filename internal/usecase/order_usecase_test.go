package usecase

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"app/internal/domain/model"
	"app/internal/payment"
	repo "app/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	// 呼ばれた事実だけ記録（ctxの具体値は問わない）
	m.Called(ctx)
	return fn(m.Repos)
}

type TxReposMock struct {
	orders        repo.OrderRepository
	orderItems    repo.OrderItemRepository
	notifications repo.NotificationRepository
	products      repo.ProductRepository
	users         repo.UserRepository
}

func (r *TxReposMock) Orders() repo.OrderRepository               { return r.orders }
func (r *TxReposMock) OrderItems() repo.OrderItemRepository       { return r.orderItems }
func (r *TxReposMock) Notifications() repo.NotificationRepository { return r.notifications }
func (r *TxReposMock) Products() repo.ProductRepository           { return r.products }
func (r *TxReposMock) Users() repo.UserRepository                 { return r.users }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	args := m.Called(ctx, userID, page, limit)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) MarkPaid(ctx context.Context, orderID int64, status string, paidAt time.Time) error {
	args := m.Called(ctx, orderID, status, paidAt)
	return args.Error(0)
}

func (m *OrderRepoMock) FindByIdempotencyKey(ctx context.Context, key string) (model.Order, bool, error) {
	args := m.Called(ctx, key)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) FindByPaymentID(ctx context.Context, paymentID string) (model.Order, bool, error) {
	args := m.Called(ctx, paymentID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) ListSeller(ctx context.Context, f repo.SellerOrderListFilter) ([]model.Order, int64, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Get(1).(int64), args.Error(2)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

type UserRepoMock struct{ mock.Mock }

func (m *UserRepoMock) FindByID(ctx context.Context, userID int64) (model.User, error) {
	args := m.Called(ctx, userID)
	u, _ := args.Get(0).(model.User)
	return u, args.Error(1)
}

type NotificationRepoMock struct{ mock.Mock }

func (m *NotificationRepoMock) Create(ctx context.Context, n model.Notification) (int64, error) {
	args := m.Called(ctx, n)
	return args.Get(0).(int64), args.Error(1)
}

func (m *NotificationRepoMock) FindByID(ctx context.Context, id int64) (model.Notification, error) {
	args := m.Called(ctx, id)
	n, _ := args.Get(0).(model.Notification)
	return n, args.Error(1)
}

func (m *NotificationRepoMock) ListBySellerID(ctx context.Context, sellerID int64, f repo.NotificationListFilter) ([]model.Notification, int64, error) {
	args := m.Called(ctx, sellerID, f)
	items, _ := args.Get(0).([]model.Notification)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *NotificationRepoMock) MarkEmailSent(ctx context.Context, id int64, sentAt time.Time) error {
	args := m.Called(ctx, id, sentAt)
	return args.Error(0)
}

func (m *NotificationRepoMock) MarkRead(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *NotificationRepoMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type AuditRepoMock struct{ mock.Mock }

func (m *AuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *AuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	logs, _ := args.Get(0).([]model.AuditLog)
	return logs, args.Error(1)
}

// =====================
// Notifier / Gateway mocks
// =====================

type NotifierMock struct{ mock.Mock }

func (m *NotifierMock) OnOrderCreated(ctx context.Context, order model.Order, customer model.User) (model.Notification, error) {
	args := m.Called(ctx, order, customer)
	n, _ := args.Get(0).(model.Notification)
	return n, args.Error(1)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) Name() string { return "mockpay" }

func (m *GatewayMock) Initiate(ctx context.Context, in payment.InitiateInput) (payment.Redirect, error) {
	args := m.Called(ctx, in)
	r, _ := args.Get(0).(payment.Redirect)
	return r, args.Error(1)
}

func (m *GatewayMock) VerifyCallback(payload map[string]string) payment.Verification {
	args := m.Called(payload)
	v, _ := args.Get(0).(payment.Verification)
	return v
}

// =====================
// fixtures
// =====================

type orderUCFixture struct {
	tx       *TxManagerMock
	orders   *OrderRepoMock
	items    *OrderItemRepoMock
	products *ProductRepoMock
	users    *UserRepoMock
	notifier *NotifierMock
	gateway  *GatewayMock
	uc       *OrderUsecase
}

func newOrderUCFixture() *orderUCFixture {
	f := &orderUCFixture{
		orders:   new(OrderRepoMock),
		items:    new(OrderItemRepoMock),
		products: new(ProductRepoMock),
		users:    new(UserRepoMock),
		notifier: new(NotifierMock),
		gateway:  new(GatewayMock),
	}
	f.tx = &TxManagerMock{Repos: &TxReposMock{
		orders:     f.orders,
		orderItems: f.items,
		products:   f.products,
		users:      f.users,
	}}
	f.tx.On("WithinTx", mock.Anything).Return(nil)

	f.uc = NewOrderUsecase(f.tx, map[string]payment.Gateway{"mockpay": f.gateway}, f.notifier, zap.NewNop())
	return f
}

func validAddress() AddressInput {
	return AddressInput{
		FirstName: "Ayesha",
		LastName:  "Khan",
		Street:    "12 Mall Road",
		Phone:     "03001234567",
		City:      "Lahore",
		State:     "Punjab",
		Zip:       "54000",
	}
}

func codInput() PlaceOrderInput {
	return PlaceOrderInput{
		Items:          []OrderItemInput{{ProductID: 1, Quantity: 2}},
		Address:        validAddress(),
		IdempotencyKey: "key-1",
	}
}

func assertHTTPStatus(t *testing.T, err error, status int) {
	t.Helper()
	he, ok := AsHTTPError(err)
	assert.True(t, ok)
	if ok {
		assert.Equal(t, status, he.Status)
	}
}

// =====================
// PlaceOrderCOD
// =====================

func TestPlaceOrderCOD_Success(t *testing.T) {
	f := newOrderUCFixture()

	f.orders.On("FindByIdempotencyKey", mock.Anything, "key-1").Return(model.Order{}, false, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Rice 1kg", Price: 100, IsActive: true}, nil)

	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		// 200 + 配達料30 + 税10
		return o.Amount == 240 &&
			o.PaymentType == model.PaymentTypeCOD &&
			!o.IsPaid &&
			o.Status == model.OrderStatusPlaced &&
			o.ShipCity == "Lahore" &&
			o.IdempotencyKey == "key-1"
	})).Return(int64(5), nil)
	f.items.On("CreateBulk", mock.Anything, int64(5), mock.Anything).Return(nil)
	f.users.On("FindByID", mock.Anything, int64(3)).
		Return(model.User{ID: 3, FirstName: "Ayesha", LastName: "Khan", Email: "a@b.pk"}, nil)
	f.notifier.On("OnOrderCreated", mock.Anything, mock.Anything, mock.Anything).
		Return(model.Notification{ID: 1}, nil)

	out, err := f.uc.PlaceOrderCOD(context.Background(), 3, codInput())

	assert.NoError(t, err)
	assert.Equal(t, int64(5), out.ID)
	assert.Equal(t, int64(240), out.Amount)
	assert.False(t, out.IsPaid)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, "Rice 1kg", out.Items[0].Name)
	f.orders.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestPlaceOrderCOD_SameKeyReturnsExistingOrder(t *testing.T) {
	f := newOrderUCFixture()

	existing := model.Order{ID: 5, UserID: 3, Amount: 240, PaymentType: model.PaymentTypeCOD, Status: model.OrderStatusPlaced}
	f.orders.On("FindByIdempotencyKey", mock.Anything, "key-1").Return(existing, true, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{}, nil)

	out, err := f.uc.PlaceOrderCOD(context.Background(), 3, codInput())

	assert.NoError(t, err)
	assert.Equal(t, int64(5), out.ID)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	//既存を返すだけなら通知は出し直さない
	f.notifier.AssertNotCalled(t, "OnOrderCreated", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrderCOD_StaleProductAbortsBeforePersistence(t *testing.T) {
	f := newOrderUCFixture()

	f.orders.On("FindByIdempotencyKey", mock.Anything, "key-1").Return(model.Order{}, false, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).Return(model.Product{}, repo.ErrNotFound)

	_, err := f.uc.PlaceOrderCOD(context.Background(), 3, codInput())

	assertHTTPStatus(t, err, http.StatusBadRequest)
	//部分的な注文は残さない
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "OnOrderCreated", mock.Anything, mock.Anything, mock.Anything)
}

func TestPlaceOrderCOD_InvalidInput(t *testing.T) {
	f := newOrderUCFixture()

	in := codInput()
	in.Address.City = ""
	_, err := f.uc.PlaceOrderCOD(context.Background(), 3, in)
	assertHTTPStatus(t, err, http.StatusBadRequest)

	in = codInput()
	in.IdempotencyKey = ""
	_, err = f.uc.PlaceOrderCOD(context.Background(), 3, in)
	assertHTTPStatus(t, err, http.StatusBadRequest)

	_, err = f.uc.PlaceOrderCOD(context.Background(), 0, codInput())
	assertHTTPStatus(t, err, http.StatusUnauthorized)
}

func TestPlaceOrderCOD_NotificationFailureDoesNotFailPlacement(t *testing.T) {
	f := newOrderUCFixture()

	f.orders.On("FindByIdempotencyKey", mock.Anything, "key-1").Return(model.Order{}, false, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Rice 1kg", Price: 100, IsActive: true}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(int64(5), nil)
	f.items.On("CreateBulk", mock.Anything, int64(5), mock.Anything).Return(nil)
	f.users.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3}, nil)

	//通知の保存が落ちても注文は成立したまま返す
	f.notifier.On("OnOrderCreated", mock.Anything, mock.Anything, mock.Anything).
		Return(model.Notification{}, errors.New("db down"))

	out, err := f.uc.PlaceOrderCOD(context.Background(), 3, codInput())

	assert.NoError(t, err)
	assert.Equal(t, int64(5), out.ID)
}

// =====================
// InitiateOnlinePayment
// =====================

func TestInitiateOnlinePayment_Success(t *testing.T) {
	f := newOrderUCFixture()

	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Rice 1kg", Price: 100, IsActive: true}, nil)
	f.users.On("FindByID", mock.Anything, int64(3)).
		Return(model.User{ID: 3, Email: "a@b.pk", Phone: "0300"}, nil)

	//オンラインは配達料なし: 200 + 税10 = 210
	f.gateway.On("Initiate", mock.Anything, payment.InitiateInput{Amount: 210, Phone: "0300", Email: "a@b.pk"}).
		Return(payment.Redirect{Reference: "T1", URL: "https://gw.example/pay", Method: "POST"}, nil)

	out, err := f.uc.InitiateOnlinePayment(context.Background(), 3, "mockpay", InitiatePaymentInput{
		Items: []OrderItemInput{{ProductID: 1, Quantity: 2}},
	})

	assert.NoError(t, err)
	assert.Equal(t, "T1", out.Reference)
	assert.Equal(t, int64(210), out.Totals.Total)
	//初期化では何も保存しない
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInitiateOnlinePayment_GatewayUnavailable(t *testing.T) {
	f := newOrderUCFixture()

	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Rice 1kg", Price: 100, IsActive: true}, nil)
	f.users.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3}, nil)
	f.gateway.On("Initiate", mock.Anything, mock.Anything).
		Return(payment.Redirect{}, payment.ErrGatewayUnavailable)

	_, err := f.uc.InitiateOnlinePayment(context.Background(), 3, "mockpay", InitiatePaymentInput{
		Items: []OrderItemInput{{ProductID: 1, Quantity: 2}},
	})

	assertHTTPStatus(t, err, http.StatusBadGateway)
}

func TestInitiateOnlinePayment_UnknownGateway(t *testing.T) {
	f := newOrderUCFixture()

	_, err := f.uc.InitiateOnlinePayment(context.Background(), 3, "nopay", InitiatePaymentInput{})

	assertHTTPStatus(t, err, http.StatusNotFound)
}

// =====================
// CompleteOnlinePayment
// =====================

func onlineCallbackInput() CompletePaymentInput {
	return CompletePaymentInput{
		Payload: map[string]string{"any": "thing"},
		Items:   []OrderItemInput{{ProductID: 1, Quantity: 2}},
		Address: validAddress(),
	}
}

func TestCompleteOnlinePayment_Success(t *testing.T) {
	f := newOrderUCFixture()

	f.gateway.On("VerifyCallback", mock.Anything).
		Return(payment.Verification{Success: true, Reference: "T1", Amount: 210})
	f.orders.On("FindByPaymentID", mock.Anything, "T1").Return(model.Order{}, false, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Rice 1kg", Price: 100, IsActive: true}, nil)

	f.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		//検証済みで保存するので最初から支払い済み
		return o.IsPaid &&
			o.PaymentType == model.PaymentTypeOnline &&
			o.PaymentID == "T1" &&
			o.PaymentStatus == "success" &&
			o.PaidAt != nil &&
			o.Amount == 210
	})).Return(int64(9), nil)
	f.items.On("CreateBulk", mock.Anything, int64(9), mock.Anything).Return(nil)
	f.users.On("FindByID", mock.Anything, int64(3)).Return(model.User{ID: 3}, nil)
	f.notifier.On("OnOrderCreated", mock.Anything, mock.Anything, mock.Anything).
		Return(model.Notification{ID: 2}, nil)

	out, err := f.uc.CompleteOnlinePayment(context.Background(), 3, "mockpay", onlineCallbackInput())

	assert.NoError(t, err)
	assert.Equal(t, int64(9), out.ID)
	assert.True(t, out.IsPaid)
	f.orders.AssertExpectations(t)
	f.notifier.AssertExpectations(t)
}

func TestCompleteOnlinePayment_VerificationFailureCreatesNothing(t *testing.T) {
	f := newOrderUCFixture()

	f.gateway.On("VerifyCallback", mock.Anything).
		Return(payment.Verification{Success: false, Reference: "T1", Reason: "response code 001"})

	_, err := f.uc.CompleteOnlinePayment(context.Background(), 3, "mockpay", onlineCallbackInput())

	assertHTTPStatus(t, err, http.StatusBadRequest)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "OnOrderCreated", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteOnlinePayment_DuplicateReferenceIsIdempotent(t *testing.T) {
	f := newOrderUCFixture()

	existing := model.Order{ID: 9, UserID: 3, PaymentID: "T1", IsPaid: true, PaymentType: model.PaymentTypeOnline}
	f.gateway.On("VerifyCallback", mock.Anything).
		Return(payment.Verification{Success: true, Reference: "T1", Amount: 210})
	f.orders.On("FindByPaymentID", mock.Anything, "T1").Return(existing, true, nil)
	f.items.On("ListByOrderID", mock.Anything, int64(9)).Return([]model.OrderItem{}, nil)

	//同じコールバックを2回受けても注文は1件のまま
	out, err := f.uc.CompleteOnlinePayment(context.Background(), 3, "mockpay", onlineCallbackInput())

	assert.NoError(t, err)
	assert.Equal(t, int64(9), out.ID)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.notifier.AssertNotCalled(t, "OnOrderCreated", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteOnlinePayment_LostInsertRaceRereadsByReference(t *testing.T) {
	f := newOrderUCFixture()

	winner := model.Order{ID: 9, UserID: 3, PaymentID: "T1", IsPaid: true, PaymentType: model.PaymentTypeOnline}

	f.gateway.On("VerifyCallback", mock.Anything).
		Return(payment.Verification{Success: true, Reference: "T1", Amount: 210})
	//1回目の検索では見えず、挿入がユニーク制約で負け、読み直しで見える
	f.orders.On("FindByPaymentID", mock.Anything, "T1").Return(model.Order{}, false, nil).Once()
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Rice 1kg", Price: 100, IsActive: true}, nil)
	f.orders.On("Create", mock.Anything, mock.Anything).Return(int64(0), errors.New("duplicate key"))
	f.orders.On("FindByPaymentID", mock.Anything, "T1").Return(winner, true, nil).Once()
	f.items.On("ListByOrderID", mock.Anything, int64(9)).Return([]model.OrderItem{}, nil)

	out, err := f.uc.CompleteOnlinePayment(context.Background(), 3, "mockpay", onlineCallbackInput())

	assert.NoError(t, err)
	assert.Equal(t, int64(9), out.ID)
	f.notifier.AssertNotCalled(t, "OnOrderCreated", mock.Anything, mock.Anything, mock.Anything)
}

func TestCompleteOnlinePayment_AmountMismatchRejected(t *testing.T) {
	f := newOrderUCFixture()

	//ゲートウェイ確認額がサーバー計算の210と合わない
	f.gateway.On("VerifyCallback", mock.Anything).
		Return(payment.Verification{Success: true, Reference: "T1", Amount: 5})
	f.orders.On("FindByPaymentID", mock.Anything, "T1").Return(model.Order{}, false, nil)
	f.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Rice 1kg", Price: 100, IsActive: true}, nil)

	_, err := f.uc.CompleteOnlinePayment(context.Background(), 3, "mockpay", onlineCallbackInput())

	assertHTTPStatus(t, err, http.StatusBadRequest)
	f.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// =====================
// ListMyOrders / GetMyOrderDetail
// =====================

func TestGetMyOrderDetail_OtherUsersOrderIsNotFound(t *testing.T) {
	f := newOrderUCFixture()

	f.orders.On("FindByID", mock.Anything, int64(9)).
		Return(model.Order{ID: 9, UserID: 99}, nil)

	_, err := f.uc.GetMyOrderDetail(context.Background(), 3, 9)

	assertHTTPStatus(t, err, http.StatusNotFound)
}

func TestListMyOrders_ReturnsOwnOrders(t *testing.T) {
	f := newOrderUCFixture()

	f.orders.On("ListByUserID", mock.Anything, int64(3), 1, 50).
		Return([]model.Order{{ID: 5, UserID: 3}}, int64(1), nil)
	f.items.On("ListByOrderID", mock.Anything, int64(5)).Return([]model.OrderItem{}, nil)

	out, err := f.uc.ListMyOrders(context.Background(), 3)

	assert.NoError(t, err)
	assert.Len(t, out, 1)
}
