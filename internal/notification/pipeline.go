package notification

import (
	"context"
	"strconv"
	"sync"
	"time"

	"app/internal/domain/model"
	"app/internal/mailer"
	repo "app/internal/repository"

	"go.uber.org/zap"
)

// Pipelineは注文作成の後処理を2段階に分ける。
//  1. 通知レコードの保存（耐久フェーズ）。失敗は呼び出し元へ返す。
//  2. セラーへのメール送信（ベストエフォート）。呼び出し元をSMTPの
//     レイテンシで待たせないよう切り離したgoroutineで行い、
//     失敗はログに残すだけで決して伝播しない。
type Pipeline struct {
	notifications repo.NotificationRepository
	mailer        mailer.Mailer
	sellerID      int64
	sellerEmail   string
	log           *zap.Logger

	//テストでメール完了を待つため
	wg sync.WaitGroup
}

func NewPipeline(notifications repo.NotificationRepository, m mailer.Mailer, sellerID int64, sellerEmail string, log *zap.Logger) *Pipeline {
	return &Pipeline{
		notifications: notifications,
		mailer:        m,
		sellerID:      sellerID,
		sellerEmail:   sellerEmail,
		log:           log,
	}
}

// OnOrderCreatedは通知を保存してからメール送信を切り離して始める。
// 返ってくるエラーは保存失敗だけ。メールの結果はここでは待たない。
func (p *Pipeline) OnOrderCreated(ctx context.Context, order model.Order, customer model.User) (model.Notification, error) {
	n := model.Notification{
		SellerID: p.sellerID,
		OrderID:  order.ID,

		//あとで顧客が変わっても通知は当時のまま
		CustomerName:  customer.FirstName + " " + customer.LastName,
		CustomerEmail: customer.Email,
		CustomerPhone: customer.Phone,

		OrderAmount:      order.Amount,
		OrderPaymentType: order.PaymentType,
	}

	id, err := p.notifications.Create(ctx, n)
	if err != nil {
		return model.Notification{}, err
	}
	n.ID = id

	p.wg.Add(1)
	go p.sendEmail(n)

	return n, nil
}

func (p *Pipeline) sendEmail(n model.Notification) {
	defer p.wg.Done()

	//呼び出し元のリクエストとは切り離して自前の期限を持つ
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	data := map[string]string{
		"order_id":       strconv.FormatInt(n.OrderID, 10),
		"amount":         strconv.FormatInt(n.OrderAmount, 10),
		"payment_type":   string(n.OrderPaymentType),
		"customer_name":  n.CustomerName,
		"customer_phone": n.CustomerPhone,
	}

	if err := p.mailer.Send(ctx, p.sellerEmail, mailer.TemplateOrderNotification, data); err != nil {
		//送信失敗は通知を未送信のまま残すだけ
		p.log.Warn("seller email delivery failed",
			zap.Int64("notification_id", n.ID),
			zap.Int64("order_id", n.OrderID),
			zap.Error(err))
		return
	}

	if err := p.notifications.MarkEmailSent(ctx, n.ID, time.Now()); err != nil {
		p.log.Warn("mark email sent failed",
			zap.Int64("notification_id", n.ID),
			zap.Error(err))
	}
}

// Waitは走っているメール送信が終わるまで待つ（テスト用）。
func (p *Pipeline) Wait() {
	p.wg.Wait()
}
