package model

import "time"

// 注文が入ったことをセラーに知らせる通知。
// 顧客情報・注文情報は作成時点のスナップショットで持つ
// （あとで顧客がプロフィールを変えても過去の通知は変わらない）。
type Notification struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	//セラーは1人だけの前提。将来の複数セラー化のためにカラムは残す
	SellerID int64 `gorm:"not null;index" json:"seller_id"`

	OrderID int64 `gorm:"not null;index" json:"order_id"`

	//顧客スナップショット
	CustomerName  string `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail string `gorm:"type:varchar(255);not null" json:"customer_email"`
	CustomerPhone string `gorm:"type:varchar(30)" json:"customer_phone"`

	//注文スナップショット
	OrderAmount      int64       `gorm:"not null" json:"order_amount"`
	OrderPaymentType PaymentType `gorm:"type:varchar(20);not null" json:"order_payment_type"`

	IsRead bool `gorm:"not null;default:false" json:"is_read"`

	//メール送信が成功したときだけtrueになる
	IsEmailSent bool       `gorm:"not null;default:false" json:"is_email_sent"`
	EmailSentAt *time.Time `json:"email_sent_at"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
