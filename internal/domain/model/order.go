package model

import "time"

type PaymentType string

const (
	PaymentTypeCOD    PaymentType = "COD"
	PaymentTypeOnline PaymentType = "ONLINE"
)

// 注文作成直後のステータス
const OrderStatusPlaced = "Order Placed"

type Order struct {
	ID          int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      int64       `gorm:"not null;index" json:"user_id"`
	Status      string      `gorm:"type:varchar(50);not null" json:"status"`
	PaymentType PaymentType `gorm:"type:varchar(20);not null" json:"payment_type"`

	// 合計はサーバー側で再計算して確定する（作成後は不変）
	Amount int64 `gorm:"not null" json:"amount"`

	IsPaid bool `gorm:"not null;default:false" json:"is_paid"`

	//ゲートウェイ取引が紐づくときだけ入る
	PaymentID     string     `gorm:"type:varchar(255);index" json:"payment_id"`
	PaymentStatus string     `gorm:"type:varchar(50)" json:"payment_status"`
	PaidAt        *time.Time `json:"paid_at"`

	// 配送先は作成時点のスナップショット（住所帳を後で直しても注文は変わらない）
	ShipFirstName string `gorm:"type:varchar(255);not null" json:"ship_first_name"`
	ShipLastName  string `gorm:"type:varchar(255);not null" json:"ship_last_name"`
	ShipStreet    string `gorm:"type:varchar(255);not null" json:"ship_street"`
	ShipPhone     string `gorm:"type:varchar(30);not null" json:"ship_phone"`
	ShipCity      string `gorm:"type:varchar(100);not null" json:"ship_city"`
	ShipState     string `gorm:"type:varchar(100)" json:"ship_state"`
	ShipZip       string `gorm:"type:varchar(20)" json:"ship_zip"`

	//二重作成防止（CODはヘッダーのキー、ONLINEはゲートウェイ参照番号）
	IdempotencyKey string `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
