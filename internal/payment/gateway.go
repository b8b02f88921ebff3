package payment

import (
	"context"
	"errors"
)

var (
	//ゲートウェイに届かない・タイムアウトした
	ErrGatewayUnavailable = errors.New("gateway unavailable")

	//ゲートウェイが初期化要求を拒否した
	ErrGatewayRejected = errors.New("gateway rejected")
)

type InitiateInput struct {
	//確定済みの合計（最小通貨単位）。スケーリングは各ゲートウェイが行う。
	Amount int64

	Phone string
	Email string
}

// 顧客をゲートウェイへ誘導するための情報。
type Redirect struct {
	//ゲートウェイ取引の参照番号。コールバックで突き合わせる。
	Reference string

	URL    string            `json:"url"`
	Method string            `json:"method"`
	Fields map[string]string `json:"fields"`
}

// コールバック検証の結果。攻撃者が作れる入力なのでエラーではなく否定で返す。
type Verification struct {
	Success   bool
	Reference string

	//ゲートウェイが確認した金額（最小通貨単位）
	Amount int64

	//失敗理由（ログ用）
	Reason string
}

// 決済ゲートウェイ1つ分の契約。3つ目を足すときもこれを実装する。
type Gateway interface {
	Name() string
	Initiate(ctx context.Context, in InitiateInput) (Redirect, error)
	VerifyCallback(payload map[string]string) Verification
}
