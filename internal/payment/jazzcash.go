package payment

import (
	"context"
	"strconv"
	"strings"
	"time"

	"app/internal/config"

	"github.com/google/uuid"
)

const jazzCashTimeFormat = "20060102150405"

// JazzCashはウォレット型の連携。
// 署名済みフォームをローカルで組み立ててリダイレクトさせるだけで、
// 初期化でのサーバー間通信はない。
type JazzCash struct {
	merchantID string
	password   string
	salt       string
	endpoint   string
	returnURL  string

	now func() time.Time
}

func NewJazzCash(cfg config.Config) *JazzCash {
	return &JazzCash{
		merchantID: cfg.JazzCashMerchantID,
		password:   cfg.JazzCashPassword,
		salt:       cfg.JazzCashSalt,
		endpoint:   cfg.JazzCashEndpoint,
		returnURL:  cfg.JazzCashReturnURL,
		now:        time.Now,
	}
}

func (g *JazzCash) Name() string { return "jazzcash" }

func (g *JazzCash) Initiate(ctx context.Context, in InitiateInput) (Redirect, error) {
	now := g.now()

	//参照番号はタイムスタンプ由来（Tプレフィックス）
	ref := "T" + now.Format(jazzCashTimeFormat)

	//請求参照は短いランダムで十分
	billRef := "G" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]

	fields := map[string]string{
		"pp_Version":    "1.1",
		"pp_TxnType":    "MWALLET",
		"pp_Language":   "EN",
		"pp_MerchantID": g.merchantID,
		"pp_Password":   g.password,
		"pp_TxnRefNo":   ref,
		//金額は100倍のパイサ整数
		"pp_Amount":            strconv.FormatInt(in.Amount*100, 10),
		"pp_TxnCurrency":       "PKR",
		"pp_TxnDateTime":       now.Format(jazzCashTimeFormat),
		"pp_TxnExpiryDateTime": now.Add(1 * time.Hour).Format(jazzCashTimeFormat),
		"pp_BillReference":     billRef,
		"pp_Description":       "Grocery order payment",
		"pp_ReturnURL":         g.returnURL,
		"ppmpf_1":              in.Phone,
	}
	fields["pp_SecureHash"] = SecureHash(fields, g.salt)

	return Redirect{
		Reference: ref,
		URL:       g.endpoint,
		Method:    "POST",
		Fields:    fields,
	}, nil
}

// VerifyCallbackはレスポンスコードを信じる前に署名を作り直して確かめる。
// 署名・必須フィールドのどれが欠けても失敗として返す（panicしない）。
func (g *JazzCash) VerifyCallback(payload map[string]string) Verification {
	if len(payload) == 0 {
		return Verification{Success: false, Reason: "empty payload"}
	}

	ref := payload["pp_TxnRefNo"]
	if ref == "" {
		return Verification{Success: false, Reason: "missing pp_TxnRefNo"}
	}

	if !VerifySecureHash(payload, "pp_SecureHash", g.salt) {
		return Verification{Success: false, Reference: ref, Reason: "secure hash mismatch"}
	}

	//パイサを元の単位に戻す
	paisa, err := strconv.ParseInt(payload["pp_Amount"], 10, 64)
	if err != nil || paisa < 0 {
		return Verification{Success: false, Reference: ref, Reason: "bad pp_Amount"}
	}

	//成功コードは"000"だけ
	if payload["pp_ResponseCode"] != "000" {
		return Verification{Success: false, Reference: ref, Amount: paisa / 100, Reason: "response code " + payload["pp_ResponseCode"]}
	}

	return Verification{Success: true, Reference: ref, Amount: paisa / 100}
}
