package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
)

// EasypaisaはREST型の連携。初期化はサーバー間POSTで、
// ゲートウェイが発行するリダイレクトURLを受け取る。
type Easypaisa struct {
	storeID     string
	hashKey     string
	endpoint    string
	postbackURL string

	client *http.Client
	now    func() time.Time
}

func NewEasypaisa(cfg config.Config) *Easypaisa {
	return &Easypaisa{
		storeID:     cfg.EasypaisaStoreID,
		hashKey:     cfg.EasypaisaHashKey,
		endpoint:    cfg.EasypaisaEndpoint,
		postbackURL: cfg.EasypaisaPostbackURL,
		//ゲートウェイ呼び出しは短い固定タイムアウトで待つ
		client: &http.Client{Timeout: 5 * time.Second},
		now:    time.Now,
	}
}

func (g *Easypaisa) Name() string { return "easypaisa" }

type easypaisaInitResponse struct {
	ResponseCode string `json:"responseCode"`
	ResponseDesc string `json:"responseDesc"`
	RedirectURL  string `json:"redirectUrl"`
}

func (g *Easypaisa) Initiate(ctx context.Context, in InitiateInput) (Redirect, error) {
	//参照番号はタイムスタンプ由来（EPプレフィックス）
	ref := "EP" + strconv.FormatInt(g.now().Unix(), 10)

	fields := map[string]string{
		"storeId": g.storeID,
		//こちらは100倍スケーリングなし
		"transactionAmount": strconv.FormatInt(in.Amount, 10),
		"orderRefNum":       ref,
		"mobileNum":         in.Phone,
		"emailAddr":         in.Email,
		"postBackURL":       g.postbackURL,
	}
	fields["merchantHashedReq"] = HMACHash(fields, g.hashKey)

	body, err := json.Marshal(fields)
	if err != nil {
		return Redirect{}, fmt.Errorf("encode initiation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return Redirect{}, fmt.Errorf("build initiation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		//タイムアウトも到達不能も同じ扱い
		return Redirect{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Redirect{}, fmt.Errorf("%w: status %d", ErrGatewayRejected, resp.StatusCode)
	}

	var out easypaisaInitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Redirect{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	if out.ResponseCode != "0000" || out.RedirectURL == "" {
		return Redirect{}, fmt.Errorf("%w: %s %s", ErrGatewayRejected, out.ResponseCode, out.ResponseDesc)
	}

	return Redirect{
		Reference: ref,
		URL:       out.RedirectURL,
		Method:    "GET",
		Fields:    map[string]string{"orderRefNum": ref},
	}, nil
}

// VerifyCallbackは受信ペイロード全体からHMACを作り直して一定時間比較し、
// それが通ってはじめてtransactionStatusを見る。
func (g *Easypaisa) VerifyCallback(payload map[string]string) Verification {
	if len(payload) == 0 {
		return Verification{Success: false, Reason: "empty payload"}
	}

	ref := payload["orderRefNum"]
	if ref == "" {
		return Verification{Success: false, Reason: "missing orderRefNum"}
	}

	if !VerifyHMAC(payload, "hash", g.hashKey) {
		return Verification{Success: false, Reference: ref, Reason: "hmac mismatch"}
	}

	amount, err := strconv.ParseInt(payload["transactionAmount"], 10, 64)
	if err != nil || amount < 0 {
		return Verification{Success: false, Reference: ref, Reason: "bad transactionAmount"}
	}

	if payload["transactionStatus"] != "SUCCESS" {
		return Verification{Success: false, Reference: ref, Amount: amount, Reason: "status " + payload["transactionStatus"]}
	}

	return Verification{Success: true, Reference: ref, Amount: amount}
}
