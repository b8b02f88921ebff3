package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"app/internal/config"

	"github.com/stretchr/testify/assert"
)

func testEasypaisa(endpoint string) *Easypaisa {
	g := NewEasypaisa(config.Config{
		EasypaisaStoreID:     "52105",
		EasypaisaHashKey:     "key123",
		EasypaisaEndpoint:    endpoint,
		EasypaisaPostbackURL: "https://shop.example/payments/easypaisa/callback",
	})
	g.now = func() time.Time {
		return time.Unix(1735732800, 0)
	}
	return g
}

func TestEasypaisa_Initiate_Success(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&received)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"responseCode": "0000",
			"redirectUrl":  "https://easypay.example/checkout?token=abc",
		})
	}))
	defer srv.Close()

	g := testEasypaisa(srv.URL)

	r, err := g.Initiate(context.Background(), InitiateInput{Amount: 210, Phone: "03001234567", Email: "a@b.pk"})

	assert.NoError(t, err)
	assert.Equal(t, "EP1735732800", r.Reference)
	assert.Equal(t, "https://easypay.example/checkout?token=abc", r.URL)

	//スケーリングなしの金額と署名が送られている
	assert.Equal(t, "210", received["transactionAmount"])
	assert.True(t, VerifyHMAC(received, "merchantHashedReq", "key123"))
}

func TestEasypaisa_Initiate_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"responseCode": "0001",
			"responseDesc": "invalid store",
		})
	}))
	defer srv.Close()

	g := testEasypaisa(srv.URL)

	_, err := g.Initiate(context.Background(), InitiateInput{Amount: 210})

	assert.ErrorIs(t, err, ErrGatewayRejected)
}

func TestEasypaisa_Initiate_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // 接続できないエンドポイントにする

	g := testEasypaisa(srv.URL)

	_, err := g.Initiate(context.Background(), InitiateInput{Amount: 210})

	assert.ErrorIs(t, err, ErrGatewayUnavailable)
}

func signedEasypaisaCallback(key string, override map[string]string) map[string]string {
	payload := map[string]string{
		"orderRefNum":       "EP1735732800",
		"transactionAmount": "210",
		"transactionStatus": "SUCCESS",
	}
	for k, v := range override {
		payload[k] = v
	}
	payload["hash"] = HMACHash(payload, key)
	return payload
}

func TestEasypaisa_VerifyCallback_Success(t *testing.T) {
	g := testEasypaisa("http://unused")

	v := g.VerifyCallback(signedEasypaisaCallback("key123", nil))

	assert.True(t, v.Success)
	assert.Equal(t, "EP1735732800", v.Reference)
	assert.Equal(t, int64(210), v.Amount)
}

func TestEasypaisa_VerifyCallback_TamperedStatus(t *testing.T) {
	g := testEasypaisa("http://unused")

	//FAILEDで署名されたペイロードのステータスだけSUCCESSに書き換える
	payload := signedEasypaisaCallback("key123", map[string]string{"transactionStatus": "FAILED"})
	payload["transactionStatus"] = "SUCCESS"

	v := g.VerifyCallback(payload)

	assert.False(t, v.Success)
	assert.Contains(t, v.Reason, "hmac")
}

func TestEasypaisa_VerifyCallback_FailedStatus(t *testing.T) {
	g := testEasypaisa("http://unused")

	v := g.VerifyCallback(signedEasypaisaCallback("key123", map[string]string{"transactionStatus": "FAILED"}))

	assert.False(t, v.Success)
	assert.Equal(t, "EP1735732800", v.Reference)
}

func TestEasypaisa_VerifyCallback_Malformed(t *testing.T) {
	g := testEasypaisa("http://unused")

	assert.False(t, g.VerifyCallback(nil).Success)
	assert.False(t, g.VerifyCallback(map[string]string{"transactionStatus": "SUCCESS"}).Success)

	payload := signedEasypaisaCallback("key123", map[string]string{"transactionAmount": "two hundred"})
	assert.False(t, g.VerifyCallback(payload).Success)
}
