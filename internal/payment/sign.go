package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// 署名は常にフィールド名の辞書順で並べてから作る。
// 挿入順に依存すると再署名が再現できなくなる。

func canonicalValues(fields map[string]string, skipKey string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == skipKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, fields[k])
	}
	return strings.Join(values, "&")
}

// SecureHashはウォレット型（JazzCash）の署名。
// IntegritySaltを先頭につないだ文字列のSHA-256をhexで返す。
func SecureHash(fields map[string]string, salt string) string {
	msg := salt + "&" + canonicalValues(fields, "")
	sum := sha256.Sum256([]byte(msg))
	return hex.EncodeToString(sum[:])
}

// VerifySecureHashは受信ペイロードからハッシュフィールドを除いて
// 同じ署名を作り直し、一致するかを確かめる。比較は一定時間で行う。
func VerifySecureHash(fields map[string]string, hashKey string, salt string) bool {
	got, ok := fields[hashKey]
	if !ok || got == "" {
		return false
	}

	msg := salt + "&" + canonicalValues(fields, hashKey)
	sum := sha256.Sum256([]byte(msg))
	want := hex.EncodeToString(sum[:])

	return hmac.Equal([]byte(strings.ToLower(got)), []byte(want))
}

// HMACHashはREST型（Easypaisa）の署名。
// 辞書順の生の値を&でつないでHMAC-SHA256をhexで返す。
func HMACHash(fields map[string]string, key string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(canonicalValues(fields, "")))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACは受信ペイロード全体（ハッシュフィールドを除く）から
// HMACを作り直して一定時間で比較する。
func VerifyHMAC(fields map[string]string, hashKey string, key string) bool {
	got, ok := fields[hashKey]
	if !ok || got == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(canonicalValues(fields, hashKey)))
	want := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(strings.ToLower(got)), []byte(want))
}
