package config

import (
	"fmt"
	"os"
	"strconv"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5433）

	JWTSecret string // JWT署名シークレット

	GoEnv    string // dev/prod
	LogLevel string // zapのレベル（debug/info/...）

	// JazzCash（ウォレット型）
	JazzCashMerchantID string // マーチャントID
	JazzCashPassword   string // マーチャントパスワード
	JazzCashSalt       string // IntegritySalt（ハッシュ用シークレット）
	JazzCashEndpoint   string // リダイレクト先のフォームURL
	JazzCashReturnURL  string // 決済後に戻ってくるURL

	// Easypaisa（REST型）
	EasypaisaStoreID     string // ストアID
	EasypaisaHashKey     string // HMAC用シークレット
	EasypaisaEndpoint    string // サーバー間初期化API
	EasypaisaPostbackURL string // コールバックURL

	// セラー通知メール
	MailEndpoint string // メール中継APIのURL
	MailAPIKey   string // 中継APIのキー
	MailFrom     string // 差出人アドレス

	// セラーは1人だけ
	SellerUserID int64  // セラーのユーザーID
	SellerEmail  string // 通知メールの宛先
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := mustAtoi("POSTGRES_PORT")
	if err != nil {
		return Config{}, err
	}

	sellerID, err := mustAtoi64("SELLER_USER_ID")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     os.Getenv("POSTGRES_HOST"),
		PostgresPort:     pgPort,

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv:    os.Getenv("GO_ENV"),
		LogLevel: getenvDefault("LOG_LEVEL", "info"),

		JazzCashMerchantID: os.Getenv("JAZZCASH_MERCHANT_ID"),
		JazzCashPassword:   os.Getenv("JAZZCASH_PASSWORD"),
		JazzCashSalt:       os.Getenv("JAZZCASH_INTEGRITY_SALT"),
		JazzCashEndpoint:   os.Getenv("JAZZCASH_ENDPOINT"),
		JazzCashReturnURL:  os.Getenv("JAZZCASH_RETURN_URL"),

		EasypaisaStoreID:     os.Getenv("EASYPAISA_STORE_ID"),
		EasypaisaHashKey:     os.Getenv("EASYPAISA_HASH_KEY"),
		EasypaisaEndpoint:    os.Getenv("EASYPAISA_ENDPOINT"),
		EasypaisaPostbackURL: os.Getenv("EASYPAISA_POSTBACK_URL"),

		MailEndpoint: os.Getenv("MAIL_ENDPOINT"),
		MailAPIKey:   os.Getenv("MAIL_API_KEY"),
		MailFrom:     os.Getenv("MAIL_FROM"),

		SellerUserID: sellerID,
		SellerEmail:  os.Getenv("SELLER_EMAIL"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.PostgresUser == "" {
		return Config{}, fmt.Errorf("POSTGRES_USER is required")
	}
	if cfg.PostgresPassword == "" {
		return Config{}, fmt.Errorf("POSTGRES_PASSWORD is required")
	}
	if cfg.PostgresDB == "" {
		return Config{}, fmt.Errorf("POSTGRES_DB is required")
	}
	if cfg.PostgresHost == "" {
		return Config{}, fmt.Errorf("POSTGRES_HOST is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}
	if cfg.JazzCashMerchantID == "" {
		return Config{}, fmt.Errorf("JAZZCASH_MERCHANT_ID is required")
	}
	if cfg.JazzCashPassword == "" {
		return Config{}, fmt.Errorf("JAZZCASH_PASSWORD is required")
	}
	if cfg.JazzCashSalt == "" {
		return Config{}, fmt.Errorf("JAZZCASH_INTEGRITY_SALT is required")
	}
	if cfg.JazzCashEndpoint == "" {
		return Config{}, fmt.Errorf("JAZZCASH_ENDPOINT is required")
	}
	if cfg.JazzCashReturnURL == "" {
		return Config{}, fmt.Errorf("JAZZCASH_RETURN_URL is required")
	}
	if cfg.EasypaisaStoreID == "" {
		return Config{}, fmt.Errorf("EASYPAISA_STORE_ID is required")
	}
	if cfg.EasypaisaHashKey == "" {
		return Config{}, fmt.Errorf("EASYPAISA_HASH_KEY is required")
	}
	if cfg.EasypaisaEndpoint == "" {
		return Config{}, fmt.Errorf("EASYPAISA_ENDPOINT is required")
	}
	if cfg.EasypaisaPostbackURL == "" {
		return Config{}, fmt.Errorf("EASYPAISA_POSTBACK_URL is required")
	}
	if cfg.MailEndpoint == "" {
		return Config{}, fmt.Errorf("MAIL_ENDPOINT is required")
	}
	if cfg.MailAPIKey == "" {
		return Config{}, fmt.Errorf("MAIL_API_KEY is required")
	}
	if cfg.MailFrom == "" {
		return Config{}, fmt.Errorf("MAIL_FROM is required")
	}
	if cfg.SellerEmail == "" {
		return Config{}, fmt.Errorf("SELLER_EMAIL is required")
	}

	return cfg, nil
}

func mustAtoi(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func mustAtoi64(key string) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func getenvDefault(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
