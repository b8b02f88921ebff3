package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"app/internal/config"
)

// メール本文はテンプレートIDとデータで外のサービスに任せる。
type Mailer interface {
	Send(ctx context.Context, to string, templateID string, data map[string]string) error
}

// 新着注文通知のテンプレート
const TemplateOrderNotification = "order-notification"

// RelayMailerはメール中継APIへのクライアント。
type RelayMailer struct {
	endpoint string
	apiKey   string
	from     string

	client *http.Client
}

func NewRelayMailer(cfg config.Config) *RelayMailer {
	return &RelayMailer{
		endpoint: cfg.MailEndpoint,
		apiKey:   cfg.MailAPIKey,
		from:     cfg.MailFrom,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type relayRequest struct {
	From       string            `json:"from"`
	To         string            `json:"to"`
	TemplateID string            `json:"template_id"`
	Data       map[string]string `json:"data"`
}

func (m *RelayMailer) Send(ctx context.Context, to string, templateID string, data map[string]string) error {
	body, err := json.Marshal(relayRequest{
		From:       m.from,
		To:         to,
		TemplateID: templateID,
		Data:       data,
	})
	if err != nil {
		return fmt.Errorf("encode mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail relay request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail relay status %d", resp.StatusCode)
	}
	return nil
}
