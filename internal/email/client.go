// Package email は確認メール送信のためのメールゲートウェイ連携を提供する。
// トランザクションメールのHTTP JSON APIクライアントと、AWS SESによる代替実装を含む。
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/newsletter/internal/model"
	"github.com/hitoshi/newsletter/internal/security"
)

// maxDrainBytes は接続再利用のために読み捨てるレスポンスボディの上限。
const maxDrainBytes = 64 << 10

// Sender は確認メールを送信するインターフェース。
// 実装は並行呼び出しに対して安全でなければならない。
type Sender interface {
	// SendEmail はrecipient宛てにメールを1通送信する。
	// 失敗時は*SendErrorを返す。リトライは行わない。
	SendEmail(ctx context.Context, recipient model.SubscriberEmail, subject, htmlBody, textBody string) error
}

// ClientConfig はClientの設定を保持する。
type ClientConfig struct {
	Sender             model.SubscriberEmail // 送信元アドレス
	BaseURL            string                // ゲートウェイのベースURL（例: https://api.postmarkapp.com）
	AuthorizationToken security.Secret       // Authorizationヘッダーに設定する認証情報
	Timeout            time.Duration         // 1回の送信のタイムアウト
}

// Client はトランザクションメールゲートウェイのHTTPクライアント。
// POST {BaseURL}/email にJSONでメールを送信する。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	sender     model.SubscriberEmail
	endpoint   string
	authToken  security.Secret
}

// sendEmailRequest はゲートウェイに送信するリクエストボディ。
// フィールド名は先頭大文字がゲートウェイとの契約。
type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HTMLBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// NewClient はClientの新しいインスタンスを生成する。
// http.Clientは1つだけ生成し、全呼び出しで共有する。
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		sender:     cfg.Sender,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/email",
		authToken:  cfg.AuthorizationToken,
	}
}

// SendEmail はゲートウェイ経由でメールを1通送信する。
// タイムアウト時はSendErrorTimeout、2xx以外はSendErrorHTTPStatus、
// 接続失敗はSendErrorTransportを返す。
func (c *Client) SendEmail(ctx context.Context, recipient model.SubscriberEmail, subject, htmlBody, textBody string) error {
	body, err := json.Marshal(sendEmailRequest{
		From:     c.sender.String(),
		To:       recipient.String(),
		Subject:  subject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	})
	if err != nil {
		return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Authorization", c.authToken.Expose())
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		sendErr := classifyTransportError(err)
		c.logger.Error("メールゲートウェイの呼び出しに失敗しました",
			slog.String("error", err.Error()),
			slog.String("kind", sendErr.Kind.String()),
		)
		return sendErr
	}
	defer resp.Body.Close()

	// 接続を再利用できるようにボディを読み捨てる
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("メールゲートウェイがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return &SendError{Kind: SendErrorHTTPStatus, StatusCode: resp.StatusCode}
	}

	return nil
}

// compile-time interface check
var _ Sender = (*Client)(nil)
