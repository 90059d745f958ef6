package email

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/hitoshi/newsletter/internal/model"
	"github.com/hitoshi/newsletter/internal/security"
)

// sesAPI はSESSenderが使用するSES v2 APIのサブセット。
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESConfig はSESSenderの設定を保持する。
// AccessKeyIDが空の場合はAWS SDKのデフォルト認証チェーンを使用する。
type SESConfig struct {
	Sender          model.SubscriberEmail
	Region          string
	AccessKeyID     string
	SecretAccessKey security.Secret
	Timeout         time.Duration
}

// SESSender はAWS SES v2 APIでメールを送信するSender実装。
// HTTPゲートウェイと同じく1回の送信をタイムアウトで打ち切り、リトライしない。
type SESSender struct {
	client  sesAPI
	logger  *slog.Logger
	sender  model.SubscriberEmail
	timeout time.Duration
}

// NewSESSender はSESSenderを生成する。
func NewSESSender(ctx context.Context, cfg SESConfig, logger *slog.Logger) (*SESSender, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
		// リトライはSDKに任せず、呼び出し元に1回の失敗をそのまま返す
		awsconfig.WithRetryMaxAttempts(1),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey.Expose(), ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}

	return &SESSender{
		client:  sesv2.NewFromConfig(awsCfg),
		logger:  logger,
		sender:  cfg.Sender,
		timeout: cfg.Timeout,
	}, nil
}

// SendEmail はSES経由でメールを1通送信する。
func (s *SESSender) SendEmail(ctx context.Context, recipient model.SubscriberEmail, subject, htmlBody, textBody string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.sender.String()),
		Destination:      &types.Destination{ToAddresses: []string{recipient.String()}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(htmlBody), Charset: aws.String("UTF-8")},
					Text: &types.Content{Data: aws.String(textBody), Charset: aws.String("UTF-8")},
				},
			},
		},
	}

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		sendErr := classifySESError(ctx, err)
		s.logger.Error("SESでのメール送信に失敗しました",
			slog.String("error", err.Error()),
			slog.String("kind", sendErr.Kind.String()),
			slog.Int("http_status", sendErr.StatusCode),
		)
		return sendErr
	}

	messageID := ""
	if out != nil && out.MessageId != nil {
		messageID = *out.MessageId
	}
	s.logger.Debug("SESでメールを送信しました", slog.String("message_id", messageID))

	return nil
}

// classifySESError はSDKのエラーをSendErrorに分類する。
// タイムアウト判定をHTTPステータスより優先する。
func classifySESError(ctx context.Context, err error) *SendError {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &SendError{Kind: SendErrorTimeout, Err: err}
	}

	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return &SendError{Kind: SendErrorHTTPStatus, StatusCode: respErr.HTTPStatusCode(), Err: err}
	}

	return classifyTransportError(err)
}

// compile-time interface check
var _ Sender = (*SESSender)(nil)
