// Package subscription は購読登録と確認のライフサイクルを提供する。
// 入力検証、永続化、確認メール送信を順に行い、
// 内部の失敗をクライアントに見せる結果（APIErrorまたはサーバーエラー）に変換する。
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hitoshi/newsletter/internal/email"
	"github.com/hitoshi/newsletter/internal/metrics"
	"github.com/hitoshi/newsletter/internal/model"
	"github.com/hitoshi/newsletter/internal/repository"
	"github.com/hitoshi/newsletter/internal/security"
)

// Service は購読ライフサイクルのサービス層。
// 状態はすべて注入された依存が持ち、Service自体は並行呼び出しに対して安全。
type Service struct {
	repo      repository.SubscriptionRepository
	sender    email.Sender
	sanitizer security.ContentSanitizerService
	metrics   metrics.MetricsCollector
	tracer    trace.Tracer
	logger    *slog.Logger
	baseURL   string
}

// NewService はServiceの新しいインスタンスを生成する。
// baseURLは確認リンクの組み立てに使う公開URL。
func NewService(
	repo repository.SubscriptionRepository,
	sender email.Sender,
	sanitizer security.ContentSanitizerService,
	collector metrics.MetricsCollector,
	tracer trace.Tracer,
	logger *slog.Logger,
	baseURL string,
) *Service {
	return &Service{
		repo:      repo,
		sender:    sender,
		sanitizer: sanitizer,
		metrics:   collector,
		tracer:    tracer,
		logger:    logger,
		baseURL:   baseURL,
	}
}

// Register は購読者を検証・保存し、確認メールを送信する。
//
// 戻り値:
//   - 入力が不正な場合は*model.APIError（INVALID_SUBSCRIBER）。保存もメール送信も行わない
//   - 保存に失敗した場合はmodel.ErrPersistenceFailedをラップしたエラー
//   - メール送信に失敗した場合はmodel.ErrNotificationFailedをラップしたエラー。購読者はpending_confirmationのまま残る
func (s *Service) Register(ctx context.Context, rawName, rawEmail string) error {
	ctx, span := s.tracer.Start(ctx, "subscription.Register",
		trace.WithAttributes(attribute.String("subscriber.email", rawEmail)),
	)
	defer span.End()

	name, err := model.ParseSubscriberName(rawName)
	if err != nil {
		s.metrics.RecordRegistration(metrics.OutcomeInvalid)
		span.SetAttributes(attribute.String("outcome", metrics.OutcomeInvalid))
		return model.NewInvalidSubscriberError(err.Error())
	}
	addr, err := model.ParseSubscriberEmail(rawEmail)
	if err != nil {
		s.metrics.RecordRegistration(metrics.OutcomeInvalid)
		span.SetAttributes(attribute.String("outcome", metrics.OutcomeInvalid))
		return model.NewInvalidSubscriberError(err.Error())
	}
	subscriber := model.NewSubscriber{Name: name, Email: addr}

	// クライアントの切断で保存やメール送信を途中で止めない
	ctx = context.WithoutCancel(ctx)

	token, err := s.repo.Register(ctx, subscriber)
	if err != nil {
		s.metrics.RecordRegistration(metrics.OutcomePersistenceFailed)
		recordSpanError(span, err)
		s.logger.Error("購読者の保存に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %w", model.ErrPersistenceFailed, err)
	}

	if err := s.sendConfirmationEmail(ctx, subscriber, token.Token); err != nil {
		s.metrics.RecordRegistration(metrics.OutcomeNotificationFailed)
		recordSpanError(span, err)
		s.logger.Error("確認メールの送信に失敗しました",
			slog.String("subscriber_id", token.SubscriberID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %w", model.ErrNotificationFailed, err)
	}

	s.metrics.RecordRegistration(metrics.OutcomeSuccess)
	span.SetAttributes(
		attribute.String("outcome", metrics.OutcomeSuccess),
		attribute.String("subscriber.id", token.SubscriberID),
	)
	s.logger.Info("購読者を登録しました",
		slog.String("subscriber_id", token.SubscriberID),
	)

	return nil
}

// Confirm は確認トークンに紐づく購読者をconfirmedにする。
//
// 戻り値:
//   - トークンが空の場合は*model.APIError（INVALID_TOKEN）
//   - トークンが存在しない場合は*model.APIError（TOKEN_NOT_FOUND）
//   - 更新に失敗した場合はmodel.ErrPersistenceFailedをラップしたエラー
func (s *Service) Confirm(ctx context.Context, token string) error {
	ctx, span := s.tracer.Start(ctx, "subscription.Confirm")
	defer span.End()

	if token == "" {
		s.metrics.RecordConfirmation(metrics.OutcomeInvalid)
		span.SetAttributes(attribute.String("outcome", metrics.OutcomeInvalid))
		return model.NewInvalidTokenError()
	}

	ctx = context.WithoutCancel(ctx)

	outcome, err := s.repo.Confirm(ctx, token)
	if err != nil {
		s.metrics.RecordConfirmation(metrics.OutcomePersistenceFailed)
		recordSpanError(span, err)
		s.logger.Error("購読者の確認に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%w: %w", model.ErrPersistenceFailed, err)
	}

	switch outcome {
	case model.ConfirmationConfirmed:
		s.metrics.RecordConfirmation(metrics.OutcomeSuccess)
		span.SetAttributes(attribute.String("outcome", metrics.OutcomeSuccess))
		s.logger.Info("購読が確認されました")
		return nil
	case model.ConfirmationTokenNotFound:
		s.metrics.RecordConfirmation(metrics.OutcomeTokenNotFound)
		span.SetAttributes(attribute.String("outcome", metrics.OutcomeTokenNotFound))
		return model.NewTokenNotFoundError()
	default:
		err := fmt.Errorf("unexpected confirmation outcome: %v", outcome)
		s.metrics.RecordConfirmation(metrics.OutcomePersistenceFailed)
		recordSpanError(span, err)
		return fmt.Errorf("%w: %w", model.ErrPersistenceFailed, err)
	}
}

// sendConfirmationEmail は確認リンクを含むメールを1回だけ送信する。
func (s *Service) sendConfirmationEmail(ctx context.Context, subscriber model.NewSubscriber, token string) error {
	link := confirmationLink(s.baseURL, token)
	msg := buildConfirmationEmail(
		subscriber.Name.String(),
		s.sanitizer.SanitizeText(subscriber.Name.String()),
		link,
	)

	start := time.Now()
	err := s.sender.SendEmail(ctx, subscriber.Email, msg.Subject, msg.HTMLBody, msg.TextBody)
	s.metrics.RecordEmailLatency(time.Since(start))
	s.metrics.RecordEmailSend(emailResult(err))

	return err
}

// emailResult は送信結果をメトリクスのラベルに変換する。
func emailResult(err error) string {
	if err == nil {
		return metrics.EmailResultSent
	}
	if email.IsTimeout(err) {
		return metrics.EmailResultTimeout
	}

	var sendErr *email.SendError
	if errors.As(err, &sendErr) && sendErr.Kind == email.SendErrorHTTPStatus {
		return metrics.EmailResultHTTPStatus
	}
	return metrics.EmailResultTransport
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
