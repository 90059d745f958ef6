package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/newsletter/internal/model"
)

// PostgresSubscriptionRepo はPostgreSQLを使用した購読リポジトリ。
type PostgresSubscriptionRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresSubscriptionRepo はPostgresSubscriptionRepoを生成する。
func NewPostgresSubscriptionRepo(db *sql.DB) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Register は購読者と確認トークンを同一トランザクションで作成する。
// 購読者IDとトークンはどちらもランダムなUUIDで、登録ごとに新しく発行する。
func (r *PostgresSubscriptionRepo) Register(ctx context.Context, subscriber model.NewSubscriber) (*model.ConfirmationToken, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクションの開始に失敗しました: %w", err)
	}
	defer tx.Rollback()

	subscriberID := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		subscriberID, subscriber.Email.String(), subscriber.Name.String(), r.now(), string(model.StatusPendingConfirmation),
	)
	if err != nil {
		return nil, fmt.Errorf("購読者の挿入に失敗しました%s: %w", pqErrorDetail(err), err)
	}

	token := &model.ConfirmationToken{
		Token:        uuid.NewString(),
		SubscriberID: subscriberID,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO subscription_tokens (subscription_token, subscriber_id)
		 VALUES ($1, $2)`,
		token.Token, token.SubscriberID,
	)
	if err != nil {
		return nil, fmt.Errorf("確認トークンの挿入に失敗しました%s: %w", pqErrorDetail(err), err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("トランザクションのコミットに失敗しました: %w", err)
	}

	return token, nil
}

// Confirm はトークンに紐づく購読者のステータスをconfirmedに更新する。
// 既にconfirmedの購読者に対しても同じ結果を返す。
func (r *PostgresSubscriptionRepo) Confirm(ctx context.Context, token string) (model.ConfirmationOutcome, error) {
	var subscriberID string
	err := r.db.QueryRowContext(ctx,
		`UPDATE subscriptions SET status = $1
		 WHERE id IN (SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = $2)
		 RETURNING id`,
		string(model.StatusConfirmed), token,
	).Scan(&subscriberID)

	if errors.Is(err, sql.ErrNoRows) {
		return model.ConfirmationTokenNotFound, nil
	}
	if err != nil {
		return 0, fmt.Errorf("購読者の確認に失敗しました%s: %w", pqErrorDetail(err), err)
	}

	return model.ConfirmationConfirmed, nil
}

// pqErrorDetail はPostgreSQLのエラーであればSQLSTATE名を付加情報として返す。
func pqErrorDetail(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Sprintf(" (%s)", pqErr.Code.Name())
	}
	return ""
}

// compile-time interface check
var _ SubscriptionRepository = (*PostgresSubscriptionRepo)(nil)
