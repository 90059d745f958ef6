// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/newsletter/internal/model"
)

// SubscriptionRepository は購読者と確認トークンの永続化インターフェース。
// 実装は並行呼び出しに対して安全でなければならない。
type SubscriptionRepository interface {
	// Register は購読者（pending_confirmation）と確認トークンを同一トランザクションで作成する。
	// どちらかの書き込みに失敗した場合は何も残さない。
	// 同じメールアドレスでも既存行の確認は行わず、新しい行を作る。
	Register(ctx context.Context, subscriber model.NewSubscriber) (*model.ConfirmationToken, error)

	// Confirm はトークンに紐づく購読者をconfirmedに更新する。
	// トークンが存在しない場合はエラーではなくConfirmationTokenNotFoundを返す。
	Confirm(ctx context.Context, token string) (model.ConfirmationOutcome, error)
}
