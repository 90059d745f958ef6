// Package model はドメインモデルを定義する。
package model

import "time"

// SubscriptionStatus は購読者のライフサイクル状態を表す。
// pending_confirmation → confirmed の一方向遷移のみ存在する。
type SubscriptionStatus string

const (
	// StatusPendingConfirmation は登録直後で確認メールのトークン未使用の状態。
	StatusPendingConfirmation SubscriptionStatus = "pending_confirmation"
	// StatusConfirmed は確認トークンが使用された終端状態。
	StatusConfirmed SubscriptionStatus = "confirmed"
)

// NewSubscriber は登録リクエスト中だけ存在する検証済みの購読者入力。
// 永続化はされない。
type NewSubscriber struct {
	Name  SubscriberName
	Email SubscriberEmail
}

// Subscriber は永続化された購読者を表す。
// emailは一意制約を持たない（再送信時は新しい行が作られる）。
type Subscriber struct {
	ID           string
	Email        string
	Name         string
	SubscribedAt time.Time
	Status       SubscriptionStatus
}

// ConfirmationToken は購読者に紐づく確認トークン。
// 購読者と同一トランザクションで作成され、使用後も無効化されない。
type ConfirmationToken struct {
	Token        string
	SubscriberID string
}

// ConfirmationOutcome は確認トークン使用の結果を表す。
type ConfirmationOutcome int

const (
	// ConfirmationConfirmed はトークンに紐づく購読者がconfirmedに更新されたことを示す。
	// 既にconfirmedだった場合も同じ結果になる。
	ConfirmationConfirmed ConfirmationOutcome = iota + 1
	// ConfirmationTokenNotFound はトークンから到達できる購読者が存在しないことを示す。
	ConfirmationTokenNotFound
)

// String はログ出力用の表現を返す。
func (o ConfirmationOutcome) String() string {
	switch o {
	case ConfirmationConfirmed:
		return "confirmed"
	case ConfirmationTokenNotFound:
		return "token_not_found"
	default:
		return "unknown"
	}
}
