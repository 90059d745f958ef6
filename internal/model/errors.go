package model

import (
	"errors"
	"fmt"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: validation, subscription, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidSubscriber  = "INVALID_SUBSCRIBER"
	ErrCodeInvalidToken       = "INVALID_TOKEN"
	ErrCodeTokenNotFound      = "TOKEN_NOT_FOUND"
	ErrCodePersistenceFailed  = "PERSISTENCE_FAILED"
	ErrCodeNotificationFailed = "NOTIFICATION_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"
)

// サーバー側の失敗を表すエラー。
// サービス層はこれらを%wでラップして返し、ハンドラーは500に変換する。
var (
	// ErrPersistenceFailed はストレージへの書き込み・更新が失敗したことを示す。
	ErrPersistenceFailed = errors.New("persistence failed")
	// ErrNotificationFailed は購読者の保存後に確認メールの送信が失敗したことを示す。
	// 購読者はpending_confirmationのまま残る。
	ErrNotificationFailed = errors.New("notification failed")
)

// NewInvalidSubscriberError は購読者入力（名前・メールアドレス）の検証エラーを生成する。
func NewInvalidSubscriberError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSubscriber,
		Message:  fmt.Sprintf("購読者情報が不正です: %s", reason),
		Category: "validation",
		Action:   "名前とメールアドレスを確認して再度送信してください。",
	}
}

// NewInvalidTokenError は確認トークンが指定されていない場合のエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "確認トークンが指定されていません。",
		Category: "validation",
		Action:   "確認メールに記載されたリンクをそのまま開いてください。",
	}
}

// NewTokenNotFoundError は確認トークンに対応する購読者が存在しない場合のエラーを生成する。
func NewTokenNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenNotFound,
		Message:  "確認トークンが見つかりません。",
		Category: "subscription",
		Action:   "確認メールのリンクを確認するか、もう一度購読登録してください。",
	}
}

// NewPersistenceFailedError は保存・更新の失敗をクライアントに伝えるエラーを生成する。
func NewPersistenceFailedError() *APIError {
	return &APIError{
		Code:     ErrCodePersistenceFailed,
		Message:  "購読情報の保存に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewNotificationFailedError は確認メールの送信失敗をクライアントに伝えるエラーを生成する。
func NewNotificationFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeNotificationFailed,
		Message:  "確認メールの送信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度購読登録してください。",
	}
}

// NewInternalError は分類できない内部エラーを生成する。
func NewInternalError() *APIError {
	return &APIError{
		Code:     ErrCodeInternal,
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
