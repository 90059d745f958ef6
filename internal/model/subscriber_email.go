package model

import (
	"fmt"

	"github.com/asaskevich/govalidator"
)

// maxEmailLength はRFC 5321のパス長制限に基づくメールアドレスの最大長。
const maxEmailLength = 254

// EmailError はメールアドレスの検証失敗を表す。
// 拒否した値を診断用に保持する。
type EmailError struct {
	Value string
}

// Error はerrorインターフェースを実装する。
func (e *EmailError) Error() string {
	return fmt.Sprintf("invalid email %q", e.Value)
}

// SubscriberEmail は検証済みのメールアドレス。
// ParseSubscriberEmail経由でのみ生成でき、生成後は変更できない。
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail は生の文字列をメールアドレスの構文として検証する。
// 表示名付きの形式（"Name <a@example.com>"）や前後の空白、ドットを含まないドメインは受け付けない。
// DNS/MXの確認は行わない。
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	if raw == "" || len(raw) > maxEmailLength {
		return SubscriberEmail{}, &EmailError{Value: raw}
	}
	if !govalidator.IsEmail(raw) {
		return SubscriberEmail{}, &EmailError{Value: raw}
	}

	return SubscriberEmail{value: raw}, nil
}

// String は検証済みのメールアドレスを返す。
func (e SubscriberEmail) String() string {
	return e.value
}
