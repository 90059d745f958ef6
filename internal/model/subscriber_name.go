package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rivo/uniseg"
)

// MaxSubscriberNameLength は購読者名の最大長（書記素クラスタ数）。
const MaxSubscriberNameLength = 256

// forbiddenNameCharacters は購読者名に含められない文字。
const forbiddenNameCharacters = `/()"<>\{}`

// 購読者名の検証エラー。NameErrorでラップされて返る。
var (
	ErrNameEmptyOrWhitespace   = errors.New("subscriber name is empty or whitespace")
	ErrNameTooLong             = errors.New("subscriber name is too long")
	ErrNameForbiddenCharacters = errors.New("subscriber name contains forbidden characters")
)

// NameError は購読者名の検証失敗を表す。
// Reasonは上記のErrName*のいずれか。
type NameError struct {
	Value  string
	Reason error
}

// Error はerrorインターフェースを実装する。
func (e *NameError) Error() string {
	return fmt.Sprintf("invalid subscriber name %q: %v", e.Value, e.Reason)
}

// Unwrap はerrors.Isで理由を判定できるようにする。
func (e *NameError) Unwrap() error {
	return e.Reason
}

// SubscriberName は検証済みの購読者名。
// ParseSubscriberName経由でのみ生成でき、生成後は変更できない。
type SubscriberName struct {
	value string
}

// ParseSubscriberName は生の文字列を検証してSubscriberNameを返す。
// 検証は次の順に行い、最初に該当したものを返す:
//  1. 前後の空白を除くと空 → ErrNameEmptyOrWhitespace
//  2. 書記素クラスタ数が256を超える → ErrNameTooLong
//  3. 禁止文字 / ( ) " < > \ { } を含む → ErrNameForbiddenCharacters
func ParseSubscriberName(raw string) (SubscriberName, error) {
	if strings.TrimSpace(raw) == "" {
		return SubscriberName{}, &NameError{Value: raw, Reason: ErrNameEmptyOrWhitespace}
	}

	if uniseg.GraphemeClusterCount(raw) > MaxSubscriberNameLength {
		return SubscriberName{}, &NameError{Value: raw, Reason: ErrNameTooLong}
	}

	if strings.ContainsAny(raw, forbiddenNameCharacters) {
		return SubscriberName{}, &NameError{Value: raw, Reason: ErrNameForbiddenCharacters}
	}

	return SubscriberName{value: raw}, nil
}

// String は検証済みの名前を返す。
func (n SubscriberName) String() string {
	return n.value
}
