package email

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// SendErrorKind はメール送信失敗の種別を表す。
type SendErrorKind int

const (
	// SendErrorTimeout は設定されたタイムアウト内に応答がなかったことを示す。
	SendErrorTimeout SendErrorKind = iota + 1
	// SendErrorHTTPStatus はゲートウェイが2xx以外のステータスを返したことを示す。
	SendErrorHTTPStatus
	// SendErrorTransport は接続レベルの失敗を示す。
	SendErrorTransport
)

// String はログ・メトリクスのラベル用の表現を返す。
func (k SendErrorKind) String() string {
	switch k {
	case SendErrorTimeout:
		return "timeout"
	case SendErrorHTTPStatus:
		return "http_status"
	case SendErrorTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// SendError はメール送信の失敗を表す。
// リトライは行わないため、呼び出し元が扱いを決める。
type SendError struct {
	Kind       SendErrorKind
	StatusCode int // Kind == SendErrorHTTPStatus の場合のみ設定される
	Err        error
}

// Error はerrorインターフェースを実装する。
func (e *SendError) Error() string {
	switch e.Kind {
	case SendErrorTimeout:
		return fmt.Sprintf("email gateway timed out: %v", e.Err)
	case SendErrorHTTPStatus:
		return fmt.Sprintf("email gateway returned status %d", e.StatusCode)
	default:
		return fmt.Sprintf("email gateway transport error: %v", e.Err)
	}
}

// Unwrap は元のエラーを返す。
func (e *SendError) Unwrap() error {
	return e.Err
}

// IsTimeout はerrがタイムアウトによる送信失敗かどうかを返す。
func IsTimeout(err error) bool {
	var sendErr *SendError
	return errors.As(err, &sendErr) && sendErr.Kind == SendErrorTimeout
}

// classifyTransportError はHTTPクライアントやSDKが返したエラーをSendErrorに分類する。
func classifyTransportError(err error) *SendError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &SendError{Kind: SendErrorTimeout, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &SendError{Kind: SendErrorTimeout, Err: err}
	}

	return &SendError{Kind: SendErrorTransport, Err: err}
}
