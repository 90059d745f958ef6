package security

import (
	"encoding/json"
	"log/slog"
)

const redacted = "[REDACTED]"

// Secret はログや診断出力に値を出してはならない認証情報を保持する。
// fmt、slog、encoding/json のいずれで出力しても伏せ字になる。
// 実際の値はExposeでのみ取り出せる。
type Secret struct {
	value string
}

// NewSecret はSecretを生成する。
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// Expose は秘匿値をそのまま返す。HTTPヘッダー設定など送信直前でのみ使用する。
func (s Secret) Expose() string {
	return s.value
}

// IsZero は値が未設定かどうかを返す。
func (s Secret) IsZero() bool {
	return s.value == ""
}

// String はfmt出力用に伏せ字を返す。
func (s Secret) String() string {
	return redacted
}

// GoString は%#v出力用に伏せ字を返す。
func (s Secret) GoString() string {
	return redacted
}

// LogValue はslog.LogValuerを実装する。
func (s Secret) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// MarshalJSON はJSONシリアライズ時に伏せ字を出力する。
func (s Secret) MarshalJSON() ([]byte, error) {
	return json.Marshal(redacted)
}
