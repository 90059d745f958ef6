// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizer は確認メールに埋め込むユーザー入力をサニタイズし、
// HTMLメール本文へのマークアップ注入を防ぐ。
// bluemondayのStrictPolicyを使用し、すべてのタグを除去したうえで
// テキストをHTMLエスケープする。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はメール本文用のサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// SanitizeText はユーザー入力をHTML本文に安全に埋め込める形に変換する。
	// タグはすべて除去され、& や ' などの文字はエスケープされる。
	// 空文字列の入力には空文字列を返す。
	SanitizeText(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフなので、1インスタンスを共有してよい。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はユーザー入力をHTMLエスケープ済みのテキストに変換する。
func (s *contentSanitizer) SanitizeText(raw string) string {
	return s.policy.Sanitize(raw)
}
