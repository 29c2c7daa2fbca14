// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService はお問い合わせフォームなど外部から受け取った
// テキストをサニタイズし、保存後に管理画面等で表示された際のXSSを防ぐ。
// bluemondayのStrictPolicyを使用し、すべてのHTMLタグを除去する。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
type ContentSanitizerService interface {
	// Sanitize はHTMLタグを除去し、HTMLとして安全なテキストを返す。
	// 前後の空白は除去する。同一入力に対して常に同一出力を返す（決定的）。
	Sanitize(raw string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーはスレッドセーフに使用できる。
type contentSanitizer struct {
	policy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// ポリシーの内容:
//   - すべてのタグと属性を除去（StrictPolicy）
//   - script, styleの中身も除去
//   - テキスト中の & < > " ' はエスケープされる
func NewContentSanitizer() *contentSanitizer {
	return &contentSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize はテキストをサニタイズする。
func (s *contentSanitizer) Sanitize(raw string) string {
	return strings.TrimSpace(s.policy.Sanitize(raw))
}

// compile-time interface check
var _ ContentSanitizerService = (*contentSanitizer)(nil)
