// Package identity はIdentity Provider（Firebase Authentication）とのやり取りを提供する。
package identity

import (
	"regexp"
	"strings"
)

// usernamePattern はユーザー名として許可する文字種と長さ。
// ログイン識別子がメールアドレスのローカル部として常に有効になるよう制限する。
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidUsername はユーザー名がログイン識別子に変換可能かを返す。
func ValidUsername(username string) bool {
	if !usernamePattern.MatchString(username) {
		return false
	}
	// ローカル部の先頭・末尾のドットと連続ドットは不可
	if strings.HasPrefix(username, ".") || strings.HasSuffix(username, ".") || strings.Contains(username, "..") {
		return false
	}
	return true
}

// LoginIdentifier はユーザー名からIdentity Providerに渡すログイン識別子を生成する。
// 有効なユーザー名に対して単射になる。
func LoginIdentifier(username, domain string) string {
	return username + "@" + domain
}
