// Package model はドメインモデルを定義する。
package model

import "time"

// Profile はアカウントごとのプロフィールレコードを表す。
// Identity ProviderのアカウントIDをキーとし、登録時に1度だけ作成される。
type Profile struct {
	AccountID string
	Username  string
	IsAdmin   bool
	CreatedAt time.Time
	// LastLogin は初回ログインまでnil。
	LastLogin *time.Time
}

// Session はログインセッションを表す。
// IsAdminはログイン時点のプロフィールのコピーであり、権限判定には使わない。
type Session struct {
	Token     string
	AccountID string
	IsAdmin   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired はセッションが指定時刻時点で期限切れかどうかを返す。
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// UserView はログイン中ユーザーとしてクライアントに返す情報。
type UserView struct {
	Username string `json:"username"`
	IsAdmin  bool   `json:"isAdmin"`
}

// WhoAmI はセッション確認の結果を表す。
type WhoAmI struct {
	LoggedIn bool      `json:"loggedIn"`
	User     *UserView `json:"user,omitempty"`
}
