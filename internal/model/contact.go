package model

import "time"

// ContactMessage はお問い合わせフォームから送信されたメッセージ。
// 書き込み専用で、保存後に更新・削除されることはない。
type ContactMessage struct {
	ID         string
	Name       string
	Email      string
	Message    string
	ReceivedAt time.Time
}
