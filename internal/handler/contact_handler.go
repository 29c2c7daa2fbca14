package handler

import (
	"context"
	"net/http"
)

// ContactServiceInterface はお問い合わせハンドラーが必要とするサービスインターフェース。
type ContactServiceInterface interface {
	SubmitContact(ctx context.Context, name, email, message string) error
}

// ContactHandler はお問い合わせフォームのHTTPハンドラー。
type ContactHandler struct {
	service ContactServiceInterface
}

// NewContactHandler はContactHandlerを生成する。
func NewContactHandler(service ContactServiceInterface) *ContactHandler {
	return &ContactHandler{service: service}
}

// Submit はお問い合わせメッセージを受け付ける。ログインは不要。
// POST /contact
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	fields, apiErr := requestFields(w, r, "name", "email", "message")
	if apiErr != nil {
		writeServiceError(w, apiErr)
		return
	}

	if err := h.service.SubmitContact(r.Context(), fields["name"], fields["email"], fields["message"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w)
}
