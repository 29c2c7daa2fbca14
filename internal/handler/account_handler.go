package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/gatehouse/internal/middleware"
	"github.com/hitoshi/gatehouse/internal/model"
)

// AccountServiceInterface はアカウントハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	Register(ctx context.Context, username, password string) error
	// Login は認証に成功した場合に新しいセッションを返す。previousTokenのセッションは破棄される。
	Login(ctx context.Context, username, password, previousToken string) (*model.Session, error)
	WhoAmI(ctx context.Context, token string) (*model.WhoAmI, error)
	Logout(ctx context.Context, token string) error
	ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error
}

// AccountHandler は登録・ログイン・セッション関連のHTTPハンドラー。
type AccountHandler struct {
	service AccountServiceInterface
	cookie  *middleware.SessionCookie
}

// NewAccountHandler はAccountHandlerを生成する。
func NewAccountHandler(service AccountServiceInterface, cookie *middleware.SessionCookie) *AccountHandler {
	return &AccountHandler{
		service: service,
		cookie:  cookie,
	}
}

// whoAmIErrorResponse は/api/userの失敗時レスポンス。
type whoAmIErrorResponse struct {
	LoggedIn bool   `json:"loggedIn"`
	Error    string `json:"error"`
}

// Register はアカウントを登録する。
// POST /register
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	fields, apiErr := requestFields(w, r, "username", "password")
	if apiErr != nil {
		writeServiceError(w, apiErr)
		return
	}

	if err := h.service.Register(r.Context(), fields["username"], fields["password"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w)
}

// Login は認証情報を検証し、セッションCookieを発行する。
// POST /login
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	fields, apiErr := requestFields(w, r, "username", "password")
	if apiErr != nil {
		writeServiceError(w, apiErr)
		return
	}

	previous := middleware.SessionTokenFromContext(r.Context())
	session, err := h.service.Login(r.Context(), fields["username"], fields["password"], previous)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := h.cookie.Set(w, session.Token); err != nil {
		slog.Error("failed to issue session cookie", slog.String("error", err.Error()))
		middleware.WriteInternalServerError(w)
		return
	}

	writeSuccess(w)
}

// CurrentUser はログイン中のユーザー情報を返す。
// GET /api/user
func (h *AccountHandler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionTokenFromContext(r.Context())

	result, err := h.service.WhoAmI(r.Context(), token)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, whoAmIErrorResponse{
			LoggedIn: false,
			Error:    "Error fetching user data",
		})
		return
	}

	// 失効したセッションを指すCookieは削除する
	if !result.LoggedIn && token != "" {
		h.cookie.Clear(w)
	}

	writeJSON(w, http.StatusOK, result)
}

// Logout はセッションを破棄しCookieを削除する。
// POST /logout
func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.SessionTokenFromContext(r.Context())

	if err := h.service.Logout(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}

	h.cookie.Clear(w)
	writeSuccess(w)
}

// ChangePassword はログイン中ユーザーのパスワードを変更する。
// POST /api/password
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	fields, apiErr := requestFields(w, r, "currentPassword", "newPassword")
	if apiErr != nil {
		writeServiceError(w, apiErr)
		return
	}

	token := middleware.SessionTokenFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), token, fields["currentPassword"], fields["newPassword"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w)
}
