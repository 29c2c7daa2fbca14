// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName はセッションCookieの名前。
const SessionCookieName = "session_id"

// sessionIssuer はCookieに格納するJWTの発行者。
const sessionIssuer = "gatehouse"

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// sessionTokenContextKey はリクエストコンテキストにセッショントークンを格納するためのキー。
var sessionTokenContextKey = contextKey("session_token")

// SessionCookieConfig はセッションCookieの設定。
type SessionCookieConfig struct {
	Secret string // JWT署名鍵
	MaxAge int    // 秒
	Secure bool
	Domain string
}

// SessionCookie はセッショントークンをHS256署名付きJWTとしてCookieに読み書きする。
// トークン自体は不透明な値で、JWTは改ざん検知のためのラッパーとして使う。
type SessionCookie struct {
	config SessionCookieConfig
	now    func() time.Time
}

// sessionClaims はCookie内JWTのクレーム。
type sessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewSessionCookie はSessionCookieを生成する。
func NewSessionCookie(config SessionCookieConfig) *SessionCookie {
	return &SessionCookie{config: config, now: time.Now}
}

// Encode はセッショントークンを署名済みJWTに変換する。
func (c *SessionCookie) Encode(token string) (string, error) {
	now := c.now()
	claims := sessionClaims{
		SessionID: token,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(c.config.MaxAge) * time.Second)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.config.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	return signed, nil
}

// Decode は署名済みJWTを検証し、セッショントークンを返す。
// 署名不正、期限切れ、形式不正のいずれもエラーを返す。
func (c *SessionCookie) Decode(value string) (string, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(value, &claims, func(t *jwt.Token) (any, error) {
		return []byte(c.config.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sessionIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return "", fmt.Errorf("invalid session cookie: %w", err)
	}
	if claims.SessionID == "" {
		return "", errors.New("invalid session cookie: empty sid")
	}
	return claims.SessionID, nil
}

// Set はセッションCookieをレスポンスに設定する。
func (c *SessionCookie) Set(w http.ResponseWriter, token string) error {
	value, err := c.Encode(token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   c.config.MaxAge,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear はセッションCookieを削除する。
func (c *SessionCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.config.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// NewSessionMiddleware はCookieからセッショントークンを取り出し、リクエストコンテキストに注入する。
// Cookieが無い、または検証に失敗した場合はトークン無しとして次に渡す（401は返さない）。
// セッションの存在確認はサービス層で行う。
func NewSessionMiddleware(cookie *SessionCookie) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(SessionCookieName)
			if err != nil || c.Value == "" {
				next.ServeHTTP(w, r)
				return
			}

			token, err := cookie.Decode(c.Value)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithSessionToken(r.Context(), token)))
		})
	}
}

// SessionTokenFromContext はリクエストコンテキストからセッショントークンを取得する。
// 存在しない場合は空文字列を返す。
func SessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenContextKey).(string)
	return token
}

// ContextWithSessionToken はコンテキストにセッショントークンを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenContextKey, token)
}
