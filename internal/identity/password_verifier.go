package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	defaultIdentityToolkitBaseURL = "https://identitytoolkit.googleapis.com"
	signInWithPasswordPath        = "/v1/accounts:signInWithPassword"

	// emulatorHostEnv が設定されている場合はAuth Emulatorに接続する（Admin SDKと同じ変数）。
	emulatorHostEnv = "FIREBASE_AUTH_EMULATOR_HOST"

	verifyTimeout = 10 * time.Second
)

// 認証情報の誤りとして扱うIdentity Toolkitのエラーコード。
var invalidCredentialCodes = map[string]bool{
	"INVALID_PASSWORD":          true,
	"EMAIL_NOT_FOUND":           true,
	"INVALID_LOGIN_CREDENTIALS": true,
	"USER_DISABLED":             true,
	"INVALID_EMAIL":             true,
}

// PasswordVerifierConfig はパスワード検証の設定。
type PasswordVerifierConfig struct {
	APIKey string

	// テスト用にオーバーライド可能なURL（未指定時はエミュレータ設定または本番URL）
	BaseURL    string
	HTTPClient *http.Client
}

// PasswordVerifier はIdentity ToolkitのsignInWithPasswordでパスワードを検証する。
// Admin SDKにはパスワード検証APIが無いためREST APIを直接呼び出す。
type PasswordVerifier struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewPasswordVerifier はPasswordVerifierを生成する。
func NewPasswordVerifier(cfg PasswordVerifierConfig) *PasswordVerifier {
	base := cfg.BaseURL
	if base == "" {
		base = defaultBaseURL()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: verifyTimeout}
	}
	return &PasswordVerifier{
		apiKey:   cfg.APIKey,
		endpoint: strings.TrimRight(base, "/") + signInWithPasswordPath,
		client:   client,
	}
}

func defaultBaseURL() string {
	if host := os.Getenv(emulatorHostEnv); host != "" {
		return "http://" + host + "/identitytoolkit.googleapis.com"
	}
	return defaultIdentityToolkitBaseURL
}

type signInRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type signInResponse struct {
	LocalID string `json:"localId"`
}

type signInErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Verify は識別子とパスワードの組を検証し、アカウントIDを返す。
// 認証情報の誤りはErrInvalidCredentialを返し、それ以外の障害は通常のエラーを返す。
func (v *PasswordVerifier) Verify(ctx context.Context, identifier, password string) (string, error) {
	payload, err := json.Marshal(signInRequest{
		Email:             identifier,
		Password:          password,
		ReturnSecureToken: true,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode sign-in request: %w", err)
	}

	reqURL := v.endpoint + "?key=" + url.QueryEscape(v.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("sign-in request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read sign-in response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp signInErrorResponse
		if jsonErr := json.Unmarshal(body, &errResp); jsonErr == nil {
			code := errorCode(errResp.Error.Message)
			if invalidCredentialCodes[code] {
				return "", ErrInvalidCredential
			}
			return "", fmt.Errorf("sign-in failed with status %d: %s", resp.StatusCode, code)
		}
		return "", fmt.Errorf("sign-in failed with status %d", resp.StatusCode)
	}

	var signIn signInResponse
	if err := json.Unmarshal(body, &signIn); err != nil {
		return "", fmt.Errorf("failed to parse sign-in response: %w", err)
	}
	if signIn.LocalID == "" {
		return "", fmt.Errorf("empty localId in sign-in response")
	}

	return signIn.LocalID, nil
}

// errorCode は "INVALID_PASSWORD : detail" 形式のメッセージからコード部分を取り出す。
func errorCode(message string) string {
	code, _, _ := strings.Cut(message, " ")
	return strings.TrimSpace(code)
}
