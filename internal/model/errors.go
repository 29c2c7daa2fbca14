package model

import (
	"errors"
	"fmt"
)

// APIError はクライアントに返すエラーの種別を表す。
// Causeは原因エラーでありログにのみ記録し、レスポンスには含めない。
type APIError struct {
	Code    string // エラーコード
	Message string // クライアント向けメッセージ
	Cause   error
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Cause
}

// 定義済みエラーコード
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeDuplicateAccount   = "DUPLICATE_ACCOUNT"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeAccountState       = "ACCOUNT_STATE"
	ErrCodeRegistrationFailed = "REGISTRATION_FAILED"
	ErrCodeSubmissionFailed   = "SUBMISSION_FAILED"
	ErrCodeLogoutFailed       = "LOGOUT_FAILED"
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeRateLimited        = "RATE_LIMITED"
)

// HasCode はerrのチェーンに指定コードのAPIErrorが含まれるかを返す。
func HasCode(err error, code string) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == code
	}
	return false
}

// NewValidationError は必須項目不足などクライアント起因の入力エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// NewDuplicateAccountError はユーザー名重複エラーを生成する。
func NewDuplicateAccountError(cause error) *APIError {
	return &APIError{
		Code:    ErrCodeDuplicateAccount,
		Message: "Username already exists",
		Cause:   cause,
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// どの段階で失敗したかはメッセージに含めない。
func NewInvalidCredentialsError(cause error) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidCredentials,
		Message: "Invalid credentials",
		Cause:   cause,
	}
}

// NewUnauthenticatedError は未ログイン状態での操作エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthenticated,
		Message: "Not logged in",
	}
}

// NewAccountStateError はIdentity Providerにアカウントが存在するのに
// プロフィールが存在しない不整合を表すエラーを生成する。
func NewAccountStateError(accountID string) *APIError {
	return &APIError{
		Code:    ErrCodeAccountState,
		Message: "User data not found",
		Cause:   fmt.Errorf("profile missing for account %s", accountID),
	}
}

// NewRegistrationFailedError は登録失敗エラーを生成する。
func NewRegistrationFailedError(cause error) *APIError {
	return &APIError{
		Code:    ErrCodeRegistrationFailed,
		Message: "Registration failed",
		Cause:   cause,
	}
}

// NewSubmissionFailedError はお問い合わせ保存失敗エラーを生成する。
func NewSubmissionFailedError(cause error) *APIError {
	return &APIError{
		Code:    ErrCodeSubmissionFailed,
		Message: "Failed to submit message",
		Cause:   cause,
	}
}

// NewLogoutError はセッション破棄失敗エラーを生成する。
func NewLogoutError(cause error) *APIError {
	return &APIError{
		Code:    ErrCodeLogoutFailed,
		Message: "Logout failed",
		Cause:   cause,
	}
}

// NewInternalError は内部エラーを生成する。
func NewInternalError(cause error) *APIError {
	return &APIError{
		Code:    ErrCodeInternal,
		Message: "Internal server error",
		Cause:   cause,
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:    ErrCodeRateLimited,
		Message: "Too many requests",
	}
}
