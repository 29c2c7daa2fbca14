// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// minSessionSecretLength はセッション署名鍵の最小バイト数。
const minSessionSecretLength = 32

// StoreBackend は永続化先の種類を表す。
type StoreBackend string

const (
	// BackendPostgres はPostgreSQLを使用する。
	BackendPostgres StoreBackend = "postgres"
	// BackendRedis はRedisを使用する（セッションストアのみ）。
	BackendRedis StoreBackend = "redis"
	// BackendFirestore はFirestoreを使用する（プロフィールストアのみ）。
	BackendFirestore StoreBackend = "firestore"
)

// UnmarshalText はencoding.TextUnmarshalerを実装する。
func (b *StoreBackend) UnmarshalText(text []byte) error {
	v := StoreBackend(strings.ToLower(strings.TrimSpace(string(text))))
	switch v {
	case BackendPostgres, BackendRedis, BackendFirestore:
		*b = v
		return nil
	default:
		return fmt.Errorf("invalid store backend: %q (valid options: postgres, redis, firestore)", string(text))
	}
}

// FirebaseConfig はFirebaseサービスアカウントの認証情報一式とAPI設定。
// 認証情報は全項目必須で、1つでも欠けていれば起動に失敗する。
type FirebaseConfig struct {
	Type                    string `env:"TYPE,notEmpty"`
	ProjectID               string `env:"PROJECT_ID,notEmpty"`
	PrivateKeyID            string `env:"PRIVATE_KEY_ID,notEmpty"`
	PrivateKey              string `env:"PRIVATE_KEY,notEmpty"`
	ClientEmail             string `env:"CLIENT_EMAIL,notEmpty"`
	ClientID                string `env:"CLIENT_ID,notEmpty"`
	AuthURI                 string `env:"AUTH_URI,notEmpty"`
	TokenURI                string `env:"TOKEN_URI,notEmpty"`
	AuthProviderX509CertURL string `env:"AUTH_PROVIDER_X509_CERT_URL,notEmpty"`
	ClientX509CertURL       string `env:"CLIENT_X509_CERT_URL,notEmpty"`
	UniverseDomain          string `env:"UNIVERSE_DOMAIN,notEmpty"`

	// APIKey はパスワード検証（Identity Toolkit REST API）に使用する。
	APIKey string `env:"API_KEY,notEmpty"`
	// DatabaseURL は未設定の場合プロジェクトIDから導出する。
	DatabaseURL string `env:"DATABASE_URL"`
}

// RedisConfig はRedisセッションストアの接続設定。
type RedisConfig struct {
	Addr      string `env:"ADDR"       envDefault:"localhost:6379"`
	Password  string `env:"PASSWORD"`
	DB        int    `env:"DB"         envDefault:"0"`
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"gatehouse:"`
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	Firebase FirebaseConfig `envPrefix:"FIREBASE_"`
	Redis    RedisConfig    `envPrefix:"REDIS_"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Session
	SessionSecret          string        `env:"SESSION_SECRET,notEmpty"`
	SessionMaxAge          int           `env:"SESSION_MAX_AGE"          envDefault:"86400"`
	SessionStore           StoreBackend  `env:"SESSION_STORE"            envDefault:"postgres"`
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`

	// Profile / Contact
	ProfileStore StoreBackend `env:"PROFILE_STORE" envDefault:"firestore"`
	LoginDomain  string       `env:"LOGIN_DOMAIN"  envDefault:"users.gatehouse.local"`

	// Rate Limit（req/min/IP）
	RateLimitAuth int `env:"RATE_LIMIT_AUTH" envDefault:"20"`

	// Server
	Port      string `env:"PORT"       envDefault:"3000"`
	BaseURL   string `env:"BASE_URL"   envDefault:"http://localhost:3000"`
	StaticDir string `env:"STATIC_DIR" envDefault:"public"`

	// Cookie
	CookieSecure bool
	CookieDomain string `env:"COOKIE_DOMAIN"`

	// CORS
	CORSAllowedOrigin string `env:"CORS_ALLOWED_ORIGIN" envDefault:"http://localhost:3000"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load は.envファイル（存在する場合）と環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はまとめてエラーを返す。
func Load() (*Config, error) {
	// 開発環境向けに.envを読み込む。ファイルが無い場合は無視する。
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.derive()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// derive は他の項目から導出される値を設定する。
func (c *Config) derive() {
	// 環境変数では改行を "\n" として渡すことが多いため展開する
	c.Firebase.PrivateKey = strings.ReplaceAll(c.Firebase.PrivateKey, `\n`, "\n")

	if c.Firebase.DatabaseURL == "" {
		c.Firebase.DatabaseURL = fmt.Sprintf("https://%s.firebaseio.com", c.Firebase.ProjectID)
	}

	c.CookieSecure = strings.HasPrefix(c.BaseURL, "https://")
}

// validate はバックエンドの組み合わせと値の範囲を検証する。
func (c *Config) validate() error {
	var problems []string

	if len(c.SessionSecret) < minSessionSecretLength {
		problems = append(problems, fmt.Sprintf("SESSION_SECRET must be at least %d bytes", minSessionSecretLength))
	}

	switch c.SessionStore {
	case BackendPostgres, BackendRedis:
	default:
		problems = append(problems, fmt.Sprintf("SESSION_STORE %q is not supported (postgres, redis)", c.SessionStore))
	}

	switch c.ProfileStore {
	case BackendFirestore, BackendPostgres:
	default:
		problems = append(problems, fmt.Sprintf("PROFILE_STORE %q is not supported (firestore, postgres)", c.ProfileStore))
	}

	if c.UsesPostgres() && c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required when a postgres store is selected")
	}

	if c.SessionMaxAge <= 0 {
		problems = append(problems, "SESSION_MAX_AGE must be positive")
	}

	if c.RateLimitAuth <= 0 {
		problems = append(problems, "RATE_LIMIT_AUTH must be positive")
	}

	if c.SessionCleanupInterval <= 0 {
		problems = append(problems, "SESSION_CLEANUP_INTERVAL must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// UsesPostgres はいずれかのストアがPostgreSQLを使用するかを返す。
func (c *Config) UsesPostgres() bool {
	return c.SessionStore == BackendPostgres || c.ProfileStore == BackendPostgres
}

// SessionTTL はセッションの有効期間を返す。
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}
