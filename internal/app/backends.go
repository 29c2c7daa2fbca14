package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/gatehouse/internal/config"
	"github.com/hitoshi/gatehouse/internal/database"
	"github.com/hitoshi/gatehouse/internal/firebaseapp"
	"github.com/hitoshi/gatehouse/internal/identity"
	"github.com/hitoshi/gatehouse/internal/repository"
)

const redisPingTimeout = 5 * time.Second

// backends は設定に応じて選択された外部依存とストアをまとめたもの。
type backends struct {
	db       *sql.DB
	redis    *redis.Client
	firebase *firebaseapp.Clients

	identity *identity.FirebaseProvider
	sessions repository.SessionRepository
	profiles repository.ProfileRepository
	contacts repository.ContactRepository
	probe    *repository.FirestoreProbe
}

// openBackends は設定されたバックエンドに接続し、各ストアを構築する。
// 途中で失敗した場合はそれまでに開いた接続を閉じる。
func openBackends(ctx context.Context, cfg *config.Config) (_ *backends, err error) {
	b := &backends{}
	defer func() {
		if err != nil {
			b.Close()
		}
	}()

	// 1. DB接続（いずれかのストアがPostgreSQLの場合のみ）
	if cfg.UsesPostgres() {
		b.db, err = database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		slog.Info("database connection established")
	}

	// 2. Redis接続
	if cfg.SessionStore == config.BackendRedis {
		b.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		err = b.redis.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slog.Info("redis connection established", slog.String("addr", cfg.Redis.Addr))
	}

	// 3. Firebase
	b.firebase, err = firebaseapp.New(ctx, cfg.Firebase)
	if err != nil {
		return nil, err
	}
	slog.Info("firebase initialized", slog.String("project_id", cfg.Firebase.ProjectID))

	verifier := identity.NewPasswordVerifier(identity.PasswordVerifierConfig{
		APIKey: cfg.Firebase.APIKey,
	})
	b.identity = identity.NewFirebaseProvider(b.firebase.Auth, verifier)
	b.probe = repository.NewFirestoreProbe(b.firebase.Firestore)

	// 4. ストアの選択
	switch cfg.SessionStore {
	case config.BackendRedis:
		b.sessions = repository.NewRedisSessionRepo(b.redis, cfg.Redis.KeyPrefix, cfg.SessionTTL())
	default:
		b.sessions = repository.NewPostgresSessionRepo(b.db, cfg.SessionTTL())
	}

	switch cfg.ProfileStore {
	case config.BackendPostgres:
		b.profiles = repository.NewPostgresProfileRepo(b.db)
		b.contacts = repository.NewPostgresContactRepo(b.db)
	default:
		b.profiles = repository.NewFirestoreProfileRepo(b.firebase.Firestore)
		b.contacts = repository.NewFirestoreContactRepo(b.firebase.Firestore)
	}

	slog.Info("stores selected",
		slog.String("session_store", string(cfg.SessionStore)),
		slog.String("profile_store", string(cfg.ProfileStore)),
	)

	return b, nil
}

// Close は開いている接続をすべて閉じる。
func (b *backends) Close() error {
	var errs []error
	if b.firebase != nil {
		errs = append(errs, b.firebase.Close())
	}
	if b.redis != nil {
		errs = append(errs, b.redis.Close())
	}
	if b.db != nil {
		errs = append(errs, b.db.Close())
	}
	return errors.Join(errs...)
}
