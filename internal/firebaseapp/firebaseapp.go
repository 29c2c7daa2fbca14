// Package firebaseapp は設定からFirebaseアプリとAuth/Firestoreクライアントを初期化する。
package firebaseapp

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"github.com/hitoshi/gatehouse/internal/config"
)

// serviceAccount はサービスアカウントJSONファイルと同じ形式の認証情報。
type serviceAccount struct {
	Type                    string `json:"type"`
	ProjectID               string `json:"project_id"`
	PrivateKeyID            string `json:"private_key_id"`
	PrivateKey              string `json:"private_key"`
	ClientEmail             string `json:"client_email"`
	ClientID                string `json:"client_id"`
	AuthURI                 string `json:"auth_uri"`
	TokenURI                string `json:"token_uri"`
	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url"`
	ClientX509CertURL       string `json:"client_x509_cert_url"`
	UniverseDomain          string `json:"universe_domain"`
}

// CredentialsJSON は環境変数の認証情報一式をサービスアカウントJSONに組み立てる。
func CredentialsJSON(cfg config.FirebaseConfig) ([]byte, error) {
	data, err := json.Marshal(serviceAccount{
		Type:                    cfg.Type,
		ProjectID:               cfg.ProjectID,
		PrivateKeyID:            cfg.PrivateKeyID,
		PrivateKey:              cfg.PrivateKey,
		ClientEmail:             cfg.ClientEmail,
		ClientID:                cfg.ClientID,
		AuthURI:                 cfg.AuthURI,
		TokenURI:                cfg.TokenURI,
		AuthProviderX509CertURL: cfg.AuthProviderX509CertURL,
		ClientX509CertURL:       cfg.ClientX509CertURL,
		UniverseDomain:          cfg.UniverseDomain,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode service account: %w", err)
	}
	return data, nil
}

// Clients は初期化済みのFirebaseクライアント。
type Clients struct {
	Auth      *auth.Client
	Firestore *firestore.Client
}

// New はFirebaseアプリを初期化し、AuthとFirestoreのクライアントを返す。
// Firestoreクライアントは呼び出し側でCloseすること。
func New(ctx context.Context, cfg config.FirebaseConfig) (*Clients, error) {
	creds, err := CredentialsJSON(cfg)
	if err != nil {
		return nil, err
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:   cfg.ProjectID,
		DatabaseURL: cfg.DatabaseURL,
	}, option.WithCredentialsJSON(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase auth: %w", err)
	}

	fsClient, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firestore: %w", err)
	}

	return &Clients{Auth: authClient, Firestore: fsClient}, nil
}

// Close はFirestoreクライアントを閉じる。
func (c *Clients) Close() error {
	if c.Firestore == nil {
		return nil
	}
	return c.Firestore.Close()
}
