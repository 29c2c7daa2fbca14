package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
)

// probeCollection は疎通確認用ドキュメントを書き込むコレクション名。
const probeCollection = "test"

// ProbeDocument は疎通確認で書き込んで読み戻したドキュメント。
type ProbeDocument struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// FirestoreProbe はFirestoreへの書き込み・読み込みを確認する。
type FirestoreProbe struct {
	client *firestore.Client
	now    func() time.Time
}

// NewFirestoreProbe はFirestoreProbeを生成する。
func NewFirestoreProbe(client *firestore.Client) *FirestoreProbe {
	return &FirestoreProbe{client: client, now: time.Now}
}

// WriteTestDocument はtestコレクションにドキュメントを追加し、読み戻した内容を返す。
func (p *FirestoreProbe) WriteTestDocument(ctx context.Context) (*ProbeDocument, error) {
	ref, _, err := p.client.Collection(probeCollection).Add(ctx, map[string]any{
		"message":   "Hello from Firebase!",
		"timestamp": p.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write test document: %w", err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read test document: %w", err)
	}

	var data struct {
		Message   string    `firestore:"message"`
		Timestamp time.Time `firestore:"timestamp"`
	}
	if err := snap.DataTo(&data); err != nil {
		return nil, fmt.Errorf("failed to decode test document: %w", err)
	}

	return &ProbeDocument{
		ID:        ref.ID,
		Message:   data.Message,
		Timestamp: data.Timestamp,
	}, nil
}
