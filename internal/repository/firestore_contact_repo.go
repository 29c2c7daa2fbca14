package repository

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/hitoshi/gatehouse/internal/model"
)

// contactsCollection はお問い合わせを保存するコレクション名。
const contactsCollection = "contacts"

// FirestoreContactRepo はFirestoreを使用したお問い合わせリポジトリ。
type FirestoreContactRepo struct {
	client *firestore.Client
}

type firestoreContact struct {
	Name      string    `firestore:"name"`
	Email     string    `firestore:"email"`
	Message   string    `firestore:"message"`
	Timestamp time.Time `firestore:"timestamp"`
}

// NewFirestoreContactRepo はFirestoreContactRepoを生成する。
func NewFirestoreContactRepo(client *firestore.Client) *FirestoreContactRepo {
	return &FirestoreContactRepo{client: client}
}

// Create はメッセージをcontactsコレクションに追加する。
// msg.IDが空の場合はFirestoreが採番したドキュメントIDを設定する。
func (r *FirestoreContactRepo) Create(ctx context.Context, msg *model.ContactMessage) error {
	data := firestoreContact{
		Name:      msg.Name,
		Email:     msg.Email,
		Message:   msg.Message,
		Timestamp: msg.ReceivedAt,
	}

	if msg.ID != "" {
		if _, err := r.client.Collection(contactsCollection).Doc(msg.ID).Create(ctx, data); err != nil {
			return fmt.Errorf("failed to create contact document: %w", err)
		}
		return nil
	}

	ref, _, err := r.client.Collection(contactsCollection).Add(ctx, data)
	if err != nil {
		return fmt.Errorf("failed to add contact document: %w", err)
	}
	msg.ID = ref.ID
	return nil
}

// compile-time interface check
var _ ContactRepository = (*FirestoreContactRepo)(nil)
