package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/models"
)

const usersCollection = "users"

// FirestoreStore keeps user records in a Firestore collection, one
// document per uid. This mirrors the original hosted deployment.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store from the shared
// Firebase app.
func NewFirestoreStore(ctx context.Context, app *firebase.App) (*FirestoreStore, error) {
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

func (s *FirestoreStore) Get(ctx context.Context, uid string) (*models.UserRecord, error) {
	doc, err := s.client.Collection(usersCollection).Doc(uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user record %s: %w", uid, err)
	}

	var record models.UserRecord
	if err := doc.DataTo(&record); err != nil {
		return nil, fmt.Errorf("failed to decode user record %s: %w", uid, err)
	}
	return &record, nil
}

// Apply performs a single merge-write. Providers use ArrayUnion, the
// store's native atomic set-union, so concurrent logins cannot drop a
// provider added by a racing request.
func (s *FirestoreStore) Apply(ctx context.Context, patch Patch) error {
	data := map[string]interface{}{
		"uid":       patch.UID,
		"lastLogin": patch.LastLogin,
	}
	if patch.Email != "" {
		data["email"] = patch.Email
	}
	if patch.PhoneNumber != "" {
		data["phoneNumber"] = patch.PhoneNumber
	}
	if patch.DisplayName != "" {
		data["displayName"] = patch.DisplayName
	}
	if patch.PhotoURL != "" {
		data["photoURL"] = patch.PhotoURL
	}
	if patch.CreatedAt != nil {
		data["createdAt"] = *patch.CreatedAt
	}

	if len(patch.AddProviders) > 0 {
		elems := make([]interface{}, len(patch.AddProviders))
		for i, p := range patch.AddProviders {
			elems[i] = p
		}
		data["providers"] = firestore.ArrayUnion(elems...)
	} else if patch.CreatedAt != nil {
		// First write materializes the field even when the assertion
		// carried no identities.
		data["providers"] = []string{}
	}

	_, err := s.client.Collection(usersCollection).Doc(patch.UID).Set(ctx, data, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("failed to upsert user record %s: %w", patch.UID, err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
