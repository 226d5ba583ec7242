package user

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/models"
	"github.com/Vivekk0712/Polaris-MCP/internal/store"
)

// fakeStore records applied patches and serves a single canned record
type fakeStore struct {
	record  *models.UserRecord
	getErr  error
	applied []store.Patch
}

func (f *fakeStore) Get(_ context.Context, uid string) (*models.UserRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.record == nil || f.record.UID != uid {
		return nil, store.ErrNotFound
	}
	return f.record, nil
}

func (f *fakeStore) Apply(_ context.Context, patch store.Patch) error {
	f.applied = append(f.applied, patch)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func newTestService(st store.Store, now time.Time) *Service {
	svc := NewService(st)
	svc.now = func() time.Time { return now }
	return svc
}

func TestUpsertCreatesRecordOnFirstLogin(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fs := &fakeStore{}
	svc := newTestService(fs, now)

	record, err := svc.Upsert(context.Background(), &models.Assertion{
		UID:       "u1",
		Email:     "u1@example.com",
		Name:      "User One",
		Providers: []string{"google.com"},
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", record.UID)
	assert.Equal(t, "u1@example.com", record.Email)
	assert.Equal(t, "User One", record.DisplayName)
	assert.Equal(t, now, record.CreatedAt)
	assert.Equal(t, now, record.LastLogin)
	assert.Equal(t, []string{"google.com"}, record.Providers)

	require.Len(t, fs.applied, 1)
	patch := fs.applied[0]
	require.NotNil(t, patch.CreatedAt)
	assert.Equal(t, now, *patch.CreatedAt)
}

func TestUpsertMergesWithoutErasingFields(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fs := &fakeStore{record: &models.UserRecord{
		UID:         "u1",
		Email:       "u1@example.com",
		DisplayName: "User One",
		PhotoURL:    "https://example.com/u1.png",
		Providers:   []string{"google.com"},
		CreatedAt:   created,
		LastLogin:   created,
	}}
	svc := newTestService(fs, now)

	// A phone login carries no email, name or picture.
	record, err := svc.Upsert(context.Background(), &models.Assertion{
		UID:         "u1",
		PhoneNumber: "+15550001111",
		Providers:   []string{"phone"},
	})
	require.NoError(t, err)

	want := &models.UserRecord{
		UID:         "u1",
		Email:       "u1@example.com",
		PhoneNumber: "+15550001111",
		DisplayName: "User One",
		PhotoURL:    "https://example.com/u1.png",
		Providers:   []string{"google.com", "phone"},
		CreatedAt:   created,
		LastLogin:   now,
	}
	if diff := cmp.Diff(want, record); diff != "" {
		t.Errorf("merged record mismatch (-want +got):\n%s", diff)
	}

	// createdAt must not be rewritten on subsequent logins.
	require.Len(t, fs.applied, 1)
	assert.Nil(t, fs.applied[0].CreatedAt)
}

func TestUpsertProvidersOnlyGrow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fs := &fakeStore{record: &models.UserRecord{
		UID:       "u1",
		Providers: []string{"google.com", "phone"},
		CreatedAt: now.Add(-time.Hour),
	}}
	svc := newTestService(fs, now)

	record, err := svc.Upsert(context.Background(), &models.Assertion{
		UID:       "u1",
		Providers: []string{"google.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"google.com", "phone"}, record.Providers)
}

func TestUpsertEmptyIdentitiesYieldsEmptyProviders(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fs := &fakeStore{}
	svc := newTestService(fs, now)

	record, err := svc.Upsert(context.Background(), &models.Assertion{UID: "u1"})
	require.NoError(t, err)
	require.NotNil(t, record.Providers)
	assert.Empty(t, record.Providers)
}

func TestUpsertSingleWritePerCall(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	fs := &fakeStore{}
	svc := newTestService(fs, now)

	_, err := svc.Upsert(context.Background(), &models.Assertion{UID: "u1"})
	require.NoError(t, err)
	_, err = svc.Upsert(context.Background(), &models.Assertion{UID: "u1"})
	require.NoError(t, err)

	assert.Len(t, fs.applied, 2)
}

func TestUpsertRejectsMissingUID(t *testing.T) {
	svc := newTestService(&fakeStore{}, time.Now())

	_, err := svc.Upsert(context.Background(), &models.Assertion{})
	assert.Error(t, err)
	_, err = svc.Upsert(context.Background(), nil)
	assert.Error(t, err)
}
