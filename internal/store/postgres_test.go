package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to the database named by
// POLARIS_TEST_DATABASE_URL, or skips the test when it is not set.
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	databaseURL := os.Getenv("POLARIS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("POLARIS_TEST_DATABASE_URL not set")
	}
	st, err := NewPostgresStore(databaseURL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPostgresGetMissing(t *testing.T) {
	st := newTestPostgres(t)

	_, err := st.Get(context.Background(), "no-such-uid-"+uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresApplyAndGet(t *testing.T) {
	st := newTestPostgres(t)
	uid := "it-" + uuid.NewString()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, st.Apply(context.Background(), Patch{
		UID:          uid,
		Email:        "it@example.com",
		AddProviders: []string{"google.com"},
		LastLogin:    now,
		CreatedAt:    &now,
	}))

	record, err := st.Get(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "it@example.com", record.Email)
	assert.Equal(t, []string{"google.com"}, record.Providers)
	assert.Equal(t, now, record.CreatedAt.UTC())
}

func TestPostgresMergeSemantics(t *testing.T) {
	st := newTestPostgres(t)
	uid := "it-" + uuid.NewString()
	created := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, st.Apply(context.Background(), Patch{
		UID:          uid,
		Email:        "it@example.com",
		DisplayName:  "Initial",
		AddProviders: []string{"google.com"},
		LastLogin:    created,
		CreatedAt:    &created,
	}))

	// A later login with only a phone number must not erase the email.
	later := created.Add(time.Hour)
	require.NoError(t, st.Apply(context.Background(), Patch{
		UID:          uid,
		PhoneNumber:  "+15550001111",
		AddProviders: []string{"phone", "google.com"},
		LastLogin:    later,
	}))

	record, err := st.Get(context.Background(), uid)
	require.NoError(t, err)
	assert.Equal(t, "it@example.com", record.Email)
	assert.Equal(t, "+15550001111", record.PhoneNumber)
	assert.Equal(t, "Initial", record.DisplayName)
	assert.Equal(t, []string{"google.com", "phone"}, record.Providers)
	assert.Equal(t, created, record.CreatedAt.UTC())
	assert.Equal(t, later, record.LastLogin.UTC())
}
