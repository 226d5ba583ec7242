package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lib/pq"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore keeps user records in a users table. It is the driver for
// self-hosted deployments that do not run against Firestore.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database and applies embedded migrations.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := runMigrations(databaseURL); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func runMigrations(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

const getUserQuery = `
	SELECT uid, email, phone_number, display_name, photo_url, providers, created_at, last_login
	FROM users
	WHERE uid = $1
`

func (s *PostgresStore) Get(ctx context.Context, uid string) (*models.UserRecord, error) {
	var record models.UserRecord
	var email, phoneNumber, displayName, photoURL sql.NullString

	err := s.db.QueryRowContext(ctx, getUserQuery, uid).Scan(
		&record.UID,
		&email,
		&phoneNumber,
		&displayName,
		&photoURL,
		pq.Array(&record.Providers),
		&record.CreatedAt,
		&record.LastLogin,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user record %s: %w", uid, err)
	}

	record.Email = email.String
	record.PhoneNumber = phoneNumber.String
	record.DisplayName = displayName.String
	record.PhotoURL = photoURL.String
	if record.Providers == nil {
		record.Providers = []string{}
	}
	return &record, nil
}

// The upsert keeps field semantics in SQL: empty patch fields fall back to
// the stored value, providers are unioned in place, and created_at is
// written only by the inserting statement.
const applyPatchQuery = `
	INSERT INTO users (uid, email, phone_number, display_name, photo_url, providers, created_at, last_login)
	VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
	ON CONFLICT (uid) DO UPDATE SET
		email        = COALESCE(EXCLUDED.email, users.email),
		phone_number = COALESCE(EXCLUDED.phone_number, users.phone_number),
		display_name = COALESCE(EXCLUDED.display_name, users.display_name),
		photo_url    = COALESCE(EXCLUDED.photo_url, users.photo_url),
		providers    = ARRAY(SELECT DISTINCT p FROM unnest(users.providers || EXCLUDED.providers) AS p ORDER BY p),
		last_login   = EXCLUDED.last_login
`

func (s *PostgresStore) Apply(ctx context.Context, patch Patch) error {
	providers := patch.AddProviders
	if providers == nil {
		providers = []string{}
	}

	// created_at is only consulted on the insert path; on conflict the
	// stored value wins.
	createdAt := patch.LastLogin
	if patch.CreatedAt != nil {
		createdAt = *patch.CreatedAt
	}

	_, err := s.db.ExecContext(ctx, applyPatchQuery,
		patch.UID,
		patch.Email,
		patch.PhoneNumber,
		patch.DisplayName,
		patch.PhotoURL,
		pq.Array(providers),
		createdAt,
		patch.LastLogin,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user record %s: %w", patch.UID, err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
