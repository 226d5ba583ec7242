// Package store persists user records. A record is keyed by uid, written
// only through merge patches, and never deleted.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"go.uber.org/fx"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/models"
	"github.com/Vivekk0712/Polaris-MCP/internal/config"
)

// ErrNotFound is returned by Get when no record exists for the uid
var ErrNotFound = errors.New("user record not found")

// Patch is a merge-write against a user record. Empty string fields are
// left untouched by the store, so a login that carries no email never
// erases a previously stored one. AddProviders is applied as a set union.
type Patch struct {
	UID          string
	Email        string
	PhoneNumber  string
	DisplayName  string
	PhotoURL     string
	AddProviders []string
	LastLogin    time.Time
	// CreatedAt is only set on the first-ever write for a uid
	CreatedAt *time.Time
}

// Store is the user record store consumed by the session reconciler
type Store interface {
	Get(ctx context.Context, uid string) (*models.UserRecord, error)
	Apply(ctx context.Context, patch Patch) error
	Close() error
}

// New selects the store driver from configuration
func New(cfg *config.Config, app *firebase.App) (Store, error) {
	switch cfg.Store.Driver {
	case config.StoreDriverFirestore, "":
		return NewFirestoreStore(context.Background(), app)
	case config.StoreDriverPostgres:
		return NewPostgresStore(cfg.Store.DatabaseURL)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// Module provides the store dependencies
var Module = fx.Module("store",
	fx.Provide(
		New,
	),
)
