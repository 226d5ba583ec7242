// Package user reconciles user records with verified identity assertions.
package user

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Vivekk0712/Polaris-MCP/internal/auth/models"
	"github.com/Vivekk0712/Polaris-MCP/internal/logger"
	"github.com/Vivekk0712/Polaris-MCP/internal/store"
)

// Service performs the create-or-merge upsert that runs on every login.
type Service struct {
	store store.Store
	now   func() time.Time
}

// NewService creates the reconciler service
func NewService(st store.Store) *Service {
	return &Service{
		store: st,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Upsert merges a verified assertion into the user record for its uid and
// returns the resulting record. Fields absent from the assertion are left
// untouched, providers only ever grow, createdAt is written exactly once,
// and lastLogin is refreshed on every call. Exactly one store write is
// issued per call.
func (s *Service) Upsert(ctx context.Context, assertion *models.Assertion) (*models.UserRecord, error) {
	if assertion == nil || assertion.UID == "" {
		return nil, errors.New("assertion with uid is required")
	}

	existing, err := s.store.Get(ctx, assertion.UID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to read user record: %w", err)
	}

	now := s.now()
	patch := store.Patch{
		UID:          assertion.UID,
		Email:        assertion.Email,
		PhoneNumber:  assertion.PhoneNumber,
		DisplayName:  assertion.Name,
		PhotoURL:     assertion.Picture,
		AddProviders: assertion.Providers,
		LastLogin:    now,
	}

	record := &models.UserRecord{UID: assertion.UID, LastLogin: now}
	if existing == nil {
		patch.CreatedAt = &now
		record.CreatedAt = now
		record.Providers = unionProviders(nil, assertion.Providers)
	} else {
		record.CreatedAt = existing.CreatedAt
		record.Email = existing.Email
		record.PhoneNumber = existing.PhoneNumber
		record.DisplayName = existing.DisplayName
		record.PhotoURL = existing.PhotoURL
		record.Providers = unionProviders(existing.Providers, assertion.Providers)
	}

	if assertion.Email != "" {
		record.Email = assertion.Email
	}
	if assertion.PhoneNumber != "" {
		record.PhoneNumber = assertion.PhoneNumber
	}
	if assertion.Name != "" {
		record.DisplayName = assertion.Name
	}
	if assertion.Picture != "" {
		record.PhotoURL = assertion.Picture
	}

	if err := s.store.Apply(ctx, patch); err != nil {
		return nil, fmt.Errorf("failed to upsert user record: %w", err)
	}

	logger.Debug("user record reconciled",
		zap.String("uid", record.UID),
		zap.Strings("providers", record.Providers),
		zap.Bool("created", existing == nil),
	)

	return record, nil
}

// unionProviders returns the sorted set union of both slices. It always
// returns a non-nil slice so a first login with no identities still
// materializes providers as an empty list.
func unionProviders(existing, added []string) []string {
	seen := make(map[string]struct{}, len(existing)+len(added))
	union := make([]string, 0, len(existing)+len(added))
	for _, lists := range [][]string{existing, added} {
		for _, p := range lists {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			union = append(union, p)
		}
	}
	sort.Strings(union)
	return union
}

// Module provides the reconciler dependencies
var Module = fx.Module("user",
	fx.Provide(
		NewService,
	),
)
