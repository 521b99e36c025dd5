package seed

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"pharmacy/m/domain"
)

// AccountStore is the subset of the credential store needed to seed the
// first administrator.
type AccountStore interface {
	Exists(ctx context.Context, username string) (bool, error)
	Create(ctx context.Context, username, password string, role domain.Role) (int64, error)
}

// EnsureAdmin creates an admin account named username unless one with that
// name already exists. An empty password disables seeding.
func EnsureAdmin(ctx context.Context, users AccountStore, username, password string, log zerolog.Logger) error {
	if password == "" {
		log.Warn().Msg("ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}
	exists, err := users.Exists(ctx, username)
	if err != nil {
		return fmt.Errorf("check admin %q: %w", username, err)
	}
	if exists {
		return nil
	}
	id, err := users.Create(ctx, username, password, domain.RoleAdmin)
	if err != nil {
		return fmt.Errorf("create admin %q: %w", username, err)
	}
	log.Info().Int64("user_id", id).Str("username", username).Msg("seeded admin account")
	return nil
}
