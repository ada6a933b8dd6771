package storage

import (
	"context"
	"fmt"
)

// LocalUserID is the seeded user that owns all data when the server runs
// without tailnet identity.
const LocalUserID = 1

// GetOrCreateUser resolves a tailnet login to a user id, creating the user on
// first sight and refreshing last_seen afterwards.
func (db *DB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	var id int
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO users (login, display_name)
		VALUES ($1, $2)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = NOW(), display_name = COALESCE(NULLIF($2, ''), users.display_name)
		RETURNING id
	`, login, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolving user %q: %w", login, err)
	}
	return id, nil
}
