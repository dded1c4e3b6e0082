package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/shared"
)

// ConnectedAccountRepository persists the external account a user syncs each platform with.
type ConnectedAccountRepository struct {
	q queryer
}

// NewConnectedAccountRepository creates a new ConnectedAccountRepository on a database or transaction
func NewConnectedAccountRepository(q queryer) *ConnectedAccountRepository {
	return &ConnectedAccountRepository{q: q}
}

// UpsertConnectedAccount records externalUserID as the user's account on platform.
//
// An existing (user, platform) row has its external id and last synced time updated; otherwise a
// new row is inserted.
func (r *ConnectedAccountRepository) UpsertConnectedAccount(ctx context.Context, userID int64, platform, externalUserID string, at time.Time) (*models.ConnectedAccount, error) {
	account, err := r.GetConnectedAccount(ctx, userID, platform)
	switch {
	case err == nil:
		query := `UPDATE connected_accounts SET external_user_id = ?, last_synced_at = ? WHERE id = ?`
		if _, err := r.q.ExecContext(ctx, query, externalUserID, at, account.ID); err != nil {
			return nil, storageErr("update connected account", err)
		}
		account.ExternalUserID = externalUserID
		account.LastSyncedAt = at
		return account, nil
	case errors.Is(err, shared.ErrNotFound):
		account = &models.ConnectedAccount{
			ID:             shared.GenerateID(),
			UserID:         userID,
			Platform:       platform,
			ExternalUserID: externalUserID,
			LastSyncedAt:   at,
		}
		query := `
			INSERT INTO connected_accounts (id, user_id, platform, external_user_id, last_synced_at)
			VALUES (?, ?, ?, ?, ?)
		`
		if _, err := r.q.ExecContext(ctx, query, account.ID, userID, platform, externalUserID, at); err != nil {
			return nil, storageErr("insert connected account", err)
		}
		return account, nil
	default:
		return nil, err
	}
}

// GetConnectedAccount retrieves the user's account on platform
func (r *ConnectedAccountRepository) GetConnectedAccount(ctx context.Context, userID int64, platform string) (*models.ConnectedAccount, error) {
	query := `
		SELECT id, user_id, platform, external_user_id, last_synced_at
		FROM connected_accounts
		WHERE user_id = ? AND platform = ?
	`

	var a models.ConnectedAccount
	err := r.q.QueryRowContext(ctx, query, userID, platform).Scan(&a.ID, &a.UserID, &a.Platform, &a.ExternalUserID, &a.LastSyncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrAccountNotFound
	}
	if err != nil {
		return nil, storageErr("scan connected account", err)
	}
	return &a, nil
}
