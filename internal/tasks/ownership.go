package tasks

import (
	"errors"
	"fmt"

	"github.com/desertthunder/plmirror/internal/models"
	"github.com/desertthunder/plmirror/internal/shared"
)

// OwnershipPolicy decides what happens when a user acts on a playlist they cannot reach.
//
// Resolve receives the result of looking the playlist up. It returns proceed=true only when the
// operation should continue; a nil error with proceed=false makes the operation a no-op.
type OwnershipPolicy interface {
	Resolve(userID int64, playlist *models.Playlist, lookupErr error) (proceed bool, err error)
}

// SilentOwnership ignores operations on missing or foreign playlists.
type SilentOwnership struct{}

func (SilentOwnership) Resolve(userID int64, playlist *models.Playlist, lookupErr error) (bool, error) {
	if lookupErr != nil {
		if errors.Is(lookupErr, shared.ErrNotFound) {
			return false, nil
		}
		return false, lookupErr
	}
	return playlist.OwnedBy(userID), nil
}

// StrictOwnership reports missing playlists as [shared.ErrPlaylistNotFound] and foreign ones as
// [shared.ErrForbidden].
type StrictOwnership struct{}

func (StrictOwnership) Resolve(userID int64, playlist *models.Playlist, lookupErr error) (bool, error) {
	if lookupErr != nil {
		return false, lookupErr
	}
	if !playlist.OwnedBy(userID) {
		return false, fmt.Errorf("%w: %s", shared.ErrForbidden, playlist.ID)
	}
	return true, nil
}

// OwnershipFor returns [StrictOwnership] when strict is set and [SilentOwnership] otherwise.
func OwnershipFor(strict bool) OwnershipPolicy {
	if strict {
		return StrictOwnership{}
	}
	return SilentOwnership{}
}
