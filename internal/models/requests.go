package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/plmirror/internal/shared"
)

// FlexID is an identifier sent either as a JSON string or an integer.
//
// Platforms such as netease and qq use numeric playlist and account ids.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("identifier must be a string or number: %s", data)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("identifier must be an integer: %s", n)
	}
	*f = FlexID(n.String())
	return nil
}

// decodeExact decodes data into v keeping numbers as [json.Number], so track ids
// nested in a request survive exactly.
func decodeExact(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// ImportPlaylist is one externally fetched playlist inside an [ImportRequest].
type ImportPlaylist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Tracks []Track `json:"tracks"`
}

func (p *ImportPlaylist) UnmarshalJSON(data []byte) error {
	type plain ImportPlaylist
	aux := struct {
		*plain
		ID FlexID `json:"id"`
	}{plain: (*plain)(p)}

	if err := decodeExact(data, &aux); err != nil {
		return err
	}
	p.ID = string(aux.ID)
	return nil
}

// ImportRequest is a batch of playlists fetched from one platform account.
//
// LegacyID accepts the older "id" field for the external user id.
type ImportRequest struct {
	Platform       string           `json:"platform"`
	ExternalUserID string           `json:"externalUserId"`
	LegacyID       string           `json:"id,omitempty"`
	Playlists      []ImportPlaylist `json:"playlists"`
}

func (r *ImportRequest) UnmarshalJSON(data []byte) error {
	type plain ImportRequest
	aux := struct {
		*plain
		ExternalUserID FlexID `json:"externalUserId"`
		LegacyID       FlexID `json:"id"`
	}{plain: (*plain)(r)}

	if err := decodeExact(data, &aux); err != nil {
		return err
	}
	r.ExternalUserID = string(aux.ExternalUserID)
	r.LegacyID = string(aux.LegacyID)
	return nil
}

// AccountID returns the external user id, preferring ExternalUserID over LegacyID.
func (r *ImportRequest) AccountID() string {
	if r.ExternalUserID != "" {
		return r.ExternalUserID
	}
	return r.LegacyID
}

// Validate rejects requests missing the platform, the external user id, or the playlist list.
func (r *ImportRequest) Validate() error {
	if strings.TrimSpace(r.Platform) == "" {
		return fmt.Errorf("%w: platform is required", shared.ErrValidation)
	}
	if strings.TrimSpace(r.AccountID()) == "" {
		return fmt.Errorf("%w: externalUserId is required", shared.ErrValidation)
	}
	if r.Playlists == nil {
		return fmt.Errorf("%w: playlists are required", shared.ErrValidation)
	}
	for i, pl := range r.Playlists {
		if strings.TrimSpace(pl.ID) == "" {
			return fmt.Errorf("%w: playlists[%d].id is required", shared.ErrValidation, i)
		}
	}
	return nil
}

// SyncRequest refreshes one synced playlist from a freshly fetched track list.
type SyncRequest struct {
	Platform   string  `json:"platform"`
	ExternalID string  `json:"externalId"`
	Name       string  `json:"name"`
	Songs      []Track `json:"songs"`
}

func (r *SyncRequest) UnmarshalJSON(data []byte) error {
	type plain SyncRequest
	aux := struct {
		*plain
		ExternalID FlexID `json:"externalId"`
	}{plain: (*plain)(r)}

	if err := decodeExact(data, &aux); err != nil {
		return err
	}
	r.ExternalID = string(aux.ExternalID)
	return nil
}

// Validate rejects requests missing platform, externalId, name, or songs.
//
// An empty song list is valid and clears the synced tracks.
func (r *SyncRequest) Validate() error {
	if strings.TrimSpace(r.Platform) == "" {
		return fmt.Errorf("%w: platform is required", shared.ErrValidation)
	}
	if strings.TrimSpace(r.ExternalID) == "" {
		return fmt.Errorf("%w: externalId is required", shared.ErrValidation)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: name is required", shared.ErrValidation)
	}
	if r.Songs == nil {
		return fmt.Errorf("%w: songs are required", shared.ErrValidation)
	}
	return nil
}
