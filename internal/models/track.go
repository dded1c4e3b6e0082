package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/plmirror/internal/shared"
)

// Well-known keys of a [Track] record.
const (
	TrackKeyID     = "id"
	TrackKeyName   = "name"
	TrackKeyURL    = "url"
	TrackKeyLyrics = "lrc"
)

// Track is an opaque track record fetched from a platform.
//
// Only the play url and lyrics keys are ever inspected or removed; everything else is
// passed through untouched for serialization.
type Track map[string]any

// Clone returns a shallow copy of the track. A nil track clones to an empty one.
func (t Track) Clone() Track {
	out := make(Track, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// PlatformID returns the platform track identifier as a string, or "" when absent.
//
// Numeric ids decoded from JSON are formatted without a fractional part.
func (t Track) PlatformID() string {
	switch v := t[TrackKeyID].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Title returns the track name, or "" when absent.
func (t Track) Title() string {
	if s, ok := t[TrackKeyName].(string); ok {
		return s
	}
	if s, ok := t["title"].(string); ok {
		return s
	}
	return ""
}

// Artist returns the track artist, or "" when absent.
func (t Track) Artist() string {
	if s, ok := t["artist"].(string); ok {
		return s
	}
	return ""
}

// EncodeTrack serializes a track snapshot for persistence.
func EncodeTrack(t Track) ([]byte, error) {
	if t == nil {
		t = Track{}
	}
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSerialization, err)
	}
	return data, nil
}

// DecodeTrack parses a persisted track snapshot. Numbers decode as [json.Number] so
// they are written back exactly as they were received.
func DecodeTrack(data []byte) (Track, error) {
	var t Track
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrSerialization, err)
	}
	if t == nil {
		t = Track{}
	}
	return t, nil
}
