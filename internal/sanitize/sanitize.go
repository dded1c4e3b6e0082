// package sanitize removes transient and network-reference fields from track snapshots
// before they are persisted.
package sanitize

import (
	"net/url"
	"strings"

	"github.com/desertthunder/plmirror/internal/models"
)

// Stage identifies which write path a snapshot is about to be stored through.
type Stage int

const (
	StageImport Stage = iota
	StageSync
)

func (s Stage) String() string {
	switch s {
	case StageImport:
		return "import"
	case StageSync:
		return "sync"
	default:
		return "unknown"
	}
}

// Sanitize returns a copy of track without its play url and without a lyrics url.
//
// Inline lyrics text is kept. The input is never mutated.
func Sanitize(track models.Track) models.Track {
	out := track.Clone()
	delete(out, models.TrackKeyURL)
	if lrc, ok := out[models.TrackKeyLyrics].(string); ok && IsNetworkURL(lrc) {
		delete(out, models.TrackKeyLyrics)
	}
	return out
}

// IsNetworkURL reports whether s is an absolute http or https url with a host.
func IsNetworkURL(s string) bool {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Host != ""
}

// Policy selects the write paths whose snapshots are sanitized.
type Policy struct {
	OnImport bool
	OnSync   bool
}

// DefaultPolicy sanitizes on both import and sync.
func DefaultPolicy() Policy {
	return Policy{OnImport: true, OnSync: true}
}

// Enabled reports whether snapshots stored through stage are sanitized.
func (p Policy) Enabled(stage Stage) bool {
	switch stage {
	case StageImport:
		return p.OnImport
	case StageSync:
		return p.OnSync
	default:
		return false
	}
}

// Apply sanitizes track when the policy covers stage, and otherwise returns it unchanged.
func (p Policy) Apply(stage Stage, track models.Track) models.Track {
	if p.Enabled(stage) {
		return Sanitize(track)
	}
	return track
}
