// package naming derives stored playlist names for synced playlists.
//
// A synced playlist is stored as the platform prefix followed by the external name,
// with any known platform prefix already present on the external name removed first.
package naming

import (
	"strings"
	"unicode/utf8"
)

var platformPrefixes = map[string]string{
	"netease": "网易:",
	"qq":      "QQ:",
	"kuwo":    "酷我:",
}

// knownPrefixes are stripped from external names, ASCII and full-width colon forms alike.
var knownPrefixes = []string{
	"网易:", "QQ:", "酷我:",
	"netease:", "qq:", "kuwo:",
	"网易：", "酷我：", "QQ：",
}

// PrefixFor returns the display prefix for a platform tag.
//
// Unknown platforms get the tag itself followed by a colon.
func PrefixFor(platform string) string {
	if p, ok := platformPrefixes[platform]; ok {
		return p
	}
	return platform + ":"
}

// StripKnownPrefixes removes every leading known prefix from name, case-insensitively.
//
// Whitespace is trimmed after each removal so stacked prefixes like "网易: QQ:Mix" reduce to "Mix".
func StripKnownPrefixes(name string) string {
	out := strings.TrimSpace(name)
	for {
		prefix, ok := matchPrefix(out)
		if !ok {
			return out
		}
		out = strings.TrimSpace(out[len(prefix):])
	}
}

// Normalize returns the stored name of a synced playlist.
func Normalize(platform, name string) string {
	return PrefixFor(platform) + StripKnownPrefixes(name)
}

// matchPrefix returns the actual leading bytes of s that equal a known prefix ignoring case.
func matchPrefix(s string) (string, bool) {
	for _, p := range knownPrefixes {
		n := utf8.RuneCountInString(p)
		head := leadingRunes(s, n)
		if head != "" && strings.EqualFold(head, p) {
			return head, true
		}
	}
	return "", false
}

func leadingRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	if i == n {
		return s
	}
	return ""
}
