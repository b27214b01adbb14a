package keys

import (
	"fmt"
	"strings"

	"bakery/internal/service"
	"bakery/pkg/geo"
)

// sanitizeKey lowercases s and replaces everything outside [a-z0-9-_] with
// hyphens.
func sanitizeKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}

// Snapshot returns the object key for a list snapshot:
// snapshots/<view>/<geohash cell or "none">/<term or "all">.json.
func Snapshot(k service.QueryKey) string {
	cell := geo.Cell(k.Coordinates)
	if cell == "" {
		cell = "none"
	}
	term := sanitizeKey(k.Term)
	if term == "" {
		term = "all"
	}
	return fmt.Sprintf("snapshots/%s/%s/%s.json", sanitizeKey(k.View), cell, term)
}

// SnapshotPrefix is the key prefix of every snapshot of view.
func SnapshotPrefix(view string) string {
	if view == "" {
		return "snapshots/"
	}
	return "snapshots/" + sanitizeKey(view) + "/"
}
