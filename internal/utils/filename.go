// Package utils holds small helpers shared by the HTTP, CLI and backup
// layers.
package utils

import (
	"regexp"
	"strings"
	"time"
	"unicode"
)

const (
	snapshotPrefix = "shelfport-"
	stampLayout    = "20060102-150405"
	maxOwnerLen    = 64

	// fallbackOwner names snapshots of owners whose name has no usable
	// characters.
	fallbackOwner = "Untitled"
)

var snapshotName = regexp.MustCompile(`^shelfport-(.+)-(\d{8}-\d{6})(\.[a-z0-9]+)?$`)

// OwnerSlug reduces a username to characters that are safe both on disk and
// inside a quoted Content-Disposition value. Letters, digits, '.', '-' and
// '_' are kept; every other run of characters becomes a single '_'.
func OwnerSlug(owner string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(owner) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '.' || r == '_' {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
			continue
		}
		pendingSep = true
	}

	slug := strings.Trim(b.String(), "._")
	if len(slug) > maxOwnerLen {
		slug = strings.TrimRight(truncateRunes(slug, maxOwnerLen), "._-")
	}
	if slug == "" {
		return fallbackOwner
	}
	return slug
}

// truncateRunes cuts s to at most n bytes without splitting a rune.
func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utfStart(s[n]) {
		n--
	}
	return s[:n]
}

func utfStart(b byte) bool {
	return b&0xC0 != 0x80
}

// SnapshotFilename names an exported snapshot:
// "shelfport-<owner>-<yyyymmdd-hhmmss><ext>", timestamp in UTC.
func SnapshotFilename(owner string, ext string, at time.Time) string {
	return snapshotPrefix + OwnerSlug(owner) + "-" + at.UTC().Format(stampLayout) + ext
}

// SnapshotName is a parsed SnapshotFilename.
type SnapshotName struct {
	Owner     string
	Timestamp time.Time
	Extension string
}

// ParseSnapshotFilename reverses SnapshotFilename. The owner is the slug,
// not the original username.
func ParseSnapshotFilename(name string) (SnapshotName, bool) {
	m := snapshotName.FindStringSubmatch(name)
	if m == nil {
		return SnapshotName{}, false
	}
	at, err := time.Parse(stampLayout, m[2])
	if err != nil {
		return SnapshotName{}, false
	}
	return SnapshotName{Owner: m[1], Timestamp: at, Extension: m[3]}, true
}
