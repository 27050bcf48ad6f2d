package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOwnerSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "reader", "reader"},
		{"keeps dashes and dots", "ada.lovelace-1", "ada.lovelace-1"},
		{"spaces collapse to one underscore", "Ada   Lovelace", "Ada_Lovelace"},
		{"quotes and slashes dropped", `a"b/c\d`, "a_b_c_d"},
		{"header breaking characters", "x\r\ny;z", "x_y_z"},
		{"trims separators", "  _reader._ ", "reader"},
		{"unicode letters kept", "Łukasz Żółw", "Łukasz_Żółw"},
		{"nothing usable", `"/"`, "Untitled"},
		{"empty", "", "Untitled"},
		{"long names truncated", strings.Repeat("a", 100), strings.Repeat("a", 64)},
		{"truncation keeps runes whole", strings.Repeat("a", 63) + "ż", strings.Repeat("a", 63)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OwnerSlug(tt.input))
		})
	}
}

func TestSnapshotFilename(t *testing.T) {
	at := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

	assert.Equal(t, "shelfport-reader-20240309-140507.json", SnapshotFilename("reader", ".json", at))
	assert.Equal(t, "shelfport-Ada_Lovelace-20240309-140507.csv", SnapshotFilename("Ada  Lovelace", ".csv", at))
	assert.Equal(t, "shelfport-Untitled-20240309-140507.json", SnapshotFilename(`"/"`, ".json", at))

	local := at.In(time.FixedZone("UTC+3", 3*3600))
	assert.Equal(t, "shelfport-reader-20240309-140507.json", SnapshotFilename("reader", ".json", local), "timestamps are UTC")
}

func TestParseSnapshotFilename(t *testing.T) {
	at := time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC)

	parsed, ok := ParseSnapshotFilename(SnapshotFilename("reader-two", ".json", at))
	require.True(t, ok)
	assert.Equal(t, "reader-two", parsed.Owner)
	assert.Equal(t, ".json", parsed.Extension)
	assert.True(t, at.Equal(parsed.Timestamp))

	for _, name := range []string{
		"notes.json",
		"shelfport-reader.json",
		"shelfport-reader-20241341-000000.json",
		"shelfport--20240501-030000.json",
	} {
		_, ok := ParseSnapshotFilename(name)
		assert.False(t, ok, name)
	}
}
