package formats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

// table is a parsed tabular document: a header index plus data rows.
type table struct {
	headerIndex map[string]int
	rows        [][]string
}

// readTable parses RFC4180 text and checks that every required column is
// present. Header names are matched case-insensitively.
func readTable(data []byte, required []string) (*table, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, snapshot.NewError(snapshot.KindMalformedInput, "input is empty")
	}
	if err != nil {
		return nil, snapshot.WrapError(snapshot.KindMalformedInput, err, "failed to read header")
	}

	t := &table{headerIndex: make(map[string]int, len(header))}
	for i, h := range header {
		t.headerIndex[headerKey(h)] = i
	}
	for _, h := range required {
		if _, ok := t.headerIndex[h]; !ok {
			return nil, snapshot.NewError(snapshot.KindMalformedInput, "missing required header: %s", h)
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, snapshot.WrapError(snapshot.KindMalformedInput, err, "failed to read row %d", len(t.rows)+1)
		}
		t.rows = append(t.rows, record)
	}

	if len(t.rows) == 0 {
		return nil, snapshot.NewError(snapshot.KindMalformedInput, "input has a header but no data rows")
	}
	return t, nil
}

// value returns the trimmed cell for a column, or "" when the column or cell
// is missing.
func (t *table) value(record []string, column string) string {
	idx, ok := t.headerIndex[column]
	if !ok || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func headerKey(h string) string {
	// Excel and Goodreads exports sometimes start with a byte order mark.
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(strings.TrimSpace(h))
}

// writeTable renders rows as RFC4180 text.
func writeTable(header []string, rows [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// parseOptionalInt accepts integers and integral floats ("3", "3.0").
// Anything else is treated as absent.
func parseOptionalInt(s string) *int {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return &n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return nil
	}
	n := int(f)
	return &n
}

func formatOptionalInt(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

var dateLayouts = []string{
	"2006/01/02",
	"2006-01-02",
	"01/02/2006",
	time.RFC3339,
}

// parseDate parses the date formats seen in tabular exports. The result is
// midnight UTC of that calendar day.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}
