// Package snapshot defines the canonical, format-agnostic representation of
// an exported or imported reading data set.
//
// A Snapshot is built by the export selector or decoded by a format codec,
// consumed once, and never persisted in this shape. Records are plain values:
// optional scalars are pointers so that an absent value can be told apart
// from an explicit zero.
package snapshot

import (
	"slices"
	"strings"
	"time"
)

// SchemaVersion is the version of the native snapshot shape written by this build.
const SchemaVersion = 1

// Format identifies a serialized form of a snapshot.
type Format string

const (
	FormatNative    Format = "native"    // Structured JSON document
	FormatCSV       Format = "csv"       // Generic tabular form (owned books only)
	FormatGoodreads Format = "goodreads" // Third-party tabular dialect
)

// ParseFormat maps a user supplied tag onto a known format.
// Unknown tags are returned unchanged so that the codec registry can reject them.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "native", "json":
		return FormatNative
	case "csv", "tabular":
		return FormatCSV
	case "goodreads":
		return FormatGoodreads
	default:
		return Format(s)
	}
}

// Category names a record collection inside a snapshot.
type Category string

const (
	CategoryBooks           Category = "books"
	CategoryOwnedBooks      Category = "userBooks"
	CategoryReadingSessions Category = "readingSessions"
	CategoryWishlist        Category = "wishlist"
	CategoryCollections     Category = "collections"
	CategoryProfile         Category = "userProfile"
)

// AllCategories lists every category in dependency order.
var AllCategories = []Category{
	CategoryBooks,
	CategoryOwnedBooks,
	CategoryReadingSessions,
	CategoryWishlist,
	CategoryCollections,
	CategoryProfile,
}

// ParseCategory accepts the canonical names plus a few spellings used by
// older exports ("ownedBooks", "sessions", "profile").
func ParseCategory(s string) (Category, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "books":
		return CategoryBooks, true
	case "userbooks", "ownedbooks", "owned_books", "user_books":
		return CategoryOwnedBooks, true
	case "readingsessions", "reading_sessions", "sessions":
		return CategoryReadingSessions, true
	case "wishlist", "wishlistentries":
		return CategoryWishlist, true
	case "collections":
		return CategoryCollections, true
	case "userprofile", "profile", "user_profile":
		return CategoryProfile, true
	}
	return "", false
}

// Metadata describes where and when a snapshot was produced.
type Metadata struct {
	SchemaVersion int       `json:"schemaVersion"`
	ExportedAt    time.Time `json:"exportedAt"`
	OwnerID       uint      `json:"ownerId"`
	FormatTag     Format    `json:"formatTag"`
}

// Snapshot is the canonical in-memory data set.
type Snapshot struct {
	Metadata        Metadata               `json:"metadata"`
	Books           []BookRecord           `json:"books"`
	OwnedBooks      []OwnedBookRecord      `json:"userBooks"`
	ReadingSessions []ReadingSessionRecord `json:"readingSessions"`
	Wishlist        []WishlistRecord       `json:"wishlist"`
	Collections     []CollectionRecord     `json:"collections"`
	Profile         *ProfileRecord         `json:"userProfile"`

	// Notes carries per-row observations made while decoding tabular input.
	Notes []RowNote `json:"-"`
}

// Normalized returns a copy whose category slices are non-nil, so consumers
// can rely on every category being present.
func (s Snapshot) Normalized() Snapshot {
	if s.Books == nil {
		s.Books = []BookRecord{}
	}
	if s.OwnedBooks == nil {
		s.OwnedBooks = []OwnedBookRecord{}
	}
	if s.ReadingSessions == nil {
		s.ReadingSessions = []ReadingSessionRecord{}
	}
	if s.Wishlist == nil {
		s.Wishlist = []WishlistRecord{}
	}
	if s.Collections == nil {
		s.Collections = []CollectionRecord{}
	}
	return s
}

// RecordCount returns the number of records across all categories.
func (s Snapshot) RecordCount() int {
	n := len(s.Books) + len(s.OwnedBooks) + len(s.ReadingSessions) + len(s.Wishlist) + len(s.Collections)
	if s.Profile != nil {
		n++
	}
	return n
}

// BookByID returns the book record with the given snapshot-local id.
func (s Snapshot) BookByID(id string) (BookRecord, bool) {
	if id == "" {
		return BookRecord{}, false
	}
	i := slices.IndexFunc(s.Books, func(b BookRecord) bool { return b.ID == id })
	if i < 0 {
		return BookRecord{}, false
	}
	return s.Books[i], true
}

// NoteKind tells the importer how to account for a decode-time row note.
type NoteKind string

const (
	NoteSkipped NoteKind = "skipped" // counted as skipped, not an error
	NoteInvalid NoteKind = "invalid" // row dropped and reported as a validation error
)

// RowNote records a tabular row that did not fully map onto records.
type RowNote struct {
	Kind     NoteKind
	Category Category
	Row      int // 1-based data row number, header excluded
	Field    string
	Message  string
}
