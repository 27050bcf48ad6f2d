package formats

import (
	"bytes"
	"encoding/json"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

// NativeCodec reads and writes the structured JSON snapshot document.
type NativeCodec struct{}

// nativeDocument mirrors snapshot.Snapshot on the wire. Metadata is a pointer
// so that a missing block can be detected, and "ownedBooks" is accepted as an
// alias of "userBooks".
type nativeDocument struct {
	Metadata        *snapshot.Metadata              `json:"metadata"`
	Books           []snapshot.BookRecord           `json:"books"`
	OwnedBooks      []snapshot.OwnedBookRecord      `json:"userBooks"`
	OwnedBooksAlias []snapshot.OwnedBookRecord      `json:"ownedBooks,omitempty"`
	ReadingSessions []snapshot.ReadingSessionRecord `json:"readingSessions"`
	Wishlist        []snapshot.WishlistRecord       `json:"wishlist"`
	Collections     []snapshot.CollectionRecord     `json:"collections"`
	Profile         *snapshot.ProfileRecord         `json:"userProfile"`
}

func (NativeCodec) Format() snapshot.Format { return snapshot.FormatNative }
func (NativeCodec) ContentType() string     { return "application/json" }
func (NativeCodec) Extension() string       { return ".json" }

// Encode writes every category, empty ones as [].
func (NativeCodec) Encode(s snapshot.Snapshot) ([]byte, error) {
	s = s.Normalized()
	meta := s.Metadata
	doc := nativeDocument{
		Metadata:        &meta,
		Books:           s.Books,
		OwnedBooks:      s.OwnedBooks,
		ReadingSessions: s.ReadingSessions,
		Wishlist:        s.Wishlist,
		Collections:     s.Collections,
		Profile:         s.Profile,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, snapshot.WrapError(snapshot.KindMalformedInput, err, "encode native snapshot")
	}
	return buf.Bytes(), nil
}

// Decode parses a native document. Text that is not a JSON object yields
// MalformedInput; a document without a metadata block, or written by a newer
// schema, yields SchemaMismatch.
func (NativeCodec) Decode(data []byte) (snapshot.Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return snapshot.Snapshot{}, snapshot.NewError(snapshot.KindMalformedInput, "empty native snapshot")
	}

	var doc nativeDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return snapshot.Snapshot{}, snapshot.WrapError(snapshot.KindMalformedInput, err, "native snapshot is not valid JSON")
	}

	if doc.Metadata == nil {
		return snapshot.Snapshot{}, snapshot.NewError(snapshot.KindSchemaMismatch, "native snapshot has no metadata block")
	}
	if doc.Metadata.SchemaVersion > snapshot.SchemaVersion {
		return snapshot.Snapshot{}, snapshot.NewError(snapshot.KindSchemaMismatch,
			"schema version %d is newer than supported version %d", doc.Metadata.SchemaVersion, snapshot.SchemaVersion)
	}

	owned := doc.OwnedBooks
	if len(doc.OwnedBooksAlias) > 0 {
		owned = append(owned, doc.OwnedBooksAlias...)
	}

	s := snapshot.Snapshot{
		Metadata:        *doc.Metadata,
		Books:           doc.Books,
		OwnedBooks:      owned,
		ReadingSessions: doc.ReadingSessions,
		Wishlist:        doc.Wishlist,
		Collections:     doc.Collections,
		Profile:         doc.Profile,
	}
	return s.Normalized(), nil
}

var _ Codec = NativeCodec{}
