package formats

import (
	"fmt"
	"strings"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

// AuthorSeparator joins multiple authors inside a single tabular cell.
const AuthorSeparator = ";"

var csvHeader = []string{"Title", "Authors", "Status", "CurrentPage", "Rating", "Review"}

var csvRequired = []string{"title", "authors", "status", "currentpage", "rating"}

// CSVCodec is the generic tabular form. It carries owned books only; every
// other category is dropped on encode and empty on decode.
type CSVCodec struct{}

func (CSVCodec) Format() snapshot.Format { return snapshot.FormatCSV }
func (CSVCodec) ContentType() string     { return "text/csv; charset=utf-8" }
func (CSVCodec) Extension() string       { return ".csv" }

// Encode writes one row per owned book. Book identity is taken from the
// referenced book record when present, otherwise from the inline fields.
func (CSVCodec) Encode(s snapshot.Snapshot) ([]byte, error) {
	rows := make([][]string, 0, len(s.OwnedBooks))
	for _, ob := range s.OwnedBooks {
		book := resolveBook(s, ob.BookID, ob.InlineBook())
		rows = append(rows, []string{
			book.Title,
			strings.Join(book.Authors, AuthorSeparator+" "),
			string(ob.Status),
			formatOptionalInt(ob.CurrentPage),
			formatOptionalInt(ob.Rating),
			snapshot.Deref(ob.Review),
		})
	}

	out, err := writeTable(csvHeader, rows)
	if err != nil {
		return nil, snapshot.WrapError(snapshot.KindMalformedInput, err, "encode csv")
	}
	return out, nil
}

// Decode reads the generic tabular form. Unparseable numbers degrade to
// absent and unknown statuses to want-to-read; a row without a title is
// reported through an invalid RowNote.
func (CSVCodec) Decode(data []byte) (snapshot.Snapshot, error) {
	t, err := readTable(data, csvRequired)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	s := snapshot.Snapshot{
		Metadata: snapshot.Metadata{SchemaVersion: snapshot.SchemaVersion, FormatTag: snapshot.FormatCSV},
	}.Normalized()

	for i, record := range t.rows {
		row := i + 1
		title := t.value(record, "title")
		if title == "" {
			s.Notes = append(s.Notes, snapshot.RowNote{
				Kind:     snapshot.NoteInvalid,
				Category: snapshot.CategoryOwnedBooks,
				Row:      row,
				Field:    "title",
				Message:  "title is required",
			})
			continue
		}

		status, ok := snapshot.ParseStatus(t.value(record, "status"))
		if !ok {
			status = snapshot.StatusWantToRead
		}

		s.OwnedBooks = append(s.OwnedBooks, snapshot.OwnedBookRecord{
			ID:          fmt.Sprintf("csv-%d", row),
			Title:       title,
			Authors:     snapshot.SplitAuthors(t.value(record, "authors"), AuthorSeparator),
			Status:      status,
			CurrentPage: parseOptionalInt(t.value(record, "currentpage")),
			Rating:      parseOptionalInt(t.value(record, "rating")),
			Review:      optionalString(t.value(record, "review")),
		})
	}
	return s, nil
}

// resolveBook returns the snapshot book with the given id, or the inline
// identity when the id does not resolve.
func resolveBook(s snapshot.Snapshot, bookID string, inline snapshot.BookRecord) snapshot.BookRecord {
	if b, ok := s.BookByID(bookID); ok {
		return b
	}
	return inline
}

var _ Codec = CSVCodec{}
