package formats

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

var goodreadsHeader = []string{
	"Book Id", "Title", "Author", "Additional Authors", "ISBN13", "My Rating",
	"Number of Pages", "Publisher", "Year Published", "Date Read", "Date Added",
	"Exclusive Shelf", "My Review", "Bookshelves",
}

var goodreadsRequired = []string{"title", "author", "my rating", "date read", "book id"}

// GoodreadsCodec reads and writes the Goodreads library export dialect.
//
// Each row yields a book and an owned book. A parseable "Date Read" yields a
// reading session covering the whole book on that day.
type GoodreadsCodec struct{}

func (GoodreadsCodec) Format() snapshot.Format { return snapshot.FormatGoodreads }
func (GoodreadsCodec) ContentType() string     { return "text/csv; charset=utf-8" }
func (GoodreadsCodec) Extension() string       { return ".csv" }

func (GoodreadsCodec) Decode(data []byte) (snapshot.Snapshot, error) {
	t, err := readTable(data, goodreadsRequired)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	s := snapshot.Snapshot{
		Metadata: snapshot.Metadata{SchemaVersion: snapshot.SchemaVersion, FormatTag: snapshot.FormatGoodreads},
	}.Normalized()

	for i, record := range t.rows {
		row := i + 1
		title := t.value(record, "title")
		if title == "" {
			s.Notes = append(s.Notes, snapshot.RowNote{
				Kind:     snapshot.NoteInvalid,
				Category: snapshot.CategoryBooks,
				Row:      row,
				Field:    "Title",
				Message:  "title is required",
			})
			continue
		}

		externalID := t.value(record, "book id")
		if externalID == "" {
			externalID = fmt.Sprintf("row-%d", row)
		}
		bookID := "gr-" + externalID
		ownedID := "gr-" + externalID + "-owned"

		// The primary author cell holds one name, possibly in "Last, First" form.
		var authors []string
		if a := t.value(record, "author"); a != "" {
			authors = append(authors, a)
		}
		authors = append(authors, splitAdditionalAuthors(t.value(record, "additional authors"))...)

		isbn := optionalString(unwrapISBN(t.value(record, "isbn13")))
		pages := parseOptionalInt(t.value(record, "number of pages"))

		book := snapshot.BookRecord{
			ID:            bookID,
			Title:         title,
			Authors:       authors,
			ISBN13:        isbn,
			PageCount:     pages,
			Publisher:     optionalString(t.value(record, "publisher")),
			PublishedYear: parseOptionalInt(t.value(record, "year published")),
			ExternalID:    snapshot.Ptr(externalID),
		}

		dateRead, hasDate := parseDate(t.value(record, "date read"))

		status, ok := snapshot.ParseStatus(t.value(record, "exclusive shelf"))
		if !ok {
			status = snapshot.StatusWantToRead
			if hasDate {
				status = snapshot.StatusCompleted
			}
		}

		owned := snapshot.OwnedBookRecord{
			ID:      ownedID,
			BookID:  bookID,
			Title:   title,
			Authors: authors,
			ISBN13:  isbn,
			Status:  status,
			Rating:  goodreadsRating(t.value(record, "my rating")),
			Review:  optionalString(t.value(record, "my review")),
			Tags:    shelfTags(t.value(record, "bookshelves")),
		}
		if status == snapshot.StatusCompleted && pages != nil {
			owned.CurrentPage = snapshot.Ptr(*pages)
		}
		if hasDate {
			owned.FinishedAt = snapshot.Ptr(dateRead)
		}
		if added, ok := parseDate(t.value(record, "date added")); ok {
			owned.CreatedAt = &added
		}

		s.Books = append(s.Books, book)
		s.OwnedBooks = append(s.OwnedBooks, owned)

		if !hasDate {
			s.Notes = append(s.Notes, snapshot.RowNote{
				Kind:     snapshot.NoteSkipped,
				Category: snapshot.CategoryReadingSessions,
				Row:      row,
				Field:    "Date Read",
				Message:  "no parseable read date",
			})
			continue
		}
		s.ReadingSessions = append(s.ReadingSessions, snapshot.ReadingSessionRecord{
			ID:          "gr-" + externalID + "-session",
			OwnedBookID: ownedID,
			StartPage:   0,
			EndPage:     snapshot.Deref(pages),
			SessionDate: dateRead,
		})
	}
	return s, nil
}

// Encode writes one row per owned book. "Date Read" is the latest valid
// session date of the owned book, falling back to FinishedAt.
func (GoodreadsCodec) Encode(s snapshot.Snapshot) ([]byte, error) {
	lastRead := make(map[string]time.Time)
	for _, rs := range s.ReadingSessions {
		if !rs.Valid() {
			continue
		}
		if rs.SessionDate.After(lastRead[rs.OwnedBookID]) {
			lastRead[rs.OwnedBookID] = rs.SessionDate
		}
	}

	rows := make([][]string, 0, len(s.OwnedBooks))
	for _, ob := range s.OwnedBooks {
		book := resolveBook(s, ob.BookID, ob.InlineBook())

		externalID := snapshot.Deref(book.ExternalID)
		if externalID == "" {
			externalID = ob.ID
		}

		var author, additional string
		if len(book.Authors) > 0 {
			author = book.Authors[0]
			additional = joinAdditionalAuthors(book.Authors[1:])
		}

		rating := "0"
		if ob.Rating != nil {
			rating = formatOptionalInt(ob.Rating)
		}

		var dateRead string
		if d, ok := lastRead[ob.ID]; ok {
			dateRead = d.Format("2006/01/02")
		} else if ob.FinishedAt != nil {
			dateRead = ob.FinishedAt.Format("2006/01/02")
		}

		var dateAdded string
		if ob.CreatedAt != nil {
			dateAdded = ob.CreatedAt.Format("2006/01/02")
		}

		isbn := snapshot.NormalizeISBN(book.ISBN13)
		if isbn == "" {
			isbn = snapshot.NormalizeISBN(ob.ISBN13)
		}

		rows = append(rows, []string{
			externalID,
			book.Title,
			author,
			additional,
			isbn,
			rating,
			formatOptionalInt(book.PageCount),
			snapshot.Deref(book.Publisher),
			formatOptionalInt(book.PublishedYear),
			dateRead,
			dateAdded,
			goodreadsShelf(ob.Status),
			snapshot.Deref(ob.Review),
			strings.Join(ob.Tags, ", "),
		})
	}

	out, err := writeTable(goodreadsHeader, rows)
	if err != nil {
		return nil, snapshot.WrapError(snapshot.KindMalformedInput, err, "encode goodreads csv")
	}
	return out, nil
}

// goodreadsRating maps "My Rating"; 0 means unrated.
func goodreadsRating(s string) *int {
	r := parseOptionalInt(s)
	if r == nil || *r == 0 {
		return nil
	}
	return r
}

func goodreadsShelf(status snapshot.ReadingStatus) string {
	switch status {
	case snapshot.StatusCompleted:
		return "read"
	case snapshot.StatusReading:
		return "currently-reading"
	case snapshot.StatusPaused:
		return "paused"
	case snapshot.StatusAbandoned:
		return "abandoned"
	default:
		return "to-read"
	}
}

// unwrapISBN strips the ="..." wrapper Goodreads uses to stop spreadsheets
// from mangling ISBNs.
func unwrapISBN(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), "=")
	s = strings.Trim(s, `"`)
	return snapshot.NormalizeISBN(&s)
}

// shelfTags turns the Bookshelves cell into tags, dropping the exclusive
// shelves that already map onto a status.
func shelfTags(s string) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, shelf := range strings.Split(s, ",") {
		shelf = strings.TrimSpace(shelf)
		if shelf == "" || seen[shelf] {
			continue
		}
		if _, isStatus := snapshot.ParseStatus(shelf); isStatus {
			continue
		}
		seen[shelf] = true
		tags = append(tags, shelf)
	}
	sort.Strings(tags)
	return tags
}

var _ Codec = GoodreadsCodec{}

// Goodreads separates additional authors with ", ". A name that itself
// holds a comma ("Tolkien, J.R.R.") cannot survive that, so such cells are
// written with AuthorSeparator instead and read back the same way.
func joinAdditionalAuthors(authors []string) string {
	for _, a := range authors {
		if strings.Contains(a, ",") {
			return strings.Join(authors, AuthorSeparator+" ")
		}
	}
	return strings.Join(authors, ", ")
}

func splitAdditionalAuthors(cell string) []string {
	if strings.Contains(cell, AuthorSeparator) {
		return snapshot.SplitAuthors(cell, AuthorSeparator)
	}
	return snapshot.SplitAuthors(cell, ",")
}
