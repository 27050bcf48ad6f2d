package snapshot

import "time"

// ReadingStatus is the shelf an owned book sits on.
type ReadingStatus string

const (
	StatusWantToRead ReadingStatus = "want-to-read"
	StatusReading    ReadingStatus = "reading"
	StatusCompleted  ReadingStatus = "completed"
	StatusPaused     ReadingStatus = "paused"
	StatusAbandoned  ReadingStatus = "abandoned"
)

// ParseStatus maps loose spellings onto a ReadingStatus.
// The second return value is false when the input is not recognised.
func ParseStatus(s string) (ReadingStatus, bool) {
	switch normalizeToken(s) {
	case "want-to-read", "to-read", "wanttoread", "want":
		return StatusWantToRead, true
	case "reading", "currently-reading", "in-progress":
		return StatusReading, true
	case "completed", "read", "finished", "done":
		return StatusCompleted, true
	case "paused", "on-hold":
		return StatusPaused, true
	case "abandoned", "dnf", "did-not-finish":
		return StatusAbandoned, true
	}
	return "", false
}

// BookRecord is a catalogue entry.
type BookRecord struct {
	ID            string     `json:"id,omitempty"`
	Title         string     `json:"title" validate:"required,max=512"`
	Authors       []string   `json:"authors"`
	ISBN13        *string    `json:"isbn13,omitempty"`
	PageCount     *int       `json:"pageCount,omitempty" validate:"omitempty,min=0"`
	Publisher     *string    `json:"publisher,omitempty"`
	PublishedYear *int       `json:"publishedYear,omitempty"`
	Description   *string    `json:"description,omitempty"`
	Language      *string    `json:"language,omitempty"`
	CoverURL      *string    `json:"coverUrl,omitempty"`
	ExternalID    *string    `json:"externalId,omitempty"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
}

// OwnedBookRecord is a book on the owner's shelves.
//
// BookID references a BookRecord of the same snapshot or a book already in
// the store. Title, Authors and ISBN13 carry the book identity inline so that
// records from tabular sources are self-contained.
type OwnedBookRecord struct {
	ID          string        `json:"id,omitempty"`
	BookID      string        `json:"bookId,omitempty"`
	Title       string        `json:"title,omitempty"`
	Authors     []string      `json:"authors,omitempty"`
	ISBN13      *string       `json:"isbn13,omitempty"`
	Status      ReadingStatus `json:"status" validate:"omitempty,oneof=want-to-read reading completed paused abandoned"`
	CurrentPage *int          `json:"currentPage,omitempty" validate:"omitempty,min=0"`
	Rating      *int          `json:"rating,omitempty" validate:"omitempty,min=1,max=5"`
	Review      *string       `json:"review,omitempty" validate:"omitempty,max=2000"`
	Tags        []string      `json:"tags,omitempty"`
	StartedAt   *time.Time    `json:"startedAt,omitempty"`
	FinishedAt  *time.Time    `json:"finishedAt,omitempty"`
	CreatedAt   *time.Time    `json:"createdAt,omitempty"`
}

// InlineBook returns the book identity carried on the record itself.
func (r OwnedBookRecord) InlineBook() BookRecord {
	return BookRecord{Title: r.Title, Authors: r.Authors, ISBN13: r.ISBN13}
}

// ReadingSessionRecord is one sitting with an owned book.
type ReadingSessionRecord struct {
	ID              string    `json:"id,omitempty"`
	OwnedBookID     string    `json:"userBookId" validate:"required"`
	StartPage       int       `json:"startPage" validate:"min=0"`
	EndPage         int       `json:"endPage" validate:"min=0"`
	SessionDate     time.Time `json:"sessionDate" validate:"required"`
	DurationMinutes *int      `json:"durationMinutes,omitempty" validate:"omitempty,min=0"`
}

// Valid reports whether the page range can be used for aggregation.
func (r ReadingSessionRecord) Valid() bool {
	return r.EndPage >= r.StartPage
}

// PagesRead returns the number of pages covered by a valid session.
func (r ReadingSessionRecord) PagesRead() int {
	if !r.Valid() {
		return 0
	}
	return r.EndPage - r.StartPage
}

// WishlistRecord is a book the owner wants to acquire.
type WishlistRecord struct {
	ID       string     `json:"id,omitempty"`
	BookID   string     `json:"bookId,omitempty"`
	Title    string     `json:"title,omitempty"`
	Authors  []string   `json:"authors,omitempty"`
	ISBN13   *string    `json:"isbn13,omitempty"`
	Priority *int       `json:"priority,omitempty" validate:"omitempty,min=1,max=5"`
	Notes    *string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
	AddedAt  *time.Time `json:"addedAt,omitempty"`
}

// InlineBook returns the book identity carried on the record itself.
func (r WishlistRecord) InlineBook() BookRecord {
	return BookRecord{Title: r.Title, Authors: r.Authors, ISBN13: r.ISBN13}
}

// CollectionRecord is a named, owner-defined group of owned books.
type CollectionRecord struct {
	ID           string     `json:"id,omitempty"`
	Name         string     `json:"name" validate:"required,max=200"`
	Description  *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	OwnedBookIDs []string   `json:"userBookIds"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
}

// ProfileRecord holds the owner's profile fields.
type ProfileRecord struct {
	Username    string  `json:"username"`
	DisplayName *string `json:"displayName,omitempty" validate:"omitempty,max=100"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
	ReadingGoal *int    `json:"readingGoal,omitempty" validate:"omitempty,min=0"`
}
