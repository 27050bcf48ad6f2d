package snapshot

// Phase is a state of the import state machine.
type Phase string

const (
	PhaseValidating  Phase = "validating"
	PhaseReconciling Phase = "reconciling"
	PhasePersisting  Phase = "persisting"
	PhaseCommitted   Phase = "committed"
	PhaseRolledBack  Phase = "rolled_back"
	PhaseDryRun      Phase = "dry_run"
)

// CategoryCounts tallies what happened to the records of one category.
type CategoryCounts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// Total returns the number of records accounted for.
func (c CategoryCounts) Total() int {
	return c.Added + c.Updated + c.Skipped
}

// RecordError is a non-fatal, per-record problem found during an import.
type RecordError struct {
	Category  Category  `json:"category"`
	Index     int       `json:"index"`
	RecordRef string    `json:"recordRef,omitempty"`
	Kind      ErrorKind `json:"errorKind"`
	Field     string    `json:"field,omitempty"`
	Message   string    `json:"message"`
}

// ImportSummary is the outcome of one import invocation.
type ImportSummary struct {
	Success         bool           `json:"success"`
	Phase           Phase          `json:"phase"`
	Books           CategoryCounts `json:"books"`
	OwnedBooks      CategoryCounts `json:"userBooks"`
	ReadingSessions CategoryCounts `json:"readingSessions"`
	Wishlist        CategoryCounts `json:"wishlist"`
	Collections     CategoryCounts `json:"collections"`
	Profile         CategoryCounts `json:"userProfile"`
	Errors          []RecordError  `json:"errors"`
}

// NewImportSummary returns an empty summary with a non-nil error list.
func NewImportSummary() ImportSummary {
	return ImportSummary{Phase: PhaseValidating, Errors: []RecordError{}}
}

// Counts returns a pointer to the tally of the given category.
func (s *ImportSummary) Counts(c Category) *CategoryCounts {
	switch c {
	case CategoryBooks:
		return &s.Books
	case CategoryOwnedBooks:
		return &s.OwnedBooks
	case CategoryReadingSessions:
		return &s.ReadingSessions
	case CategoryWishlist:
		return &s.Wishlist
	case CategoryCollections:
		return &s.Collections
	case CategoryProfile:
		return &s.Profile
	}
	return &CategoryCounts{}
}

// AddError records a per-record error and counts the record as skipped.
func (s *ImportSummary) AddError(e RecordError) {
	s.Errors = append(s.Errors, e)
	s.Counts(e.Category).Skipped++
}

// TotalAdded sums added records across categories.
func (s ImportSummary) TotalAdded() int {
	return s.Books.Added + s.OwnedBooks.Added + s.ReadingSessions.Added +
		s.Wishlist.Added + s.Collections.Added + s.Profile.Added
}

// TotalUpdated sums updated records across categories.
func (s ImportSummary) TotalUpdated() int {
	return s.Books.Updated + s.OwnedBooks.Updated + s.ReadingSessions.Updated +
		s.Wishlist.Updated + s.Collections.Updated + s.Profile.Updated
}
