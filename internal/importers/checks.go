package importers

import (
	"fmt"

	"github.com/mrlokans/shelfport/internal/dedupe"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

type indexed[T any] struct {
	Index  int
	Record T
}

// validated holds the records that survived the Validating phase, with
// their position in the incoming snapshot.
type validated struct {
	books       []indexed[snapshot.BookRecord]
	owned       []indexed[snapshot.OwnedBookRecord]
	sessions    []indexed[snapshot.ReadingSessionRecord]
	wishlist    []indexed[snapshot.WishlistRecord]
	collections []indexed[snapshot.CollectionRecord]
	profile     *snapshot.ProfileRecord
}

// checker carries the lookups used by cross-record checks.
type checker struct {
	rv      *recordValidator
	summary *snapshot.ImportSummary

	localBooks  map[string]snapshot.BookRecord
	storedBooks map[string]snapshot.BookRecord
	allBooks    []snapshot.BookRecord
	localOwned  map[string]bool
	storedOwned map[string]bool
}

func (p *Pipeline) validateSnapshot(s snapshot.Snapshot, state *State, summary *snapshot.ImportSummary) validated {
	c := &checker{
		rv:          p.validate,
		summary:     summary,
		localBooks:  make(map[string]snapshot.BookRecord),
		storedBooks: make(map[string]snapshot.BookRecord, len(state.Books)),
		localOwned:  make(map[string]bool),
		storedOwned: make(map[string]bool, len(state.OwnedBooks)),
	}
	for _, b := range state.Books {
		c.storedBooks[b.ID] = b
	}
	c.allBooks = append(c.allBooks, state.Books...)
	for _, ob := range state.OwnedBooks {
		c.storedOwned[ob.ID] = true
	}

	c.foldNotes(s.Notes)

	var v validated
	for i, b := range s.Books {
		if c.checkBook(i, b) {
			v.books = append(v.books, indexed[snapshot.BookRecord]{i, b})
		}
	}
	for i, ob := range s.OwnedBooks {
		if c.checkOwnedBook(i, ob) {
			v.owned = append(v.owned, indexed[snapshot.OwnedBookRecord]{i, ob})
		}
	}
	for i, rs := range s.ReadingSessions {
		if c.checkSession(i, rs) {
			v.sessions = append(v.sessions, indexed[snapshot.ReadingSessionRecord]{i, rs})
		}
	}
	for i, w := range s.Wishlist {
		if c.checkWishlist(i, w) {
			v.wishlist = append(v.wishlist, indexed[snapshot.WishlistRecord]{i, w})
		}
	}
	for i, col := range s.Collections {
		if c.checkCollection(i, col) {
			v.collections = append(v.collections, indexed[snapshot.CollectionRecord]{i, col})
		}
	}
	if s.Profile != nil {
		if fe := c.rv.check(*s.Profile); fe != nil {
			c.reject(snapshot.CategoryProfile, 0, s.Profile.Username, fe.Field, fe.Message)
		} else {
			profile := *s.Profile
			v.profile = &profile
		}
	}
	return v
}

// foldNotes accounts for rows the decoder could not map onto records.
func (c *checker) foldNotes(notes []snapshot.RowNote) {
	for _, n := range notes {
		switch n.Kind {
		case snapshot.NoteSkipped:
			c.summary.Counts(n.Category).Skipped++
		default:
			c.reject(n.Category, n.Row-1, fmt.Sprintf("row %d", n.Row), n.Field, n.Message)
		}
	}
}

func (c *checker) reject(category snapshot.Category, index int, ref, field, message string) {
	c.summary.AddError(snapshot.RecordError{
		Category:  category,
		Index:     index,
		RecordRef: ref,
		Kind:      snapshot.KindValidation,
		Field:     field,
		Message:   message,
	})
}

func (c *checker) checkBook(i int, b snapshot.BookRecord) bool {
	if fe := c.rv.check(b); fe != nil {
		c.reject(snapshot.CategoryBooks, i, b.ID, fe.Field, fe.Message)
		return false
	}
	if b.ID != "" {
		if _, dup := c.localBooks[b.ID]; dup {
			c.reject(snapshot.CategoryBooks, i, b.ID, "id", "duplicate id")
			return false
		}
		c.localBooks[b.ID] = b
	}
	c.allBooks = append(c.allBooks, b)
	return true
}

// lookupBook finds the book a record points at, in the snapshot or the store.
func (c *checker) lookupBook(id string) (snapshot.BookRecord, bool) {
	if id == "" {
		return snapshot.BookRecord{}, false
	}
	if b, ok := c.localBooks[id]; ok {
		return b, true
	}
	b, ok := c.storedBooks[id]
	return b, ok
}

// bookResolvable reports whether a record's book can be found or created:
// by reference, by an inline ISBN already known, or from an inline title.
func (c *checker) bookResolvable(id string, inline snapshot.BookRecord) bool {
	if _, ok := c.lookupBook(id); ok {
		return true
	}
	if inline.Title != "" {
		return true
	}
	return dedupe.MatchesExisting(inline, c.allBooks)
}

func (c *checker) checkBookRef(category snapshot.Category, i int, ref, bookID string, inline snapshot.BookRecord) bool {
	if bookID == "" && inline.Title == "" && snapshot.NormalizeISBN(inline.ISBN13) == "" {
		c.reject(category, i, ref, "bookId", "a book reference or an inline title is required")
		return false
	}
	if !c.bookResolvable(bookID, inline) {
		c.reject(category, i, ref, "bookId", fmt.Sprintf("references unknown book %q", bookID))
		return false
	}
	return true
}

func (c *checker) checkOwnedBook(i int, ob snapshot.OwnedBookRecord) bool {
	const cat = snapshot.CategoryOwnedBooks
	if fe := c.rv.check(ob); fe != nil {
		c.reject(cat, i, ob.ID, fe.Field, fe.Message)
		return false
	}
	if !c.checkBookRef(cat, i, ob.ID, ob.BookID, ob.InlineBook()) {
		return false
	}
	if book, ok := c.lookupBook(ob.BookID); ok && ob.CurrentPage != nil && book.PageCount != nil && *book.PageCount > 0 {
		if *ob.CurrentPage > *book.PageCount {
			c.reject(cat, i, ob.ID, "currentPage",
				fmt.Sprintf("page %d is beyond the last page %d", *ob.CurrentPage, *book.PageCount))
			return false
		}
	}
	if ob.StartedAt != nil && ob.FinishedAt != nil && ob.FinishedAt.Before(*ob.StartedAt) {
		c.reject(cat, i, ob.ID, "finishedAt", "finished before it was started")
		return false
	}
	if ob.ID != "" {
		if c.localOwned[ob.ID] {
			c.reject(cat, i, ob.ID, "id", "duplicate id")
			return false
		}
		c.localOwned[ob.ID] = true
	}
	return true
}

// checkSession rejects structural problems and dangling references. A page
// range running backwards is not an error: the session is skipped.
func (c *checker) checkSession(i int, rs snapshot.ReadingSessionRecord) bool {
	const cat = snapshot.CategoryReadingSessions
	if fe := c.rv.check(rs); fe != nil {
		c.reject(cat, i, rs.ID, fe.Field, fe.Message)
		return false
	}
	if !c.localOwned[rs.OwnedBookID] && !c.storedOwned[rs.OwnedBookID] {
		c.reject(cat, i, rs.ID, "userBookId", fmt.Sprintf("references unknown owned book %q", rs.OwnedBookID))
		return false
	}
	if !rs.Valid() {
		c.summary.ReadingSessions.Skipped++
		return false
	}
	return true
}

func (c *checker) checkWishlist(i int, w snapshot.WishlistRecord) bool {
	const cat = snapshot.CategoryWishlist
	if fe := c.rv.check(w); fe != nil {
		c.reject(cat, i, w.ID, fe.Field, fe.Message)
		return false
	}
	return c.checkBookRef(cat, i, w.ID, w.BookID, w.InlineBook())
}

func (c *checker) checkCollection(i int, col snapshot.CollectionRecord) bool {
	const cat = snapshot.CategoryCollections
	if fe := c.rv.check(col); fe != nil {
		c.reject(cat, i, col.ID, fe.Field, fe.Message)
		return false
	}
	for _, id := range col.OwnedBookIDs {
		if !c.localOwned[id] && !c.storedOwned[id] {
			c.reject(cat, i, col.ID, "userBookIds", fmt.Sprintf("references unknown owned book %q", id))
			return false
		}
	}
	return true
}
