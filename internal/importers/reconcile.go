package importers

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mrlokans/shelfport/internal/dedupe"
	"github.com/mrlokans/shelfport/internal/merge"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// entry is a reconciled row: its ref, its current record and the index of
// the plan op writing it (-1 while nothing needs writing).
type entry[T any] struct {
	ref    Ref
	record T
	op     int
}

type reconciler struct {
	threshold float64
	summary   *snapshot.ImportSummary
	plan      *Plan

	// books holds stored and staged books; each ID is the book's Ref.
	books       []snapshot.BookRecord
	bookOps     map[Ref]int
	bookRefs    map[string]Ref
	storedBooks map[string]snapshot.BookRecord

	ownedByBook map[Ref]*entry[snapshot.OwnedBookRecord]
	ownedRefs   map[string]Ref
	storedOwned map[string]bool

	sessionKeys map[string]bool
	wishByBook  map[Ref]*entry[snapshot.WishlistRecord]
	collections map[string]*entry[snapshot.CollectionRecord]

	profile snapshot.ProfileRecord
}

func newReconciler(state *State, threshold float64, summary *snapshot.ImportSummary) *reconciler {
	r := &reconciler{
		threshold:   threshold,
		summary:     summary,
		plan:        &Plan{},
		books:       append([]snapshot.BookRecord(nil), state.Books...),
		bookOps:     make(map[Ref]int),
		bookRefs:    make(map[string]Ref),
		storedBooks: make(map[string]snapshot.BookRecord, len(state.Books)),
		ownedByBook: make(map[Ref]*entry[snapshot.OwnedBookRecord], len(state.OwnedBooks)),
		ownedRefs:   make(map[string]Ref),
		storedOwned: make(map[string]bool, len(state.OwnedBooks)),
		sessionKeys: make(map[string]bool, len(state.ReadingSessions)),
		wishByBook:  make(map[Ref]*entry[snapshot.WishlistRecord], len(state.Wishlist)),
		collections: make(map[string]*entry[snapshot.CollectionRecord], len(state.Collections)),
		profile:     state.Profile,
	}
	for _, b := range state.Books {
		r.storedBooks[b.ID] = b
	}
	for _, ob := range state.OwnedBooks {
		r.ownedByBook[Ref(ob.BookID)] = &entry[snapshot.OwnedBookRecord]{ref: Ref(ob.ID), record: ob, op: -1}
		r.storedOwned[ob.ID] = true
	}
	for _, rs := range state.ReadingSessions {
		r.sessionKeys[sessionKey(Ref(rs.OwnedBookID), rs)] = true
	}
	for _, w := range state.Wishlist {
		r.wishByBook[Ref(w.BookID)] = &entry[snapshot.WishlistRecord]{ref: Ref(w.ID), record: w, op: -1}
	}
	for _, col := range state.Collections {
		r.collections[collectionKey(col.Name)] = &entry[snapshot.CollectionRecord]{ref: Ref(col.ID), record: col, op: -1}
	}
	return r
}

func (r *reconciler) run(v validated) *Plan {
	for _, b := range v.books {
		r.reconcileBook(b.Record)
	}
	for _, ob := range v.owned {
		r.reconcileOwnedBook(ob)
	}
	for _, rs := range v.sessions {
		r.reconcileSession(rs)
	}
	for _, w := range v.wishlist {
		r.reconcileWishlist(w)
	}
	for _, col := range v.collections {
		r.reconcileCollection(col)
	}
	if v.profile != nil {
		merged := merge.Profile(r.profile, *v.profile)
		r.plan.Profile = &merged
		r.summary.Profile.Updated++
	}
	return r.plan
}

func (r *reconciler) reconcileBook(b snapshot.BookRecord) {
	var ref Ref
	verdict := dedupe.Classify(b, r.books, r.threshold)
	if !verdict.IsDuplicate {
		ref = r.createBook(b)
	} else {
		existing := r.books[verdict.Index]
		ref = Ref(existing.ID)
		merged := merge.Book(existing, b)
		r.books[verdict.Index] = merged
		if i, ok := r.bookOps[ref]; ok {
			r.plan.Books[i].Record = merged
		} else if !reflect.DeepEqual(existing, merged) {
			r.bookOps[ref] = len(r.plan.Books)
			r.plan.Books = append(r.plan.Books, BookOp{Ref: ref, Record: merged})
		}
		r.summary.Books.Updated++
	}
	if b.ID != "" {
		r.bookRefs[b.ID] = ref
	}
}

func (r *reconciler) createBook(b snapshot.BookRecord) Ref {
	ref := pendingRef(snapshot.CategoryBooks, len(r.plan.Books))
	b.ID = string(ref)
	r.books = append(r.books, b)
	r.bookOps[ref] = len(r.plan.Books)
	r.plan.Books = append(r.plan.Books, BookOp{Ref: ref, Create: true, Record: b})
	r.summary.Books.Added++
	return ref
}

// resolveBook finds the book an owned or wishlist record belongs to.
//
// A snapshot-local id wins. A stored id is used when the record carries no
// inline identity or the stored book matches it. Otherwise the inline
// identity is matched against known books, and a new book is created from
// it when nothing matches.
func (r *reconciler) resolveBook(id string, inline snapshot.BookRecord) (Ref, bool) {
	if ref, ok := r.bookRefs[id]; ok {
		return ref, true
	}

	hasInline := inline.Title != "" || snapshot.NormalizeISBN(inline.ISBN13) != ""
	if stored, ok := r.storedBooks[id]; ok {
		if !hasInline || r.sameBook(stored, inline) {
			return Ref(id), true
		}
	}
	if !hasInline {
		return "", false
	}

	if v := dedupe.Classify(inline, r.books, r.threshold); v.IsDuplicate {
		return Ref(r.books[v.Index].ID), true
	}
	if inline.Title == "" {
		return "", false
	}
	return r.createBook(inline), true
}

func (r *reconciler) sameBook(stored, inline snapshot.BookRecord) bool {
	if dedupe.MatchesExisting(inline, []snapshot.BookRecord{stored}) {
		return true
	}
	isbn, storedISBN := snapshot.NormalizeISBN(inline.ISBN13), snapshot.NormalizeISBN(stored.ISBN13)
	if isbn != "" && storedISBN != "" {
		return false
	}
	if inline.Title == "" {
		return false
	}
	return dedupe.Similarity(stored, inline) >= r.threshold
}

func (r *reconciler) unresolved(category snapshot.Category, index int, ref, field, message string) {
	r.summary.AddError(snapshot.RecordError{
		Category:  category,
		Index:     index,
		RecordRef: ref,
		Kind:      snapshot.KindValidation,
		Field:     field,
		Message:   message,
	})
}

// checkPage rejects a current page beyond the resolved book's page count.
// The page that would be stored is the larger of the incoming page and the
// one already on the shelf.
func (r *reconciler) checkPage(bookRef Ref, incoming *int) (string, bool) {
	page := incoming
	if e, exists := r.ownedByBook[bookRef]; exists {
		page = maxInt(e.record.CurrentPage, incoming)
	}
	if page == nil {
		return "", true
	}
	for _, b := range r.books {
		if Ref(b.ID) != bookRef {
			continue
		}
		if b.PageCount != nil && *b.PageCount > 0 && *page > *b.PageCount {
			return fmt.Sprintf("page %d is beyond the last page %d of %q", *page, *b.PageCount, b.Title), false
		}
		break
	}
	return "", true
}

func maxInt(a, b *int) *int {
	switch {
	case a == nil:
		return b
	case b == nil || *a >= *b:
		return a
	default:
		return b
	}
}

// ownedRef maps an owned-book id of the snapshot or the store onto a Ref.
func (r *reconciler) ownedRef(id string) (Ref, bool) {
	if ref, ok := r.ownedRefs[id]; ok {
		return ref, true
	}
	if r.storedOwned[id] {
		return Ref(id), true
	}
	return "", false
}

func (r *reconciler) reconcileOwnedBook(in indexed[snapshot.OwnedBookRecord]) {
	ob := in.Record
	bookRef, ok := r.resolveBook(ob.BookID, ob.InlineBook())
	if !ok {
		r.unresolved(snapshot.CategoryOwnedBooks, in.Index, ob.ID, "bookId", "book could not be resolved")
		return
	}

	if msg, ok := r.checkPage(bookRef, ob.CurrentPage); !ok {
		r.unresolved(snapshot.CategoryOwnedBooks, in.Index, ob.ID, "currentPage", msg)
		return
	}

	localID := ob.ID
	ob.BookID = string(bookRef)
	ob.Title, ob.Authors, ob.ISBN13 = "", nil, nil

	var ref Ref
	if e, exists := r.ownedByBook[bookRef]; exists {
		merged := merge.OwnedBook(e.record, ob)
		changed := !reflect.DeepEqual(e.record, merged)
		e.record = merged
		switch {
		case e.op >= 0:
			r.plan.OwnedBooks[e.op].Record = merged
		case changed:
			e.op = len(r.plan.OwnedBooks)
			r.plan.OwnedBooks = append(r.plan.OwnedBooks, OwnedBookOp{Ref: e.ref, BookRef: bookRef, Record: merged})
		}
		ref = e.ref
		r.summary.OwnedBooks.Updated++
	} else {
		ref = pendingRef(snapshot.CategoryOwnedBooks, len(r.plan.OwnedBooks))
		ob.ID = string(ref)
		if ob.Status == "" {
			ob.Status = snapshot.StatusWantToRead
		}
		r.ownedByBook[bookRef] = &entry[snapshot.OwnedBookRecord]{ref: ref, record: ob, op: len(r.plan.OwnedBooks)}
		r.plan.OwnedBooks = append(r.plan.OwnedBooks, OwnedBookOp{Ref: ref, Create: true, BookRef: bookRef, Record: ob})
		r.summary.OwnedBooks.Added++
	}

	if localID != "" {
		r.ownedRefs[localID] = ref
	}
}

// reconcileSession skips sessions already recorded for the same owned book,
// day and page range.
func (r *reconciler) reconcileSession(in indexed[snapshot.ReadingSessionRecord]) {
	rs := in.Record
	ownedRef, ok := r.ownedRef(rs.OwnedBookID)
	if !ok {
		r.unresolved(snapshot.CategoryReadingSessions, in.Index, rs.ID, "userBookId", "owned book could not be resolved")
		return
	}

	key := sessionKey(ownedRef, rs)
	if r.sessionKeys[key] {
		r.summary.ReadingSessions.Skipped++
		return
	}
	r.sessionKeys[key] = true

	rs.OwnedBookID = string(ownedRef)
	r.plan.ReadingSessions = append(r.plan.ReadingSessions, SessionOp{OwnedBookRef: ownedRef, Record: rs})
	r.summary.ReadingSessions.Added++
}

func (r *reconciler) reconcileWishlist(in indexed[snapshot.WishlistRecord]) {
	w := in.Record
	bookRef, ok := r.resolveBook(w.BookID, w.InlineBook())
	if !ok {
		r.unresolved(snapshot.CategoryWishlist, in.Index, w.ID, "bookId", "book could not be resolved")
		return
	}

	w.BookID = string(bookRef)
	w.Title, w.Authors, w.ISBN13 = "", nil, nil

	if e, exists := r.wishByBook[bookRef]; exists {
		merged := merge.Wishlist(e.record, w)
		changed := !reflect.DeepEqual(e.record, merged)
		e.record = merged
		switch {
		case e.op >= 0:
			r.plan.Wishlist[e.op].Record = merged
		case changed:
			e.op = len(r.plan.Wishlist)
			r.plan.Wishlist = append(r.plan.Wishlist, WishlistOp{Ref: e.ref, BookRef: bookRef, Record: merged})
		}
		r.summary.Wishlist.Updated++
		return
	}

	ref := pendingRef(snapshot.CategoryWishlist, len(r.plan.Wishlist))
	w.ID = string(ref)
	r.wishByBook[bookRef] = &entry[snapshot.WishlistRecord]{ref: ref, record: w, op: len(r.plan.Wishlist)}
	r.plan.Wishlist = append(r.plan.Wishlist, WishlistOp{Ref: ref, Create: true, BookRef: bookRef, Record: w})
	r.summary.Wishlist.Added++
}

func (r *reconciler) reconcileCollection(in indexed[snapshot.CollectionRecord]) {
	col := in.Record
	members := make([]string, 0, len(col.OwnedBookIDs))
	for _, id := range col.OwnedBookIDs {
		ref, ok := r.ownedRef(id)
		if !ok {
			r.unresolved(snapshot.CategoryCollections, in.Index, col.ID, "userBookIds",
				fmt.Sprintf("owned book %q could not be resolved", id))
			return
		}
		members = append(members, string(ref))
	}
	col.OwnedBookIDs = members

	key := collectionKey(col.Name)
	if e, exists := r.collections[key]; exists {
		merged := merge.Collection(e.record, col)
		changed := !reflect.DeepEqual(e.record, merged)
		e.record = merged
		switch {
		case e.op >= 0:
			r.plan.Collections[e.op].Record = merged
			r.plan.Collections[e.op].Members = toRefs(merged.OwnedBookIDs)
		case changed:
			e.op = len(r.plan.Collections)
			r.plan.Collections = append(r.plan.Collections, CollectionOp{
				Ref: e.ref, Members: toRefs(merged.OwnedBookIDs), Record: merged,
			})
		}
		r.summary.Collections.Updated++
		return
	}

	ref := pendingRef(snapshot.CategoryCollections, len(r.plan.Collections))
	col.ID = string(ref)
	r.collections[key] = &entry[snapshot.CollectionRecord]{ref: ref, record: col, op: len(r.plan.Collections)}
	r.plan.Collections = append(r.plan.Collections, CollectionOp{
		Ref: ref, Create: true, Members: toRefs(col.OwnedBookIDs), Record: col,
	})
	r.summary.Collections.Added++
}

func sessionKey(owned Ref, rs snapshot.ReadingSessionRecord) string {
	return fmt.Sprintf("%s|%s|%d|%d", owned, rs.SessionDate.UTC().Format("2006-01-02"), rs.StartPage, rs.EndPage)
}

func collectionKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func toRefs(ids []string) []Ref {
	refs := make([]Ref, len(ids))
	for i, id := range ids {
		refs[i] = Ref(id)
	}
	return refs
}
