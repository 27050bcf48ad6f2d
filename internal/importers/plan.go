package importers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

// Ref identifies a row either already in the store ("12") or created earlier
// in the same Plan ("new:books:0").
type Ref string

// ExistingRef returns the ref of a stored row.
func ExistingRef(id uint) Ref {
	return Ref(strconv.FormatUint(uint64(id), 10))
}

func pendingRef(category snapshot.Category, n int) Ref {
	return Ref(fmt.Sprintf("new:%s:%d", category, n))
}

// ID returns the stored row id; ok is false for pending refs.
func (r Ref) ID() (uint, bool) {
	if r == "" || r.Pending() {
		return 0, false
	}
	id, err := strconv.ParseUint(string(r), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// Pending reports whether the row is created by the Plan itself.
func (r Ref) Pending() bool {
	return strings.HasPrefix(string(r), "new:")
}

// State is the owner's current library as seen by the importer. Record IDs
// are Refs of stored rows, and so are the cross references between records.
type State struct {
	Profile         snapshot.ProfileRecord
	Books           []snapshot.BookRecord
	OwnedBooks      []snapshot.OwnedBookRecord
	ReadingSessions []snapshot.ReadingSessionRecord
	Wishlist        []snapshot.WishlistRecord
	Collections     []snapshot.CollectionRecord
}

// BookOp creates or updates a catalogue entry.
type BookOp struct {
	Ref    Ref
	Create bool
	Record snapshot.BookRecord
}

// OwnedBookOp creates or updates a shelf entry for BookRef.
type OwnedBookOp struct {
	Ref     Ref
	Create  bool
	BookRef Ref
	Record  snapshot.OwnedBookRecord
}

// SessionOp creates a reading session. Sessions are never updated.
type SessionOp struct {
	OwnedBookRef Ref
	Record       snapshot.ReadingSessionRecord
}

// WishlistOp creates or updates a wishlist entry for BookRef.
type WishlistOp struct {
	Ref     Ref
	Create  bool
	BookRef Ref
	Record  snapshot.WishlistRecord
}

// CollectionOp creates or updates a collection. Members is the complete
// membership after the import.
type CollectionOp struct {
	Ref     Ref
	Create  bool
	Members []Ref
	Record  snapshot.CollectionRecord
}

// Plan is the full set of writes produced by reconciliation, in dependency
// order. Applying it must be all or nothing.
type Plan struct {
	Source          snapshot.Format
	Books           []BookOp
	OwnedBooks      []OwnedBookOp
	ReadingSessions []SessionOp
	Wishlist        []WishlistOp
	Collections     []CollectionOp
	Profile         *snapshot.ProfileRecord
}

// Len returns the number of writes in the plan.
func (p *Plan) Len() int {
	n := len(p.Books) + len(p.OwnedBooks) + len(p.ReadingSessions) + len(p.Wishlist) + len(p.Collections)
	if p.Profile != nil {
		n++
	}
	return n
}

// Store is the record store the pipeline reads from and writes to.
//
// LoadState fails with an OwnerNotFound error when the owner does not exist.
// Apply must run the whole plan in one transaction and leave the store
// unchanged when it returns an error.
type Store interface {
	LoadState(ctx context.Context, ownerID uint) (*State, error)
	Apply(ctx context.Context, ownerID uint, plan *Plan) error
}
