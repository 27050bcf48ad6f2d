// Package exporters builds snapshots of an owner's library.
package exporters

import (
	"context"
	"errors"
	"time"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

// Reader is the read side of the record store. Owned-book and wishlist
// records it returns carry their book's title, authors and ISBN inline.
type Reader interface {
	// Profile returns nil when the owner does not exist.
	Profile(ctx context.Context, ownerID uint) (*snapshot.ProfileRecord, error)
	Books(ctx context.Context, ownerID uint) ([]snapshot.BookRecord, error)
	OwnedBooks(ctx context.Context, ownerID uint) ([]snapshot.OwnedBookRecord, error)
	ReadingSessions(ctx context.Context, ownerID uint) ([]snapshot.ReadingSessionRecord, error)
	Wishlist(ctx context.Context, ownerID uint) ([]snapshot.WishlistRecord, error)
	Collections(ctx context.Context, ownerID uint) ([]snapshot.CollectionRecord, error)
}

// Selector assembles snapshots from a Reader.
type Selector struct {
	reader Reader
	now    func() time.Time
}

// NewSelector creates a selector stamping exports with the wall clock.
func NewSelector(reader Reader) *Selector {
	return &Selector{reader: reader, now: time.Now}
}

// WithClock returns a copy of the selector using now for ExportedAt.
func (s *Selector) WithClock(now func() time.Time) *Selector {
	return &Selector{reader: s.reader, now: now}
}

// Export returns the selected categories of the owner's library.
//
// Unselected categories are empty, never nil, and the profile is nil unless
// selected. dateRange, when given, limits reading sessions to the days it
// covers and has no effect on other categories.
func (s *Selector) Export(ctx context.Context, ownerID uint, sel Selection, dateRange *DateRange) (snapshot.Snapshot, error) {
	profile, err := s.reader.Profile(ctx, ownerID)
	if err != nil {
		return snapshot.Snapshot{}, readError(err, "load profile")
	}
	if profile == nil {
		return snapshot.Snapshot{}, snapshot.NewError(snapshot.KindOwnerNotFound, "owner %d not found", ownerID)
	}

	out := snapshot.Snapshot{
		Metadata: snapshot.Metadata{
			SchemaVersion: snapshot.SchemaVersion,
			ExportedAt:    s.now().UTC(),
			OwnerID:       ownerID,
			FormatTag:     snapshot.FormatNative,
		},
	}

	if sel.Has(snapshot.CategoryBooks) {
		if out.Books, err = s.reader.Books(ctx, ownerID); err != nil {
			return snapshot.Snapshot{}, readError(err, "load books")
		}
	}
	if sel.Has(snapshot.CategoryOwnedBooks) {
		if out.OwnedBooks, err = s.reader.OwnedBooks(ctx, ownerID); err != nil {
			return snapshot.Snapshot{}, readError(err, "load owned books")
		}
	}
	if sel.Has(snapshot.CategoryReadingSessions) {
		sessions, err := s.reader.ReadingSessions(ctx, ownerID)
		if err != nil {
			return snapshot.Snapshot{}, readError(err, "load reading sessions")
		}
		out.ReadingSessions = dateRange.filter(sessions)
	}
	if sel.Has(snapshot.CategoryWishlist) {
		if out.Wishlist, err = s.reader.Wishlist(ctx, ownerID); err != nil {
			return snapshot.Snapshot{}, readError(err, "load wishlist")
		}
	}
	if sel.Has(snapshot.CategoryCollections) {
		if out.Collections, err = s.reader.Collections(ctx, ownerID); err != nil {
			return snapshot.Snapshot{}, readError(err, "load collections")
		}
	}
	if sel.Has(snapshot.CategoryProfile) {
		out.Profile = profile
	}

	return out.Normalized(), nil
}

func readError(err error, op string) error {
	var pe *snapshot.Error
	if errors.As(err, &pe) {
		return err
	}
	return snapshot.WrapError(snapshot.KindPersistenceFailure, err, "%s", op)
}
