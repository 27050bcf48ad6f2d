package library

import (
	"time"

	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/importers"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

func refOf(id uint) string {
	return string(importers.ExistingRef(id))
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

func profileRecord(u entities.User) snapshot.ProfileRecord {
	return snapshot.ProfileRecord{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Bio:         u.Bio,
		ReadingGoal: u.ReadingGoal,
	}
}

func bookRecord(b entities.Book) snapshot.BookRecord {
	return snapshot.BookRecord{
		ID:            refOf(b.ID),
		Title:         b.Title,
		Authors:       b.Authors,
		ISBN13:        b.ISBN13,
		PageCount:     b.PageCount,
		Publisher:     b.Publisher,
		PublishedYear: b.PublishedYear,
		Description:   b.Description,
		Language:      b.Language,
		CoverURL:      b.CoverURL,
		ExternalID:    b.ExternalID,
		CreatedAt:     timePtr(b.CreatedAt),
	}
}

func applyBook(row *entities.Book, rec snapshot.BookRecord) {
	row.Title = rec.Title
	row.Authors = rec.Authors
	row.ISBN13 = rec.ISBN13
	row.PageCount = rec.PageCount
	row.Publisher = rec.Publisher
	row.PublishedYear = rec.PublishedYear
	row.Description = rec.Description
	row.Language = rec.Language
	row.CoverURL = rec.CoverURL
	row.ExternalID = rec.ExternalID
}

// ownedBookRecord converts a shelf row. The inline book identity is filled
// only when the row's Book was preloaded.
func ownedBookRecord(ob entities.OwnedBook) snapshot.OwnedBookRecord {
	rec := snapshot.OwnedBookRecord{
		ID:          refOf(ob.ID),
		BookID:      refOf(ob.BookID),
		Status:      snapshot.ReadingStatus(ob.Status),
		CurrentPage: ob.CurrentPage,
		Rating:      ob.Rating,
		Review:      ob.Review,
		Tags:        ob.Tags,
		StartedAt:   utcPtr(ob.StartedAt),
		FinishedAt:  utcPtr(ob.FinishedAt),
		CreatedAt:   timePtr(ob.CreatedAt),
	}
	if ob.Book.ID != 0 {
		rec.Title, rec.Authors, rec.ISBN13 = ob.Book.Title, ob.Book.Authors, ob.Book.ISBN13
	}
	return rec
}

func applyOwnedBook(row *entities.OwnedBook, rec snapshot.OwnedBookRecord) {
	row.Status = entities.ReadingStatus(rec.Status)
	if row.Status == "" {
		row.Status = entities.StatusWantToRead
	}
	row.CurrentPage = rec.CurrentPage
	row.Rating = rec.Rating
	row.Review = rec.Review
	row.Tags = rec.Tags
	row.StartedAt = rec.StartedAt
	row.FinishedAt = rec.FinishedAt
}

func sessionRecord(rs entities.ReadingSession) snapshot.ReadingSessionRecord {
	return snapshot.ReadingSessionRecord{
		ID:              refOf(rs.ID),
		OwnedBookID:     refOf(rs.OwnedBookID),
		StartPage:       rs.StartPage,
		EndPage:         rs.EndPage,
		SessionDate:     rs.SessionDate.UTC(),
		DurationMinutes: rs.DurationMinutes,
	}
}

func wishlistRecord(w entities.WishlistEntry) snapshot.WishlistRecord {
	rec := snapshot.WishlistRecord{
		ID:       refOf(w.ID),
		BookID:   refOf(w.BookID),
		Priority: w.Priority,
		Notes:    w.Notes,
		AddedAt:  timePtr(w.CreatedAt),
	}
	if w.Book.ID != 0 {
		rec.Title, rec.Authors, rec.ISBN13 = w.Book.Title, w.Book.Authors, w.Book.ISBN13
	}
	return rec
}

func collectionRecord(c entities.Collection) snapshot.CollectionRecord {
	members := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		members = append(members, refOf(item.OwnedBookID))
	}
	return snapshot.CollectionRecord{
		ID:           refOf(c.ID),
		Name:         c.Name,
		Description:  c.Description,
		OwnedBookIDs: members,
		CreatedAt:    timePtr(c.CreatedAt),
	}
}
