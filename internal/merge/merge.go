// Package merge reconciles an existing record with an incoming record known
// to describe the same entity.
//
// Precedence, field by field:
//   - scalars: the incoming value wins when present; nil pointers and empty
//     strings or lists are absent. A rating of 0 is a value.
//   - current page: the larger of the two.
//   - identity (ID, CreatedAt): always kept from existing.
//   - tags and collection membership: ordered union, existing first.
//
// Every function returns a new value and leaves both inputs untouched.
package merge

import (
	"slices"

	"github.com/mrlokans/shelfport/internal/snapshot"
)

// Book merges catalogue metadata.
func Book(existing, incoming snapshot.BookRecord) snapshot.BookRecord {
	return snapshot.BookRecord{
		ID:            existing.ID,
		Title:         pickString(existing.Title, incoming.Title),
		Authors:       pickList(existing.Authors, incoming.Authors),
		ISBN13:        pickStringPtr(existing.ISBN13, incoming.ISBN13),
		PageCount:     pickPtr(existing.PageCount, incoming.PageCount),
		Publisher:     pickStringPtr(existing.Publisher, incoming.Publisher),
		PublishedYear: pickPtr(existing.PublishedYear, incoming.PublishedYear),
		Description:   pickStringPtr(existing.Description, incoming.Description),
		Language:      pickStringPtr(existing.Language, incoming.Language),
		CoverURL:      pickStringPtr(existing.CoverURL, incoming.CoverURL),
		ExternalID:    pickStringPtr(existing.ExternalID, incoming.ExternalID),
		CreatedAt:     clonePtr(existing.CreatedAt),
	}
}

// OwnedBook merges shelf state. The book reference is identity and is kept.
func OwnedBook(existing, incoming snapshot.OwnedBookRecord) snapshot.OwnedBookRecord {
	status := existing.Status
	if incoming.Status != "" {
		status = incoming.Status
	}
	return snapshot.OwnedBookRecord{
		ID:          existing.ID,
		BookID:      pickString(existing.BookID, incoming.BookID),
		Title:       pickString(existing.Title, incoming.Title),
		Authors:     pickList(existing.Authors, incoming.Authors),
		ISBN13:      pickStringPtr(existing.ISBN13, incoming.ISBN13),
		Status:      status,
		CurrentPage: maxPtr(existing.CurrentPage, incoming.CurrentPage),
		Rating:      pickPtr(existing.Rating, incoming.Rating),
		Review:      pickStringPtr(existing.Review, incoming.Review),
		Tags:        union(existing.Tags, incoming.Tags),
		StartedAt:   pickPtr(existing.StartedAt, incoming.StartedAt),
		FinishedAt:  pickPtr(existing.FinishedAt, incoming.FinishedAt),
		CreatedAt:   clonePtr(existing.CreatedAt),
	}
}

// Wishlist merges a wishlist entry. AddedAt is the entry's creation time.
func Wishlist(existing, incoming snapshot.WishlistRecord) snapshot.WishlistRecord {
	return snapshot.WishlistRecord{
		ID:       existing.ID,
		BookID:   pickString(existing.BookID, incoming.BookID),
		Title:    pickString(existing.Title, incoming.Title),
		Authors:  pickList(existing.Authors, incoming.Authors),
		ISBN13:   pickStringPtr(existing.ISBN13, incoming.ISBN13),
		Priority: pickPtr(existing.Priority, incoming.Priority),
		Notes:    pickStringPtr(existing.Notes, incoming.Notes),
		AddedAt:  clonePtr(existing.AddedAt),
	}
}

// Collection merges a collection. Membership only grows.
func Collection(existing, incoming snapshot.CollectionRecord) snapshot.CollectionRecord {
	return snapshot.CollectionRecord{
		ID:           existing.ID,
		Name:         pickString(existing.Name, incoming.Name),
		Description:  pickStringPtr(existing.Description, incoming.Description),
		OwnedBookIDs: union(existing.OwnedBookIDs, incoming.OwnedBookIDs),
		CreatedAt:    clonePtr(existing.CreatedAt),
	}
}

// Profile merges profile fields. The username identifies the owner and is
// never replaced.
func Profile(existing, incoming snapshot.ProfileRecord) snapshot.ProfileRecord {
	username := existing.Username
	if username == "" {
		username = incoming.Username
	}
	return snapshot.ProfileRecord{
		Username:    username,
		DisplayName: pickStringPtr(existing.DisplayName, incoming.DisplayName),
		Email:       pickStringPtr(existing.Email, incoming.Email),
		Bio:         pickStringPtr(existing.Bio, incoming.Bio),
		ReadingGoal: pickPtr(existing.ReadingGoal, incoming.ReadingGoal),
	}
}

func pickString(existing, incoming string) string {
	if incoming != "" {
		return incoming
	}
	return existing
}

func pickStringPtr(existing, incoming *string) *string {
	if incoming != nil && *incoming != "" {
		return clonePtr(incoming)
	}
	return clonePtr(existing)
}

func pickPtr[T any](existing, incoming *T) *T {
	if incoming != nil {
		return clonePtr(incoming)
	}
	return clonePtr(existing)
}

func pickList(existing, incoming []string) []string {
	if len(incoming) > 0 {
		return slices.Clone(incoming)
	}
	return slices.Clone(existing)
}

func maxPtr(existing, incoming *int) *int {
	switch {
	case existing == nil:
		return clonePtr(incoming)
	case incoming == nil:
		return clonePtr(existing)
	default:
		v := max(*existing, *incoming)
		return &v
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// union appends the incoming values missing from existing, preserving order.
func union(existing, incoming []string) []string {
	if existing == nil && incoming == nil {
		return nil
	}
	out := make([]string, 0, len(existing)+len(incoming))
	seen := make(map[string]bool, len(existing)+len(incoming))
	for _, list := range [][]string{existing, incoming} {
		for _, v := range list {
			if seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
