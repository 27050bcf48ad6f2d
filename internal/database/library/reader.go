package library

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// Profile returns the owner's profile, or nil when the owner does not exist.
func (r *Repository) Profile(ctx context.Context, ownerID uint) (*snapshot.ProfileRecord, error) {
	user, err := findUser(r.db.WithContext(ctx), ownerID)
	if err != nil || user == nil {
		return nil, err
	}
	p := profileRecord(*user)
	return &p, nil
}

func (r *Repository) Books(ctx context.Context, ownerID uint) ([]snapshot.BookRecord, error) {
	var books []entities.Book
	if err := r.db.WithContext(ctx).Where("user_id = ?", ownerID).Order("id").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to load books: %w", err)
	}
	out := make([]snapshot.BookRecord, 0, len(books))
	for _, b := range books {
		out = append(out, bookRecord(b))
	}
	return out, nil
}

// OwnedBooks returns the owner's shelf with each book's identity inline.
func (r *Repository) OwnedBooks(ctx context.Context, ownerID uint) ([]snapshot.OwnedBookRecord, error) {
	var owned []entities.OwnedBook
	err := r.db.WithContext(ctx).Preload("Book").
		Where("user_id = ?", ownerID).Order("id").Find(&owned).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load owned books: %w", err)
	}
	out := make([]snapshot.OwnedBookRecord, 0, len(owned))
	for _, ob := range owned {
		out = append(out, ownedBookRecord(ob))
	}
	return out, nil
}

// ReadingSessions returns the owner's sessions in chronological order.
func (r *Repository) ReadingSessions(ctx context.Context, ownerID uint) ([]snapshot.ReadingSessionRecord, error) {
	var sessions []entities.ReadingSession
	err := r.db.WithContext(ctx).Where("user_id = ?", ownerID).
		Order("session_date ASC, id ASC").Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load reading sessions: %w", err)
	}
	out := make([]snapshot.ReadingSessionRecord, 0, len(sessions))
	for _, rs := range sessions {
		out = append(out, sessionRecord(rs))
	}
	return out, nil
}

func (r *Repository) Wishlist(ctx context.Context, ownerID uint) ([]snapshot.WishlistRecord, error) {
	var entries []entities.WishlistEntry
	err := r.db.WithContext(ctx).Preload("Book").
		Where("user_id = ?", ownerID).Order("id").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}
	out := make([]snapshot.WishlistRecord, 0, len(entries))
	for _, w := range entries {
		out = append(out, wishlistRecord(w))
	}
	return out, nil
}

// Collections returns the owner's collections with members in position order.
func (r *Repository) Collections(ctx context.Context, ownerID uint) ([]snapshot.CollectionRecord, error) {
	var collections []entities.Collection
	err := r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Where("user_id = ?", ownerID).Order("id").Find(&collections).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load collections: %w", err)
	}
	out := make([]snapshot.CollectionRecord, 0, len(collections))
	for _, c := range collections {
		out = append(out, collectionRecord(c))
	}
	return out, nil
}

// Stats counts the owner's rows per category.
func (r *Repository) Stats(ctx context.Context, ownerID uint) (map[snapshot.Category]int64, error) {
	db := r.db.WithContext(ctx)
	models := map[snapshot.Category]any{
		snapshot.CategoryBooks:           &entities.Book{},
		snapshot.CategoryOwnedBooks:      &entities.OwnedBook{},
		snapshot.CategoryReadingSessions: &entities.ReadingSession{},
		snapshot.CategoryWishlist:        &entities.WishlistEntry{},
		snapshot.CategoryCollections:     &entities.Collection{},
	}
	stats := make(map[snapshot.Category]int64, len(models))
	for category, model := range models {
		var n int64
		if err := db.Model(model).Where("user_id = ?", ownerID).Count(&n).Error; err != nil {
			return nil, err
		}
		stats[category] = n
	}
	return stats, nil
}
