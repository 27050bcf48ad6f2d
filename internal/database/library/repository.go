// Package library stores an owner's books, shelves, reading sessions,
// wishlist, collections and profile.
//
// # Interface Implementation
//
//	var _ importers.Store = (*Repository)(nil)
//	var _ exporters.Reader = (*Repository)(nil)
//
// # Usage
//
//	repo := library.NewRepository(db)
//	pipeline := importers.NewPipeline(repo, importers.Options{})
//	selector := exporters.NewSelector(repo)
package library

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/exporters"
	"github.com/mrlokans/shelfport/internal/importers"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

var (
	_ importers.Store  = (*Repository)(nil)
	_ exporters.Reader = (*Repository)(nil)
)

// Repository handles library database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new library repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// LoadState reads the owner's whole library. Cross references are stored
// row ids; owned-book and wishlist records carry no inline book identity.
func (r *Repository) LoadState(ctx context.Context, ownerID uint) (*importers.State, error) {
	db := r.db.WithContext(ctx)

	user, err := findUser(db, ownerID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, snapshot.NewError(snapshot.KindOwnerNotFound, "owner %d not found", ownerID)
	}

	state := &importers.State{Profile: profileRecord(*user)}

	var books []entities.Book
	if err := db.Where("user_id = ?", ownerID).Order("id").Find(&books).Error; err != nil {
		return nil, fmt.Errorf("failed to load books: %w", err)
	}
	for _, b := range books {
		state.Books = append(state.Books, bookRecord(b))
	}

	var owned []entities.OwnedBook
	if err := db.Where("user_id = ?", ownerID).Order("id").Find(&owned).Error; err != nil {
		return nil, fmt.Errorf("failed to load owned books: %w", err)
	}
	for _, ob := range owned {
		state.OwnedBooks = append(state.OwnedBooks, ownedBookRecord(ob))
	}

	if state.ReadingSessions, err = r.ReadingSessions(ctx, ownerID); err != nil {
		return nil, err
	}

	var wishlist []entities.WishlistEntry
	if err := db.Where("user_id = ?", ownerID).Order("id").Find(&wishlist).Error; err != nil {
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}
	for _, w := range wishlist {
		state.Wishlist = append(state.Wishlist, wishlistRecord(w))
	}

	if state.Collections, err = r.Collections(ctx, ownerID); err != nil {
		return nil, err
	}

	return state, nil
}

// Apply writes the plan in a single transaction. Pending refs are mapped to
// the ids of the rows created for them as the plan is walked in order.
func (r *Repository) Apply(ctx context.Context, ownerID uint, plan *importers.Plan) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w := &writer{tx: tx, ownerID: ownerID, ids: make(map[importers.Ref]uint)}
		w.sourceID = lookupSource(tx, plan.Source)

		for _, op := range plan.Books {
			if err := w.book(op); err != nil {
				return err
			}
		}
		for _, op := range plan.OwnedBooks {
			if err := w.ownedBook(op); err != nil {
				return err
			}
		}
		for _, op := range plan.ReadingSessions {
			if err := w.session(op); err != nil {
				return err
			}
		}
		for _, op := range plan.Wishlist {
			if err := w.wishlist(op); err != nil {
				return err
			}
		}
		for _, op := range plan.Collections {
			if err := w.collection(op); err != nil {
				return err
			}
		}
		if plan.Profile != nil {
			return w.profile(*plan.Profile)
		}
		return nil
	})
}

func findUser(db *gorm.DB, ownerID uint) (*entities.User, error) {
	var user entities.User
	err := db.First(&user, ownerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load owner: %w", err)
	}
	return &user, nil
}

// lookupSource returns the id of the seeded source for a format, falling
// back to "manual". Missing sources are not an error.
func lookupSource(tx *gorm.DB, format snapshot.Format) *uint {
	name := string(format)
	if name == "" {
		name = "manual"
	}
	var source entities.Source
	if err := tx.Where("name = ?", name).First(&source).Error; err != nil {
		return nil
	}
	return &source.ID
}

type writer struct {
	tx       *gorm.DB
	ownerID  uint
	sourceID *uint
	ids      map[importers.Ref]uint
}

func (w *writer) resolve(ref importers.Ref) (uint, error) {
	if id, ok := w.ids[ref]; ok {
		return id, nil
	}
	if id, ok := ref.ID(); ok {
		return id, nil
	}
	return 0, fmt.Errorf("unresolved reference %q", ref)
}

// load fetches an owner's row by ref into dest.
func (w *writer) load(ref importers.Ref, dest any) error {
	id, ok := ref.ID()
	if !ok {
		return fmt.Errorf("cannot update pending row %q", ref)
	}
	if err := w.tx.Where("id = ? AND user_id = ?", id, w.ownerID).First(dest).Error; err != nil {
		return fmt.Errorf("failed to load row %s: %w", ref, err)
	}
	return nil
}

func (w *writer) save(row any) error {
	return w.tx.Omit(clause.Associations).Save(row).Error
}

func (w *writer) create(ref importers.Ref, row any, id func() uint) error {
	if err := w.tx.Omit(clause.Associations).Create(row).Error; err != nil {
		return err
	}
	w.ids[ref] = id()
	return nil
}

func (w *writer) book(op importers.BookOp) error {
	if !op.Create {
		var row entities.Book
		if err := w.load(op.Ref, &row); err != nil {
			return err
		}
		applyBook(&row, op.Record)
		return w.save(&row)
	}

	row := entities.Book{UserID: w.ownerID, SourceID: w.sourceID}
	applyBook(&row, op.Record)
	if op.Record.CreatedAt != nil {
		row.CreatedAt = *op.Record.CreatedAt
	}
	if err := w.create(op.Ref, &row, func() uint { return row.ID }); err != nil {
		return fmt.Errorf("failed to create book %q: %w", op.Record.Title, err)
	}
	return nil
}

func (w *writer) ownedBook(op importers.OwnedBookOp) error {
	if !op.Create {
		var row entities.OwnedBook
		if err := w.load(op.Ref, &row); err != nil {
			return err
		}
		applyOwnedBook(&row, op.Record)
		return w.save(&row)
	}

	bookID, err := w.resolve(op.BookRef)
	if err != nil {
		return err
	}
	row := entities.OwnedBook{UserID: w.ownerID, BookID: bookID}
	applyOwnedBook(&row, op.Record)
	if op.Record.CreatedAt != nil {
		row.CreatedAt = *op.Record.CreatedAt
	}
	if err := w.create(op.Ref, &row, func() uint { return row.ID }); err != nil {
		return fmt.Errorf("failed to create owned book: %w", err)
	}
	return nil
}

func (w *writer) session(op importers.SessionOp) error {
	ownedID, err := w.resolve(op.OwnedBookRef)
	if err != nil {
		return err
	}
	row := entities.ReadingSession{
		UserID:          w.ownerID,
		OwnedBookID:     ownedID,
		StartPage:       op.Record.StartPage,
		EndPage:         op.Record.EndPage,
		SessionDate:     op.Record.SessionDate.UTC(),
		DurationMinutes: op.Record.DurationMinutes,
	}
	if err := w.tx.Omit(clause.Associations).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to create reading session: %w", err)
	}
	return nil
}

func (w *writer) wishlist(op importers.WishlistOp) error {
	var row entities.WishlistEntry
	if !op.Create {
		if err := w.load(op.Ref, &row); err != nil {
			return err
		}
	} else {
		bookID, err := w.resolve(op.BookRef)
		if err != nil {
			return err
		}
		row = entities.WishlistEntry{UserID: w.ownerID, BookID: bookID}
		if op.Record.AddedAt != nil {
			row.CreatedAt = *op.Record.AddedAt
		}
	}
	row.Priority = op.Record.Priority
	row.Notes = op.Record.Notes

	if !op.Create {
		return w.save(&row)
	}
	if err := w.create(op.Ref, &row, func() uint { return row.ID }); err != nil {
		return fmt.Errorf("failed to create wishlist entry: %w", err)
	}
	return nil
}

// collection writes the collection row and replaces its membership.
func (w *writer) collection(op importers.CollectionOp) error {
	var row entities.Collection
	if !op.Create {
		if err := w.load(op.Ref, &row); err != nil {
			return err
		}
	} else {
		row = entities.Collection{UserID: w.ownerID}
		if op.Record.CreatedAt != nil {
			row.CreatedAt = *op.Record.CreatedAt
		}
	}
	row.Name = op.Record.Name
	row.Description = op.Record.Description

	if op.Create {
		if err := w.create(op.Ref, &row, func() uint { return row.ID }); err != nil {
			return fmt.Errorf("failed to create collection %q: %w", row.Name, err)
		}
	} else {
		if err := w.save(&row); err != nil {
			return err
		}
		if err := w.tx.Where("collection_id = ?", row.ID).Delete(&entities.CollectionItem{}).Error; err != nil {
			return fmt.Errorf("failed to clear collection %q: %w", row.Name, err)
		}
	}

	seen := make(map[uint]bool, len(op.Members))
	items := make([]entities.CollectionItem, 0, len(op.Members))
	for _, ref := range op.Members {
		ownedID, err := w.resolve(ref)
		if err != nil {
			return err
		}
		if seen[ownedID] {
			continue
		}
		seen[ownedID] = true
		items = append(items, entities.CollectionItem{CollectionID: row.ID, OwnedBookID: ownedID, Position: len(items)})
	}
	if len(items) == 0 {
		return nil
	}
	if err := w.tx.Create(&items).Error; err != nil {
		return fmt.Errorf("failed to store collection %q members: %w", row.Name, err)
	}
	return nil
}

func (w *writer) profile(p snapshot.ProfileRecord) error {
	updates := map[string]any{
		"display_name": p.DisplayName,
		"email":        p.Email,
		"bio":          p.Bio,
		"reading_goal": p.ReadingGoal,
	}
	if p.Username != "" {
		updates["username"] = p.Username
	}
	result := w.tx.Model(&entities.User{}).Where("id = ?", w.ownerID).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update profile: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return snapshot.NewError(snapshot.KindOwnerNotFound, "owner %d not found", w.ownerID)
	}
	return nil
}
