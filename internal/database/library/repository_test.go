package library

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/shelfport/internal/database"
	"github.com/mrlokans/shelfport/internal/database/users"
	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/exporters"
	"github.com/mrlokans/shelfport/internal/formats"
	"github.com/mrlokans/shelfport/internal/importers"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

func setupTestRepo(t *testing.T) (*Repository, *gorm.DB, uint) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "library.db"), database.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	user, err := users.NewRepository(db.DB).CreateUser("reader", "")
	require.NoError(t, err)

	return NewRepository(db.DB), db.DB, user.ID
}

func librarySnapshot() snapshot.Snapshot {
	return snapshot.Snapshot{
		Metadata: snapshot.Metadata{SchemaVersion: snapshot.SchemaVersion, FormatTag: snapshot.FormatNative},
		Books: []snapshot.BookRecord{{
			ID:        "b1",
			Title:     "Dune",
			Authors:   []string{"Frank Herbert"},
			ISBN13:    snapshot.Ptr("9780441013593"),
			PageCount: snapshot.Ptr(412),
		}},
		OwnedBooks: []snapshot.OwnedBookRecord{{
			ID:          "ob1",
			BookID:      "b1",
			Status:      snapshot.StatusReading,
			CurrentPage: snapshot.Ptr(120),
			Tags:        []string{"sf"},
		}},
		ReadingSessions: []snapshot.ReadingSessionRecord{{
			ID:          "rs1",
			OwnedBookID: "ob1",
			StartPage:   100,
			EndPage:     120,
			SessionDate: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		}},
		Wishlist: []snapshot.WishlistRecord{{
			ID:       "w1",
			Title:    "Children of Dune",
			Authors:  []string{"Frank Herbert"},
			Priority: snapshot.Ptr(2),
		}},
		Collections: []snapshot.CollectionRecord{{
			ID:           "c1",
			Name:         "Desert",
			OwnedBookIDs: []string{"ob1"},
		}},
		Profile: &snapshot.ProfileRecord{Username: "reader", ReadingGoal: snapshot.Ptr(24)},
	}
}

type rowCounts struct {
	books, owned, sessions, wishlist, collections, items int64
}

func countRows(t *testing.T, db *gorm.DB) rowCounts {
	t.Helper()
	var c rowCounts
	require.NoError(t, db.Model(&entities.Book{}).Count(&c.books).Error)
	require.NoError(t, db.Model(&entities.OwnedBook{}).Count(&c.owned).Error)
	require.NoError(t, db.Model(&entities.ReadingSession{}).Count(&c.sessions).Error)
	require.NoError(t, db.Model(&entities.WishlistEntry{}).Count(&c.wishlist).Error)
	require.NoError(t, db.Model(&entities.Collection{}).Count(&c.collections).Error)
	require.NoError(t, db.Model(&entities.CollectionItem{}).Count(&c.items).Error)
	return c
}

func TestRepository_LoadState_OwnerNotFound(t *testing.T) {
	repo, _, _ := setupTestRepo(t)

	_, err := repo.LoadState(context.Background(), 999)
	assert.ErrorIs(t, err, snapshot.ErrOwnerNotFound)

	profile, err := repo.Profile(context.Background(), 999)
	require.NoError(t, err)
	assert.Nil(t, profile)
}

func TestRepository_ImportThenExport(t *testing.T) {
	repo, db, owner := setupTestRepo(t)
	ctx := context.Background()

	summary, err := importers.NewPipeline(repo, importers.Options{}).Import(ctx, owner, librarySnapshot())
	require.NoError(t, err)
	assert.Equal(t, snapshot.PhaseCommitted, summary.Phase)
	assert.Equal(t, 2, summary.Books.Added)
	assert.Equal(t, 1, summary.OwnedBooks.Added)
	assert.Equal(t, 1, summary.ReadingSessions.Added)
	assert.Equal(t, 1, summary.Wishlist.Added)
	assert.Equal(t, 1, summary.Collections.Added)

	assert.Equal(t, rowCounts{books: 2, owned: 1, sessions: 1, wishlist: 1, collections: 1, items: 1}, countRows(t, db))

	var book entities.Book
	require.NoError(t, db.Preload("Source").Where("title = ?", "Dune").First(&book).Error)
	require.NotNil(t, book.Source)
	assert.Equal(t, "native", book.Source.Name)

	out, err := exporters.NewSelector(repo).Export(ctx, owner, exporters.SelectAll(), nil)
	require.NoError(t, err)

	require.Len(t, out.Books, 2)
	require.Len(t, out.OwnedBooks, 1)
	ob := out.OwnedBooks[0]
	assert.Equal(t, out.Books[0].ID, ob.BookID)
	assert.Equal(t, "Dune", ob.Title)
	assert.Equal(t, []string{"Frank Herbert"}, ob.Authors)
	assert.Equal(t, snapshot.StatusReading, ob.Status)
	assert.Equal(t, 120, *ob.CurrentPage)
	assert.Equal(t, []string{"sf"}, ob.Tags)

	require.Len(t, out.ReadingSessions, 1)
	assert.Equal(t, ob.ID, out.ReadingSessions[0].OwnedBookID)
	assert.True(t, out.ReadingSessions[0].SessionDate.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))

	require.Len(t, out.Wishlist, 1)
	assert.Equal(t, "Children of Dune", out.Wishlist[0].Title)
	assert.Equal(t, 2, *out.Wishlist[0].Priority)

	require.Len(t, out.Collections, 1)
	assert.Equal(t, []string{ob.ID}, out.Collections[0].OwnedBookIDs)

	require.NotNil(t, out.Profile)
	assert.Equal(t, 24, *out.Profile.ReadingGoal)

	stats, err := repo.Stats(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats[snapshot.CategoryBooks])
	assert.Equal(t, int64(1), stats[snapshot.CategoryCollections])
}

func TestRepository_ImportIsIdempotent(t *testing.T) {
	repo, db, owner := setupTestRepo(t)
	ctx := context.Background()
	pipeline := importers.NewPipeline(repo, importers.Options{})

	_, err := pipeline.Import(ctx, owner, librarySnapshot())
	require.NoError(t, err)
	before := countRows(t, db)

	summary, err := pipeline.Import(ctx, owner, librarySnapshot())
	require.NoError(t, err)

	assert.Equal(t, 0, summary.TotalAdded())
	assert.Equal(t, 1, summary.ReadingSessions.Skipped)
	assert.Equal(t, before, countRows(t, db))
}

func TestRepository_NativeRoundTrip(t *testing.T) {
	repo, db, owner := setupTestRepo(t)
	ctx := context.Background()
	pipeline := importers.NewPipeline(repo, importers.Options{})
	codec := formats.NativeCodec{}

	_, err := pipeline.Import(ctx, owner, librarySnapshot())
	require.NoError(t, err)

	exported, err := exporters.NewSelector(repo).Export(ctx, owner, exporters.SelectAll(), nil)
	require.NoError(t, err)
	data, err := codec.Encode(exported)
	require.NoError(t, err)

	t.Run("same owner adds nothing", func(t *testing.T) {
		before := countRows(t, db)
		decoded, err := codec.Decode(data)
		require.NoError(t, err)

		summary, err := pipeline.Import(ctx, owner, decoded)
		require.NoError(t, err)
		assert.Equal(t, 0, summary.TotalAdded())
		assert.Empty(t, summary.Errors)
		assert.Equal(t, before, countRows(t, db))
	})

	t.Run("another owner gets a copy", func(t *testing.T) {
		other, err := users.NewRepository(db).CreateUser("other", "")
		require.NoError(t, err)
		decoded, err := codec.Decode(data)
		require.NoError(t, err)

		summary, err := pipeline.Import(ctx, other.ID, decoded)
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Books.Added)
		assert.Equal(t, 1, summary.OwnedBooks.Added)
		assert.Equal(t, 1, summary.ReadingSessions.Added)
		assert.Equal(t, 1, summary.Collections.Added)

		copied, err := exporters.NewSelector(repo).Export(ctx, other.ID, exporters.SelectAll(), nil)
		require.NoError(t, err)
		require.Len(t, copied.OwnedBooks, 1)
		assert.Equal(t, "Dune", copied.OwnedBooks[0].Title)
		assert.Equal(t, []string{copied.OwnedBooks[0].ID}, copied.Collections[0].OwnedBookIDs)
		assert.Equal(t, "other", copied.Profile.Username, "profile username is not overwritten")
	})
}

func TestRepository_Apply_RollsBackOnFailure(t *testing.T) {
	repo, db, owner := setupTestRepo(t)

	creates := 0
	err := db.Callback().Create().Before("gorm:create").Register("test:fail_after_three", func(tx *gorm.DB) {
		creates++
		if creates > 3 {
			_ = tx.AddError(errors.New("disk I/O error"))
		}
	})
	require.NoError(t, err)

	summary, err := importers.NewPipeline(repo, importers.Options{}).Import(context.Background(), owner, librarySnapshot())

	assert.ErrorIs(t, err, snapshot.ErrPersistenceFailure)
	assert.Contains(t, err.Error(), "disk I/O error")
	assert.Equal(t, snapshot.PhaseRolledBack, summary.Phase)
	assert.False(t, summary.Success)
	assert.Equal(t, 0, summary.TotalAdded())
	assert.Equal(t, rowCounts{}, countRows(t, db))

	var user entities.User
	require.NoError(t, db.First(&user, owner).Error)
	assert.Nil(t, user.ReadingGoal, "profile update rolled back")
}

func TestRepository_CollectionMembershipReplaced(t *testing.T) {
	repo, db, owner := setupTestRepo(t)
	ctx := context.Background()
	pipeline := importers.NewPipeline(repo, importers.Options{})

	_, err := pipeline.Import(ctx, owner, librarySnapshot())
	require.NoError(t, err)

	second := snapshot.Snapshot{
		Metadata: snapshot.Metadata{SchemaVersion: snapshot.SchemaVersion},
		OwnedBooks: []snapshot.OwnedBookRecord{{
			ID:      "ob2",
			Title:   "Hyperion",
			Authors: []string{"Dan Simmons"},
			Status:  snapshot.StatusCompleted,
		}},
		Collections: []snapshot.CollectionRecord{{
			Name:         "desert ",
			OwnedBookIDs: []string{"ob2", "ob2"},
		}},
	}
	summary, err := pipeline.Import(ctx, owner, second)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Collections.Updated)

	cols, err := repo.Collections(ctx, owner)
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Len(t, cols[0].OwnedBookIDs, 2)

	var items []entities.CollectionItem
	require.NoError(t, db.Order("position").Find(&items).Error)
	require.Len(t, items, 2)
	assert.Equal(t, []int{0, 1}, []int{items[0].Position, items[1].Position})
}

func TestRepository_OwnersAreIsolated(t *testing.T) {
	repo, db, owner := setupTestRepo(t)
	ctx := context.Background()

	_, err := importers.NewPipeline(repo, importers.Options{}).Import(ctx, owner, librarySnapshot())
	require.NoError(t, err)

	other, err := users.NewRepository(db).CreateUser("other", "")
	require.NoError(t, err)

	state, err := repo.LoadState(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, state.Books)
	assert.Empty(t, state.OwnedBooks)
	assert.Equal(t, "other", state.Profile.Username)

	// A stored id of another owner cannot be updated.
	err = repo.Apply(ctx, other.ID, &importers.Plan{
		Books: []importers.BookOp{{Ref: importers.ExistingRef(1), Record: snapshot.BookRecord{Title: "Stolen"}}},
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	var book entities.Book
	require.NoError(t, db.First(&book, 1).Error)
	assert.Equal(t, "Dune", book.Title)
}
