package importers

import (
	"context"
	"errors"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/shelfport/internal/formats"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// memStore is an in-memory Store for a single owner. Apply works on a copy
// and swaps it in only when every write succeeded.
type memStore struct {
	ownerID   uint
	state     State
	nextID    uint
	failAfter int // fail on write number failAfter+1; negative disables
	applies   int
}

func newMemStore() *memStore {
	return &memStore{ownerID: 1, failAfter: -1, state: State{Profile: snapshot.ProfileRecord{Username: "reader"}}}
}

func (m *memStore) LoadState(_ context.Context, ownerID uint) (*State, error) {
	if ownerID != m.ownerID {
		return nil, snapshot.NewError(snapshot.KindOwnerNotFound, "owner %d not found", ownerID)
	}
	s := m.clone()
	return &s, nil
}

func (m *memStore) clone() State {
	return State{
		Profile:         m.state.Profile,
		Books:           slices.Clone(m.state.Books),
		OwnedBooks:      slices.Clone(m.state.OwnedBooks),
		ReadingSessions: slices.Clone(m.state.ReadingSessions),
		Wishlist:        slices.Clone(m.state.Wishlist),
		Collections:     slices.Clone(m.state.Collections),
	}
}

func (m *memStore) Apply(_ context.Context, _ uint, plan *Plan) error {
	m.applies++
	work := m.clone()
	ids := make(map[Ref]string)
	resolve := func(r Ref) string {
		if id, ok := ids[r]; ok {
			return id
		}
		return string(r)
	}
	writes := 0
	write := func() error {
		writes++
		if m.failAfter >= 0 && writes > m.failAfter {
			return errors.New("disk I/O error")
		}
		return nil
	}
	newID := func(r Ref) string {
		m.nextID++
		id := strconv.FormatUint(uint64(m.nextID), 10)
		ids[r] = id
		return id
	}

	for _, op := range plan.Books {
		if err := write(); err != nil {
			return err
		}
		rec := op.Record
		if op.Create {
			rec.ID = newID(op.Ref)
			work.Books = append(work.Books, rec)
			continue
		}
		rec.ID = string(op.Ref)
		replace(work.Books, rec, func(b snapshot.BookRecord) string { return b.ID })
	}
	for _, op := range plan.OwnedBooks {
		if err := write(); err != nil {
			return err
		}
		rec := op.Record
		rec.BookID = resolve(op.BookRef)
		if op.Create {
			rec.ID = newID(op.Ref)
			work.OwnedBooks = append(work.OwnedBooks, rec)
			continue
		}
		rec.ID = string(op.Ref)
		replace(work.OwnedBooks, rec, func(b snapshot.OwnedBookRecord) string { return b.ID })
	}
	for _, op := range plan.ReadingSessions {
		if err := write(); err != nil {
			return err
		}
		rec := op.Record
		rec.OwnedBookID = resolve(op.OwnedBookRef)
		rec.ID = newID(Ref("session"))
		work.ReadingSessions = append(work.ReadingSessions, rec)
	}
	for _, op := range plan.Wishlist {
		if err := write(); err != nil {
			return err
		}
		rec := op.Record
		rec.BookID = resolve(op.BookRef)
		if op.Create {
			rec.ID = newID(op.Ref)
			work.Wishlist = append(work.Wishlist, rec)
			continue
		}
		rec.ID = string(op.Ref)
		replace(work.Wishlist, rec, func(w snapshot.WishlistRecord) string { return w.ID })
	}
	for _, op := range plan.Collections {
		if err := write(); err != nil {
			return err
		}
		rec := op.Record
		rec.OwnedBookIDs = nil
		for _, member := range op.Members {
			rec.OwnedBookIDs = append(rec.OwnedBookIDs, resolve(member))
		}
		if op.Create {
			rec.ID = newID(op.Ref)
			work.Collections = append(work.Collections, rec)
			continue
		}
		rec.ID = string(op.Ref)
		replace(work.Collections, rec, func(c snapshot.CollectionRecord) string { return c.ID })
	}
	if plan.Profile != nil {
		if err := write(); err != nil {
			return err
		}
		work.Profile = *plan.Profile
	}

	m.state = work
	return nil
}

func replace[T any](list []T, rec T, id func(T) string) {
	for i := range list {
		if id(list[i]) == id(rec) {
			list[i] = rec
			return
		}
	}
}

func fullSnapshot() snapshot.Snapshot {
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
			ID:      "w1",
			Title:   "Children of Dune",
			Authors: []string{"Frank Herbert"},
		}},
		Collections: []snapshot.CollectionRecord{{
			ID:           "c1",
			Name:         "Desert",
			OwnedBookIDs: []string{"ob1"},
		}},
		Profile: &snapshot.ProfileRecord{Username: "reader", ReadingGoal: snapshot.Ptr(24)},
	}
}

func TestPipeline_Import_InlineTitleCreatesBook(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})

	input := `{"metadata":{"schemaVersion":1},"userBooks":[{"title":"Test Book","status":"reading","currentPage":100}]}`
	snap, err := formats.NativeCodec{}.Decode([]byte(input))
	require.NoError(t, err)

	summary, err := pipeline.Import(context.Background(), 1, snap)

	require.NoError(t, err)
	assert.True(t, summary.Success)
	assert.Equal(t, snapshot.PhaseCommitted, summary.Phase)
	assert.Equal(t, 1, summary.Books.Added)
	assert.Equal(t, 1, summary.OwnedBooks.Added)
	assert.Empty(t, summary.Errors)

	require.Len(t, store.state.Books, 1)
	assert.Equal(t, "Test Book", store.state.Books[0].Title)
	require.Len(t, store.state.OwnedBooks, 1)
	assert.Equal(t, store.state.Books[0].ID, store.state.OwnedBooks[0].BookID)
	assert.Equal(t, 100, *store.state.OwnedBooks[0].CurrentPage)
}

func TestPipeline_Import_FullSnapshot(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})

	summary, err := pipeline.Import(context.Background(), 1, fullSnapshot())
	require.NoError(t, err)

	assert.Equal(t, snapshot.CategoryCounts{Added: 2}, summary.Books, "Dune plus the wishlisted book")
	assert.Equal(t, snapshot.CategoryCounts{Added: 1}, summary.OwnedBooks)
	assert.Equal(t, snapshot.CategoryCounts{Added: 1}, summary.ReadingSessions)
	assert.Equal(t, snapshot.CategoryCounts{Added: 1}, summary.Wishlist)
	assert.Equal(t, snapshot.CategoryCounts{Added: 1}, summary.Collections)
	assert.Equal(t, snapshot.CategoryCounts{Updated: 1}, summary.Profile)

	owned := store.state.OwnedBooks[0]
	assert.Equal(t, []string{owned.ID}, store.state.Collections[0].OwnedBookIDs)
	assert.Equal(t, owned.ID, store.state.ReadingSessions[0].OwnedBookID)
	assert.Equal(t, 24, *store.state.Profile.ReadingGoal)
	assert.Equal(t, "reader", store.state.Profile.Username)
}

func TestPipeline_Import_Idempotent(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})
	ctx := context.Background()

	_, err := pipeline.Import(ctx, 1, fullSnapshot())
	require.NoError(t, err)
	before := store.clone()

	second, err := pipeline.Import(ctx, 1, fullSnapshot())
	require.NoError(t, err)

	assert.Equal(t, 0, second.TotalAdded())
	assert.Equal(t, 1, second.ReadingSessions.Skipped)
	assert.Empty(t, second.Errors)
	assert.Len(t, store.state.Books, len(before.Books))
	assert.Len(t, store.state.OwnedBooks, len(before.OwnedBooks))
	assert.Len(t, store.state.ReadingSessions, len(before.ReadingSessions))
	assert.Len(t, store.state.Wishlist, len(before.Wishlist))
	assert.Len(t, store.state.Collections, len(before.Collections))
}

func TestPipeline_Import_ISBNMatchUpdatesOwnedBook(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})
	ctx := context.Background()

	_, err := pipeline.Import(ctx, 1, snapshot.Snapshot{
		Books: []snapshot.BookRecord{{ID: "b1", Title: "Dune", ISBN13: snapshot.Ptr("9780441013593"), PageCount: snapshot.Ptr(412)}},
		OwnedBooks: []snapshot.OwnedBookRecord{{
			BookID: "b1", Status: snapshot.StatusReading,
			Rating: snapshot.Ptr(3), Review: snapshot.Ptr("ok"), CurrentPage: snapshot.Ptr(120),
		}},
	})
	require.NoError(t, err)

	summary, err := pipeline.Import(ctx, 1, snapshot.Snapshot{
		OwnedBooks: []snapshot.OwnedBookRecord{{
			Title: "Dune (Deluxe Edition)", ISBN13: snapshot.Ptr("978-0-441-01359-3"),
			Rating: snapshot.Ptr(5), Review: snapshot.Ptr("great"), CurrentPage: snapshot.Ptr(80),
		}},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.TotalUpdated())
	assert.Equal(t, 0, summary.TotalAdded())
	assert.Equal(t, 1, summary.OwnedBooks.Updated)

	require.Len(t, store.state.Books, 1)
	require.Len(t, store.state.OwnedBooks, 1)
	owned := store.state.OwnedBooks[0]
	assert.Equal(t, 120, *owned.CurrentPage)
	assert.Equal(t, 5, *owned.Rating)
	assert.Equal(t, "great", *owned.Review)
}

func TestPipeline_Import_InlineIdentityRespectsPageCount(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})
	ctx := context.Background()

	_, err := pipeline.Import(ctx, 1, snapshot.Snapshot{
		Books: []snapshot.BookRecord{{
			ID: "b1", Title: "Dune", Authors: []string{"Frank Herbert"},
			ISBN13: snapshot.Ptr("9780441013593"), PageCount: snapshot.Ptr(412),
		}},
		OwnedBooks: []snapshot.OwnedBookRecord{{BookID: "b1", Status: snapshot.StatusReading, CurrentPage: snapshot.Ptr(120)}},
	})
	require.NoError(t, err)

	decode := func(rows string) snapshot.Snapshot {
		snap, err := formats.CSVCodec{}.Decode([]byte("Title,Authors,Status,CurrentPage,Rating,Review\n" + rows))
		require.NoError(t, err)
		return snap
	}

	summary, err := pipeline.Import(ctx, 1, decode("Dune,Frank Herbert,reading,999,3,\n"))
	require.NoError(t, err)
	assert.Equal(t, snapshot.CategoryCounts{Skipped: 1}, summary.OwnedBooks)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, snapshot.CategoryOwnedBooks, summary.Errors[0].Category)
	assert.Equal(t, "currentPage", summary.Errors[0].Field)
	assert.Equal(t, snapshot.KindValidation, summary.Errors[0].Kind)

	require.Len(t, store.state.OwnedBooks, 1)
	assert.Equal(t, 120, *store.state.OwnedBooks[0].CurrentPage)
	assert.Nil(t, store.state.OwnedBooks[0].Rating)

	summary, err = pipeline.Import(ctx, 1, decode("Dune,Frank Herbert,reading,412,3,\n"))
	require.NoError(t, err)
	assert.Empty(t, summary.Errors)
	assert.Equal(t, 1, summary.OwnedBooks.Updated)
	assert.Equal(t, 412, *store.state.OwnedBooks[0].CurrentPage)
}

func TestPipeline_Import_GoodreadsRow(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})

	input := "Title,Author,My Rating,Date Read,Book Id\n" +
		`"The Great Gatsby","F. Scott Fitzgerald",5,"2024/01/15",12345` + "\n"
	snap, err := formats.GoodreadsCodec{}.Decode([]byte(input))
	require.NoError(t, err)

	summary, err := pipeline.Import(context.Background(), 1, snap)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.OwnedBooks.Added)
	assert.Equal(t, 1, summary.ReadingSessions.Added)
	require.Len(t, store.state.OwnedBooks, 1)
	assert.Equal(t, 5, *store.state.OwnedBooks[0].Rating)
	require.Len(t, store.state.ReadingSessions, 1)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), store.state.ReadingSessions[0].SessionDate)
}

func TestPipeline_Import_RollsBackOnStoreFailure(t *testing.T) {
	store := newMemStore()
	store.failAfter = 3
	pipeline := NewPipeline(store, Options{})

	summary, err := pipeline.Import(context.Background(), 1, fullSnapshot())

	require.Error(t, err)
	assert.ErrorIs(t, err, snapshot.ErrPersistenceFailure)
	assert.False(t, summary.Success)
	assert.Equal(t, snapshot.PhaseRolledBack, summary.Phase)
	assert.Equal(t, 0, summary.TotalAdded())

	assert.Empty(t, store.state.Books)
	assert.Empty(t, store.state.OwnedBooks)
	assert.Empty(t, store.state.ReadingSessions)
	assert.Empty(t, store.state.Wishlist)
	assert.Empty(t, store.state.Collections)
}

func TestPipeline_Import_OwnerNotFound(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})

	summary, err := pipeline.Import(context.Background(), 42, fullSnapshot())

	assert.ErrorIs(t, err, snapshot.ErrOwnerNotFound)
	assert.False(t, summary.Success)
	assert.Equal(t, 0, store.applies)
}

func TestPipeline_Import_PerRecordValidation(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})
	started := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	snap := snapshot.Snapshot{
		Books: []snapshot.BookRecord{
			{ID: "b0", Title: ""},
			{ID: "b1", Title: "Short Book", PageCount: snapshot.Ptr(100)},
		},
		OwnedBooks: []snapshot.OwnedBookRecord{
			{ID: "ob0", BookID: "b1", Rating: snapshot.Ptr(7)},
			{ID: "ob1", BookID: "b1", CurrentPage: snapshot.Ptr(150)},
			{ID: "ob2", Title: "Dated", StartedAt: &started, FinishedAt: snapshot.Ptr(started.AddDate(0, 0, -1))},
			{ID: "ob3", BookID: "missing"},
			{ID: "ob4", BookID: "b1", CurrentPage: snapshot.Ptr(40)},
		},
		ReadingSessions: []snapshot.ReadingSessionRecord{
			{ID: "rs0", OwnedBookID: "ob4", StartPage: 50, EndPage: 10, SessionDate: started},
			{ID: "rs1", OwnedBookID: "ob9", StartPage: 0, EndPage: 10, SessionDate: started},
			{ID: "rs2", OwnedBookID: "ob4", StartPage: 0, EndPage: 40, SessionDate: started},
		},
		Collections: []snapshot.CollectionRecord{
			{ID: "c0", Name: "Broken", OwnedBookIDs: []string{"ob0"}},
		},
	}

	summary, err := pipeline.Import(context.Background(), 1, snap)
	require.NoError(t, err)
	assert.True(t, summary.Success)

	type loc struct {
		category snapshot.Category
		index    int
		field    string
	}
	var got []loc
	for _, e := range summary.Errors {
		assert.Equal(t, snapshot.KindValidation, e.Kind)
		got = append(got, loc{e.Category, e.Index, e.Field})
	}
	assert.Equal(t, []loc{
		{snapshot.CategoryBooks, 0, "title"},
		{snapshot.CategoryOwnedBooks, 0, "rating"},
		{snapshot.CategoryOwnedBooks, 1, "currentPage"},
		{snapshot.CategoryOwnedBooks, 2, "finishedAt"},
		{snapshot.CategoryOwnedBooks, 3, "bookId"},
		{snapshot.CategoryReadingSessions, 1, "userBookId"},
		{snapshot.CategoryCollections, 0, "userBookIds"},
	}, got)

	assert.Equal(t, snapshot.CategoryCounts{Added: 1, Skipped: 1}, summary.Books)
	assert.Equal(t, snapshot.CategoryCounts{Added: 1, Skipped: 4}, summary.OwnedBooks)
	assert.Equal(t, snapshot.CategoryCounts{Added: 1, Skipped: 2}, summary.ReadingSessions)
	assert.Equal(t, snapshot.CategoryCounts{Skipped: 1}, summary.Collections)

	require.Len(t, store.state.OwnedBooks, 1)
	assert.Equal(t, snapshot.StatusWantToRead, store.state.OwnedBooks[0].Status)
	require.Len(t, store.state.ReadingSessions, 1)
	assert.Equal(t, 40, store.state.ReadingSessions[0].EndPage)
}

func TestPipeline_Import_FoldsRowNotes(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})

	input := "Title,Author,My Rating,Date Read,Book Id\n" +
		"Unread,Someone,0,,1\n" +
		",Nobody,3,2024/01/01,2\n"
	snap, err := formats.GoodreadsCodec{}.Decode([]byte(input))
	require.NoError(t, err)

	summary, err := pipeline.Import(context.Background(), 1, snap)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.ReadingSessions.Skipped)
	assert.Equal(t, 0, summary.ReadingSessions.Added)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, snapshot.CategoryBooks, summary.Errors[0].Category)
	assert.Equal(t, "row 2", summary.Errors[0].RecordRef)
	assert.Equal(t, 1, summary.OwnedBooks.Added)
}

func TestPipeline_Import_DuplicatesWithinUpload(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})

	summary, err := pipeline.Import(context.Background(), 1, snapshot.Snapshot{
		OwnedBooks: []snapshot.OwnedBookRecord{
			{Title: "Solaris", Authors: []string{"Stanisław Lem"}, CurrentPage: snapshot.Ptr(10), Tags: []string{"sf"}},
			{Title: "solaris ", Authors: []string{"stanisław lem"}, CurrentPage: snapshot.Ptr(30), Tags: []string{"polish"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, snapshot.CategoryCounts{Added: 1}, summary.Books)
	assert.Equal(t, snapshot.CategoryCounts{Added: 1, Updated: 1}, summary.OwnedBooks)
	require.Len(t, store.state.OwnedBooks, 1)
	assert.Equal(t, 30, *store.state.OwnedBooks[0].CurrentPage)
	assert.Equal(t, []string{"sf", "polish"}, store.state.OwnedBooks[0].Tags)
}

func TestPipeline_DryRun(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})

	summary, err := pipeline.DryRun(context.Background(), 1, fullSnapshot())
	require.NoError(t, err)

	assert.True(t, summary.Success)
	assert.Equal(t, snapshot.PhaseDryRun, summary.Phase)
	assert.Equal(t, 2, summary.Books.Added)
	assert.Equal(t, 0, store.applies)
	assert.Empty(t, store.state.Books)
}

func TestPipeline_Import_CancelledBeforeStart(t *testing.T) {
	store := newMemStore()
	pipeline := NewPipeline(store, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pipeline.Import(ctx, 1, fullSnapshot())

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.applies)
}

func TestPipeline_FuzzyThreshold(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	_, err := NewPipeline(store, Options{}).Import(ctx, 1, snapshot.Snapshot{
		Books: []snapshot.BookRecord{{Title: "The Left Hand of Darkness", Authors: []string{"Ursula K. Le Guin"}}},
	})
	require.NoError(t, err)

	incoming := snapshot.Snapshot{
		Books: []snapshot.BookRecord{{Title: "Left Hand of Darkness", Authors: []string{"Ursula K. Le Guin"}}},
	}

	strict, err := NewPipeline(store, Options{}).DryRun(ctx, 1, incoming)
	require.NoError(t, err)
	assert.Equal(t, 1, strict.Books.Added)

	loose, err := NewPipeline(store, Options{FuzzyThreshold: 0.8}).DryRun(ctx, 1, incoming)
	require.NoError(t, err)
	assert.Equal(t, 1, loose.Books.Updated)
}

func TestRef(t *testing.T) {
	id, ok := ExistingRef(12).ID()
	assert.True(t, ok)
	assert.Equal(t, uint(12), id)

	_, ok = pendingRef(snapshot.CategoryBooks, 0).ID()
	assert.False(t, ok)
	assert.True(t, pendingRef(snapshot.CategoryBooks, 0).Pending())
}
