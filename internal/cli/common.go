// Package cli implements the command line subcommands. Each command parses
// its own flag set and opens the database directly.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/mrlokans/shelfport/internal/database"
	"github.com/mrlokans/shelfport/internal/database/imports"
	"github.com/mrlokans/shelfport/internal/database/library"
	"github.com/mrlokans/shelfport/internal/database/users"
	"github.com/mrlokans/shelfport/internal/entities"
	"github.com/mrlokans/shelfport/internal/exporters"
	"github.com/mrlokans/shelfport/internal/formats"
	"github.com/mrlokans/shelfport/internal/importers"
	"github.com/mrlokans/shelfport/internal/services"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// workspace is what every command needs from the database.
type workspace struct {
	db       *database.Database
	users    *users.Repository
	library  *library.Repository
	transfer *services.TransferService
}

func openWorkspace(dbPath string, fuzzyThreshold float64) (*workspace, error) {
	absDBPath, err := filepath.Abs(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path for database: %w", err)
	}

	db, err := database.NewDatabase(absDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	repo := library.NewRepository(db.DB)
	transfer := services.NewTransferService(
		formats.DefaultRegistry(),
		exporters.NewSelector(repo),
		importers.NewPipeline(repo, importers.Options{FuzzyThreshold: fuzzyThreshold}),
	).WithHistory(imports.NewRepository(db.DB))

	return &workspace{
		db:       db,
		users:    users.NewRepository(db.DB),
		library:  repo,
		transfer: transfer,
	}, nil
}

func (w *workspace) Close() error {
	return w.db.Close()
}

// owner resolves a username to its account.
func (w *workspace) owner(username string) (*entities.User, error) {
	user, err := w.users.GetUserByUsername(username)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, snapshot.NewError(snapshot.KindOwnerNotFound, "user %q not found", username)
	}
	return user, err
}

func stdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}

func printSummary(out io.Writer, summary snapshot.ImportSummary, verbose bool) {
	fmt.Fprintln(out, "\n=== Import Summary ===")
	fmt.Fprintf(out, "Phase: %s\n", summary.Phase)
	rows := []struct {
		label  string
		counts snapshot.CategoryCounts
	}{
		{"Books", summary.Books},
		{"Shelf", summary.OwnedBooks},
		{"Reading sessions", summary.ReadingSessions},
		{"Wishlist", summary.Wishlist},
		{"Collections", summary.Collections},
		{"Profile", summary.Profile},
	}
	for _, r := range rows {
		fmt.Fprintf(out, "%-17s added %d, updated %d, skipped %d\n",
			r.label+":", r.counts.Added, r.counts.Updated, r.counts.Skipped)
	}

	if len(summary.Errors) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%d records were rejected\n", len(summary.Errors))
	if !verbose {
		fmt.Fprintln(out, "Use -verbose to list them.")
		return
	}
	for _, e := range summary.Errors {
		fmt.Fprintf(out, "  [%s #%d] %s: %s\n", e.Category, e.Index, e.Field, e.Message)
	}
}
