package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/shelfport/internal/config"
	"github.com/mrlokans/shelfport/internal/snapshot"
)

// ImportCommand merges a file into one user's library.
type ImportCommand struct {
	dbPath         string
	username       string
	format         string
	file           string
	dryRun         bool
	verbose        bool
	fuzzyThreshold float64

	Out io.Writer
}

// NewImportCommand creates a new import command
func NewImportCommand() *ImportCommand {
	return &ImportCommand{}
}

// ParseFlags parses command line flags
func (c *ImportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fs.StringVar(&c.dbPath, "db", config.DefaultDatabasePath, "Path to the SQLite database")
	fs.StringVar(&c.username, "user", "", "Username whose library receives the import (required)")
	fs.StringVar(&c.format, "format", string(snapshot.FormatNative), "Input format: native, csv or goodreads")
	fs.StringVar(&c.file, "file", "", "File to import (required)")
	fs.BoolVar(&c.dryRun, "dry-run", false, "Report what would change without writing")
	fs.BoolVar(&c.verbose, "verbose", false, "List every rejected record")
	fs.Float64Var(&c.fuzzyThreshold, "fuzzy-threshold", 0.9, "Minimum title similarity for fuzzy book matching")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import a library file. Nothing is written unless every record can be stored.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s import -user alice -file shelfport-alice.json\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s import -user alice -format goodreads -file goodreads_library_export.csv -dry-run\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.username == "" {
		return fmt.Errorf("-user is required")
	}
	if c.file == "" {
		return fmt.Errorf("-file is required")
	}
	return nil
}

// Run executes the import
func (c *ImportCommand) Run() error {
	out := stdout(c.Out)

	title := "Import"
	if c.dryRun {
		title = "Import (dry run)"
	}
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, "==================")

	data, err := os.ReadFile(c.file)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", c.file, err)
	}

	ws, err := openWorkspace(c.dbPath, c.fuzzyThreshold)
	if err != nil {
		return err
	}
	defer ws.Close()

	user, err := ws.owner(c.username)
	if err != nil {
		return err
	}

	format := snapshot.ParseFormat(c.format)
	fmt.Fprintf(out, "Reading %s as %s...\n", c.file, format)
	snap, err := ws.transfer.DecodeUpload(data, format)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Decoded %d records\n", snap.RecordCount())

	ctx := context.Background()
	var summary snapshot.ImportSummary
	if c.dryRun {
		summary, err = ws.transfer.DryRunImport(ctx, user.ID, snap)
	} else {
		summary, err = ws.transfer.RunImport(ctx, user.ID, snap)
	}
	if summary.Phase != "" {
		printSummary(out, summary, c.verbose)
	}
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return nil
}
