package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mrlokans/shelfport/internal/config"
	"github.com/mrlokans/shelfport/internal/exporters"
	"github.com/mrlokans/shelfport/internal/services"
	"github.com/mrlokans/shelfport/internal/snapshot"
	"github.com/mrlokans/shelfport/internal/utils"
)

// ExportCommand writes one user's library to a file.
type ExportCommand struct {
	dbPath     string
	username   string
	format     string
	categories string
	from       string
	to         string
	output     string

	Out io.Writer
}

// NewExportCommand creates a new export command
func NewExportCommand() *ExportCommand {
	return &ExportCommand{}
}

// ParseFlags parses command line flags
func (c *ExportCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.StringVar(&c.dbPath, "db", config.DefaultDatabasePath, "Path to the SQLite database")
	fs.StringVar(&c.username, "user", "", "Username whose library is exported (required)")
	fs.StringVar(&c.format, "format", string(snapshot.FormatNative), "Output format: native, csv or goodreads")
	fs.StringVar(&c.categories, "categories", "", "Comma-separated categories to include (default: all)")
	fs.StringVar(&c.from, "from", "", "Only include reading sessions on or after this date (YYYY-MM-DD)")
	fs.StringVar(&c.to, "to", "", "Only include reading sessions on or before this date (YYYY-MM-DD)")
	fs.StringVar(&c.output, "output", "", "Output file, '-' for stdout (default: generated name in the current directory)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s export [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Export a user's library.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s export -user alice\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -user alice -format csv -output shelf.csv\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s export -user alice -categories sessions -from 2024-01-01 -output -\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.username == "" {
		return fmt.Errorf("-user is required")
	}
	return nil
}

// Run executes the export
func (c *ExportCommand) Run() error {
	selection, err := exporters.ParseSelection(c.categories)
	if err != nil {
		return err
	}
	dateRange, err := exporters.ParseDateRange(c.from, c.to)
	if err != nil {
		return err
	}

	ws, err := openWorkspace(c.dbPath, 0)
	if err != nil {
		return err
	}
	defer ws.Close()

	user, err := ws.owner(c.username)
	if err != nil {
		return err
	}

	format := snapshot.ParseFormat(c.format)
	codec, err := ws.transfer.Codec(format)
	if err != nil {
		return err
	}

	data, err := ws.transfer.PrepareExport(context.Background(), user.ID, services.ExportOptions{
		Format:     format,
		Categories: selection,
		DateRange:  dateRange,
	})
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	out := stdout(c.Out)
	if c.output == "-" {
		_, err = out.Write(data)
		return err
	}

	path := c.output
	if path == "" {
		path = utils.SnapshotFilename(user.Username, codec.Extension(), time.Now())
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(out, "Exported %s library as %s to %s (%d bytes)\n", user.Username, format, path, len(data))
	return nil
}
