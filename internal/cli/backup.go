package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/shelfport/internal/config"
	"github.com/mrlokans/shelfport/internal/scheduler"
)

// BackupCommand writes a native snapshot of every user once.
type BackupCommand struct {
	dbPath string
	dir    string
	keep   int

	Out io.Writer
}

// NewBackupCommand creates a new backup command
func NewBackupCommand() *BackupCommand {
	return &BackupCommand{}
}

// ParseFlags parses command line flags
func (c *BackupCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("backup", flag.ExitOnError)
	fs.StringVar(&c.dbPath, "db", config.DefaultDatabasePath, "Path to the SQLite database")
	fs.StringVar(&c.dir, "dir", config.DefaultBackupDir, "Directory for snapshot files")
	fs.IntVar(&c.keep, "keep", 7, "Snapshots kept per user, 0 keeps all")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s backup [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Write a full native export for every user.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

// Run executes the backup
func (c *BackupCommand) Run() error {
	ws, err := openWorkspace(c.dbPath, 0)
	if err != nil {
		return err
	}
	defer ws.Close()

	backups := scheduler.NewBackupScheduler(ws.transfer, ws.users, nil, scheduler.BackupConfig{
		Dir:  c.dir,
		Keep: c.keep,
	})
	written := backups.RunNow(context.Background())

	out := stdout(c.Out)
	fmt.Fprintf(out, "Wrote %d snapshot(s) to %s\n", len(written), c.dir)
	for _, path := range written {
		fmt.Fprintf(out, "  %s\n", path)
	}
	return nil
}
