package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/shelfport/internal/config"
)

// CreateUserCommand adds an account and prints its API token. With
// -rotate-token it issues a new token for an existing account instead.
type CreateUserCommand struct {
	dbPath   string
	username string
	email    string
	rotate   bool

	Out io.Writer
}

// NewCreateUserCommand creates a new create-user command
func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

// ParseFlags parses command line flags
func (c *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)
	fs.StringVar(&c.dbPath, "db", config.DefaultDatabasePath, "Path to the SQLite database")
	fs.StringVar(&c.username, "username", "", "Username (required)")
	fs.StringVar(&c.email, "email", "", "Email address")
	fs.BoolVar(&c.rotate, "rotate-token", false, "Replace the token of an existing user")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a user and print the bearer token for the API.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if c.username == "" {
		return fmt.Errorf("-username is required")
	}
	return nil
}

// Run creates the user
func (c *CreateUserCommand) Run() error {
	ws, err := openWorkspace(c.dbPath, 0)
	if err != nil {
		return err
	}
	defer ws.Close()

	out := stdout(c.Out)
	if c.rotate {
		user, err := ws.owner(c.username)
		if err != nil {
			return err
		}
		token, err := ws.users.RotateToken(user.Username)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Rotated token for %s (id %d)\n", user.Username, user.ID)
		fmt.Fprintf(out, "Token: %s\n", token)
		return nil
	}

	user, err := ws.users.CreateUser(c.username, c.email)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(out, "Created user %s (id %d)\n", user.Username, user.ID)
	fmt.Fprintf(out, "Token: %s\n", user.Token)
	return nil
}
