// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, source seeding
//	├── library/         # Books, shelves, sessions, wishlist, collections, profile
//	├── imports/         # Import session history
//	├── audit/           # Audit trail
//	└── users/           # User and token management
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./shelfport.db")
//
//	// Create domain-specific repositories
//	libraryRepo := library.NewRepository(db.DB)
//	usersRepo := users.NewRepository(db.DB)
//
//	// Use repositories
//	state, err := libraryRepo.LoadState(ctx, userID)
//	user, err := usersRepo.GetUserByToken(token)
//
// # Interface Implementations
//
//   - library.Repository: implements importers.Store and exporters.Reader
//   - imports.Repository: implements services.ImportHistory
//   - audit.Repository: implements audit.EventStore
//   - users.Repository: implements auth.TokenValidator and scheduler.UserLister
//
// # Adding a New Domain
//
//  1. Create a new sub-package under internal/database/
//  2. Define a Repository struct with a *gorm.DB field
//  3. Add NewRepository(db *gorm.DB) constructor
//  4. Implement the required interface
//  5. Add compile-time interface check: var _ SomeInterface = (*Repository)(nil)
package database
