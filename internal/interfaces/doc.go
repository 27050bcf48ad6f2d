// Package interfaces documents the core abstractions used throughout the application.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - importers.Store: Load an owner's library and apply a merge plan atomically (internal/importers/plan.go)
//   - exporters.Reader: Read-only access to each category of a library (internal/exporters/selector.go)
//   - services.ImportHistory: Import session bookkeeping (internal/services/interfaces.go)
//   - audit.EventStore: Audit event persistence (internal/audit/service.go)
//
// ## Format Interfaces
//
//   - formats.Codec: Encode and decode a snapshot in one file format (internal/formats/codec.go)
//
// ## HTTP Dependencies
//
//   - Transfer, ImportHistoryStore, AuditReader, LibraryStats, JobQueue (internal/http/stores.go)
//
// ## Background Work
//
//   - tasks.UploadImporter: Runs a queued import (internal/tasks/import.go)
//   - tasks.AuditEventCleaner, StaleImportCloser: Periodic maintenance (internal/tasks/maintenance.go)
//   - scheduler.Exporter, UserLister, BackupAuditor: Scheduled backups (internal/scheduler/backup.go)
//
// # Adding a New File Format
//
//  1. Implement Codec in internal/formats/
//
//     type StoryGraphCodec struct{}
//
//     func (StoryGraphCodec) Format() snapshot.Format  { return "storygraph" }
//     func (StoryGraphCodec) ContentType() string      { return "text/csv; charset=utf-8" }
//     func (StoryGraphCodec) Extension() string        { return ".csv" }
//     func (StoryGraphCodec) Encode(s snapshot.Snapshot) ([]byte, error)
//     func (StoryGraphCodec) Decode(data []byte) (snapshot.Snapshot, error)
//
//  2. Register it in formats.DefaultRegistry
//
//  3. Add a compile-time check to checks.go
//
// The HTTP and CLI surfaces pick the new format up from the registry.
//
// # Adding a New Database Domain
//
//  1. Create sub-package: internal/database/<domain>/
//
//  2. Define repository:
//
//     type Repository struct { db *gorm.DB }
//
//     func NewRepository(db *gorm.DB) *Repository
//
//  3. Add the model to the AutoMigrate list in internal/database/database.go
//
//  4. Add compile-time check:
//
//     var _ SomeStore = (*Repository)(nil)
//
// # Compile-Time Interface Checks
//
// All implementations should include compile-time checks to ensure they satisfy
// their interfaces. This catches missing methods at compile time rather than runtime:
//
//	var _ SomeInterface = (*MyImplementation)(nil)
//
// This pattern is used throughout the codebase. See checks.go for examples.
package interfaces
