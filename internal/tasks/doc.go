// Package tasks runs background work on a backlite queue stored in its own
// SQLite database.
//
// Queues:
//
//	import_upload         imports a queued upload under its pending session
//	maintenance           prunes audit events and fails abandoned import sessions
package tasks
