// Package http exposes library export and import over a Gin JSON API.
//
// Routes:
//
//	GET  /health, /ping
//	GET  /api/formats
//	GET  /api/export?format=&categories=&from=&to=
//	POST /api/import?format=&dry_run=
//	POST /api/import/jobs?format=&dry_run=   (202, background)
//	GET  /api/import/jobs/:id
//	GET  /api/import/history, /api/import/history/:id
//	GET  /api/library/stats
//	GET  /api/audit?type=&page=&limit=
//
// Transfer failures map onto statuses by kind: unsupported_format 415;
// malformed_input, schema_mismatch and validation_error 400;
// owner_not_found 404; persistence_failure 500.
package http
