// Package summary derives and publishes per-importer BI summaries.
//
// Records are read back from the record store, reduced by the aggregate
// package and upserted into the summary store, one row per importer.
// Batch regeneration fans out over a bounded worker group and keeps going
// past individual failures.
//
// The service depends only on the interfaces in repository.go. It never
// imports net/http or database/sql directly.
package summary
