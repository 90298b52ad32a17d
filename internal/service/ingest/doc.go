// Package ingest pulls one importer's declarations from the upstream API and
// writes them to the record store.
//
// A run validates its request before any I/O, fetches every page, coerces
// each raw record (dropping and counting the ones that do not fit) and then
// applies the clear scope and the bulk insert in a single store call, so a
// failed write leaves the previous data intact.
package ingest
