package ingest

import "errors"

// Sentinel errors for the ingest service layer.
var (
	ErrEntityBusy = errors.New("an ingest for this entity is already running")
	ErrLockLost   = errors.New("ingest lock lost before the run finished")

	// ErrSummaryFailed wraps a summary error raised after the records were
	// stored; the accompanying Result describes the committed ingest.
	ErrSummaryFailed = errors.New("summary failed after ingest")
)
