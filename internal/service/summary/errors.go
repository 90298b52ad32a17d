package summary

import "errors"

// Sentinel errors for the summary service layer.
var (
	ErrNotFound  = errors.New("summary not found")
	ErrNoRecords = errors.New("record store is empty")
)
