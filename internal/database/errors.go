package database

import "errors"

var (
	// ErrDatabaseNotFound is returned by Open when the file is missing and creation is disabled.
	ErrDatabaseNotFound = errors.New("history database not found")

	// ErrNilReport is returned when SaveRun is given a nil report.
	ErrNilReport = errors.New("report is nil")
)
