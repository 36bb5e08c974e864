// Package database stores the history of dependents runs in SQLite.
//
// Every finished run is saved with the ranked dependents it produced, so
// that later runs for the same repository can be compared: which dependents
// are new, which disappeared and whose star counts changed.
//
// The driver is modernc.org/sqlite, which needs no cgo. The database is a
// single file in the XDG data directory.
package database
