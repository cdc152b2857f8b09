// Package database stores pipeline run history in SQLite.
//
// RunDB keeps one row per run in the runs table: the run ID, its
// timestamps, its status, a few summary columns for listing, and the full
// run report as JSON. The database is a single file (alignpipe.db) under
// the XDG data directory and is opened through modernc.org/sqlite, so no
// CGO toolchain is needed.
package database
