//go:build !cgo

package storage

// Built without cgo: the pure Go SQLite translation in modernc.org/sqlite.
//
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName = "sqlite"
	sqliteBuildMode  = "purego"
)

func sqliteDSN(path string) string {
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}
