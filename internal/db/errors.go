package db

import "errors"

// Sentinel errors callers can test with errors.Is.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
)

// Op names identify the Redis command behind a failed store call.
const (
	// RediSearch
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"

	// Plain keyspace
	OpHGetAll = "HGETALL"
	OpGet     = "GET"
	OpSet     = "SET"
)

// Error pairs a failing operation with its cause so logs show which command
// went wrong.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
