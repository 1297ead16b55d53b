package migration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file")
	ErrInvalidVersion       = errors.New("invalid migration version")
	ErrDuplicateVersion     = errors.New("duplicate migration version")
	// ErrVersionConflict means the applied history and the embedded files disagree.
	ErrVersionConflict = errors.New("migration version conflict")
	// ErrChecksumMismatch means an applied file was edited afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
)

// Error attaches the version, file and step to a failure. File is empty for
// failures raised by the schema_migrations bookkeeping.
type Error struct {
	Version string
	File    string
	Step    string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("migration")
	if e.Version != "" {
		b.WriteString(" " + e.Version)
	}
	if e.File != "" {
		b.WriteString(" (" + e.File + ")")
	}
	fmt.Fprintf(&b, ": %s: %v", e.Step, e.Err)
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fileError(version, file, step string, err error) error {
	return &Error{Version: version, File: file, Step: step, Err: err}
}

func dbError(version, step string, err error) error {
	return &Error{Version: version, Step: step, Err: err}
}
