package ingest

import (
	"errors"
	"fmt"
)

// ErrorCode classifies ingestion failures.
type ErrorCode string

const (
	// ErrCodeBadCSV indicates the CSV could not be parsed.
	ErrCodeBadCSV ErrorCode = "BAD_CSV"

	// ErrCodeEmptyTable indicates a table with no header or no rows
	// where rows are required.
	ErrCodeEmptyTable ErrorCode = "EMPTY_TABLE"

	// ErrCodeMissingColumn indicates a referenced column is absent.
	ErrCodeMissingColumn ErrorCode = "MISSING_COLUMN"

	// ErrCodeBadCell indicates a cell that does not parse as the
	// column's inferred type.
	ErrCodeBadCell ErrorCode = "BAD_CELL"
)

// Error is an ingestion failure tied to a table location.
type Error struct {
	Code    ErrorCode
	Column  string
	Row     int
	Message string
}

func (e *Error) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("ingest: %s (column %s): %s", e.Code, e.Column, e.Message)
	}
	return fmt.Sprintf("ingest: %s: %s", e.Code, e.Message)
}

// IsBadCell reports whether err is a cell parse failure.
func IsBadCell(err error) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.Code == ErrCodeBadCell
}

// IsMissingColumn reports whether err is a missing-column error.
func IsMissingColumn(err error) bool {
	var ie *Error
	return errors.As(err, &ie) && ie.Code == ErrCodeMissingColumn
}
