package source

import crerr "github.com/cockroachdb/errors"

var (
	// ErrNoHeader is returned when the sheet has no header row.
	ErrNoHeader = crerr.New("sheet has no header row")
	// ErrNoPlayerColumn is returned when the header lacks a Player column.
	ErrNoPlayerColumn = crerr.New("sheet has no Player column")
	// ErrUnexpectedStatus is returned for a non-2xx export response.
	ErrUnexpectedStatus = crerr.New("unexpected export status")
	// ErrSheetTooLarge is returned when an export body exceeds the size limit.
	ErrSheetTooLarge = crerr.New("sheet export too large")
	// ErrNoLocation is returned when a source has no path or URL configured.
	ErrNoLocation = crerr.New("source location must not be empty")
)
