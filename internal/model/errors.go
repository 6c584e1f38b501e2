package model

import "errors"

var (
	// ErrInvalidParameter is returned for non-positive windows, malformed
	// role maps and other unusable call parameters.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrMissingColumn is returned when a computation needs a column role the
	// table does not bind.
	ErrMissingColumn = errors.New("missing column")

	// ErrUnknownLabelRule is returned for unsupported label rule names.
	ErrUnknownLabelRule = errors.New("unknown label rule")

	// ErrUnknownIndicator is returned for unsupported indicator names.
	ErrUnknownIndicator = errors.New("unknown indicator")

	// ErrDataSourceUnavailable wraps fetch and read failures of price data
	// collaborators.
	ErrDataSourceUnavailable = errors.New("data source unavailable")
)
