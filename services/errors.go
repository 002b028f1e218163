package services

import "errors"

var (
	// ErrUnsupportedCurrency is returned when a posting's currency has no
	// rate in the table. The posting is left out of every aggregate.
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	// ErrMalformedField is returned when a salary bound or the publication
	// date cannot be parsed.
	ErrMalformedField = errors.New("malformed field")
)
