package models

import "errors"

var (
	// ErrInvalidInput marks caller mistakes: bad parameters, empty text or query.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidDocumentType is returned for a type tag other than style or content.
	ErrInvalidDocumentType = errors.New("invalid document type")
)
