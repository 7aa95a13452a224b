package recordings

import "errors"

var (
	// ErrNotFound indicates an unknown recording identity.
	ErrNotFound = errors.New("recording not found")
	// ErrDuplicateID indicates an identity collision on insert.
	ErrDuplicateID = errors.New("duplicate recording id")
	// ErrIngestion indicates the upload could not be persisted; no record exists.
	ErrIngestion = errors.New("ingestion failed")
)
