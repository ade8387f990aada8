package store

import "github.com/ordermap/ordermap-server/internal/errors"

// Sentinel errors. These alias the domain sentinels so callers can check
// either package with errors.Is.
var (
	ErrNotFound      = errors.ErrNotFound
	ErrAlreadyExists = errors.ErrAlreadyExists
)
