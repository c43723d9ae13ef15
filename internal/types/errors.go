package types

import "errors"

// Domain specific errors shared across the registry, ledgers and facade.
var (
	ErrNotFound            = errors.New("requested item not found")
	ErrConflict            = errors.New("item already exists or conflict")
	ErrAlreadyFavorited    = errors.New("location is already favorited")
	ErrBadRequest          = errors.New("bad request")
	ErrUpstreamUnavailable = errors.New("upstream provider unavailable")
)
