package domain

import "errors"

var (
	// ErrAllProxiesExhausted means every proxy and every attempt failed.
	ErrAllProxiesExhausted = errors.New("all proxies exhausted")
	// ErrLoadInProgress rejects a catalog load while another one is running.
	ErrLoadInProgress = errors.New("catalog load already in progress")
	// ErrMalformedImport rejects structurally invalid list import data.
	ErrMalformedImport = errors.New("malformed list import")
	ErrAlreadyInList   = errors.New("item already in list")
	ErrUnknownItem     = errors.New("item not in working set")
)
