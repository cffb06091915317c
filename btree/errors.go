package btree

import "github.com/pkg/errors"

// Sentinel errors returned by Index operations, checked with
// errors.Is by callers that need to distinguish "not found" from a
// genuine I/O failure.
var (
	ErrKeyNotFound = errors.New("btree: key not found")
	ErrDuplicateKey = errors.New("btree: duplicate key")
)
