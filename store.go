package crdtop

import "context"

// Backend is what the operation layer needs from storage: an
// idempotent append and an ordered scan. Appending an operation
// already stored is a no-op reported as fresh == false.
type Backend interface {
	Append(ctx context.Context, op CRDTOperation) (fresh bool, err error)
	// Scan visits the stored operations in merge order.
	Scan(ctx context.Context, fn func(op CRDTOperation) error) error
}

// CRDTStore holds whatever backend is configured, so components can
// be written against the store rather than a concrete database.
type CRDTStore[B Backend] struct {
	Database B
}

func NewStore[B Backend](database B) *CRDTStore[B] {
	return &CRDTStore[B]{Database: database}
}
