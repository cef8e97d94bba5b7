// Provides common crdtop errors definitions.
package crdtop_errors

import "errors"

var (
	ErrBadOperation    = errors.New("crdtop: bad operation record")
	ErrBadId           = errors.New("crdtop: bad id")
	ErrBadTimestamp    = errors.New("crdtop: bad timestamp")
	ErrBadPayload      = errors.New("crdtop: bad operation payload")
	ErrUnknownFamily   = errors.New("crdtop: key set matches no operation family")
	ErrAmbiguousFamily = errors.New("crdtop: key set matches more than one operation family")
	ErrFamilyMismatch  = errors.New("crdtop: operation keys do not match its family tag")
	ErrNotObject       = errors.New("crdtop: payload does not serialize to an object")

	ErrClockDrift = errors.New("crdtop: remote timestamp too far ahead of the local clock")

	ErrConflictingOperation = errors.New("crdtop: different operation with the same node and timestamp")
	ErrBadBatch             = errors.New("crdtop: bad operation batch")
	ErrClosed               = errors.New("crdtop: operation log closed")
)
