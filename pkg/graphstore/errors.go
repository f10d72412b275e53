package graphstore

import "github.com/relaydb/graphstore/pkg/errs"

// ErrorKind, the Kind constants, and the error constructors below are
// re-exported from pkg/errs unchanged: every engine this package wires
// together (entity, index, relationship, backup, blob) returns pkg/errs
// errors directly, since those engines cannot import this package without
// creating a cycle with Store's own imports of them.
type ErrorKind = errs.ErrorKind

const (
	KindBadRequest       = errs.KindBadRequest
	KindNotFound         = errs.KindNotFound
	KindDeleteFailed     = errs.KindDeleteFailed
	KindUnknownOperation = errs.KindUnknownOperation
	KindUnexpected       = errs.KindUnexpected
)

type Error = errs.Error

var (
	BadRequest       = errs.BadRequest
	NotFound         = errs.NotFound
	DeleteFailed     = errs.DeleteFailed
	UnknownOperation = errs.UnknownOperation
	Unexpected       = errs.Unexpected
	KindOf           = errs.KindOf
	IsNotFound       = errs.IsNotFound
)
