// Package dispatch implements the tagged-envelope operation catalog of
// spec.md §6 over the Entity, Index, Relationship, and Backup engines.
//
// The HTTP mapping itself is an external transport concern and is not
// implemented here — documented only, per spec.md's scoping of the
// transport layer as a collaborator outside the core:
//
//	BadRequest, UnknownOperation, DeleteFailed -> 400
//	NotFound                                   -> 404
//	Unexpected                                 -> 500
//	success                                     -> 200, JSON-encoded body
//
// A companion transport retries on 5xx with exponential backoff (base
// 100ms, factor 2, max 3 attempts). Grounded on the teacher's cobra-rooted
// command dispatch in cmd/nornicdb/main.go, generalized from a CLI
// subcommand table to a (type, operation) envelope table.
package dispatch
