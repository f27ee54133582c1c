// Package repository defines the data access layer over MySQL.  This
// file holds sentinel error values shared across repositories so that
// handlers can distinguish failure scenarios with errors.Is: for
// example ErrForbidden indicates that the caller is not the owner of
// the resource they are mutating, while ErrConflict signals that an
// operation cannot proceed because of the current state of the data
// (already a donor, capacity reached, terminal status).
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own.  Handlers translate this into HTTP 403.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a mutation cannot be performed because
// of conflicting state.  Handlers translate this into HTTP 409.
var ErrConflict = errors.New("conflict")
