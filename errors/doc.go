// Package errors provides the structured error types used across the
// bridge, plus the flat integer status codes exposed to callers that
// cannot consume Go errors.
//
// Every public bridge operation validates its input before any engine
// call and returns one of these errors on the failure path; nothing in
// the bridge panics across the API boundary.
package errors
