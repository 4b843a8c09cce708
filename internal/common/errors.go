// Package common defines the sentinel errors shared by the sigfeed server,
// client, and transport layers. Callers match them with errors.Is; wrapping
// with fmt.Errorf("...: %w", err) is the expected way to add detail.
package common

import "errors"

var (
	// Admission outcomes. All of these are expected results of a Put and
	// are reported to the caller, never treated as fatal.

	// ErrMalformed means the submitted bytes failed to decode as an item.
	// Verification is not attempted for malformed bytes.
	ErrMalformed = errors.New("malformed item bytes")

	// ErrInvalidSignature means the bytes decoded but the signature does
	// not check out for the claimed author.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrContentConflict means a (user, signature) key already holds
	// different bytes. Never auto-resolved; surfaced to operators.
	ErrContentConflict = errors.New("content conflict")

	// Lookup outcome.
	ErrNotFound = errors.New("not found")

	// ErrStorageUnavailable wraps persistence failures (connection loss,
	// disk trouble). The one category callers should retry with backoff.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// Text-form decoding errors for user IDs, signatures and cursors.
	ErrInvalidFormat    = errors.New("invalid format")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)
