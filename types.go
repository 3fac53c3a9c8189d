package main

import "errors"

// Failure taxonomy for a restore run. Errors on the mandatory path (outer
// extraction, payload location, decryption, output write) are fatal; the
// attachments branch downgrades its failures to reported skips.
var (
	ErrMissingInput         = errors.New("backup archive not found")
	ErrAuthenticationFailed = errors.New("archive password verification failed")
	ErrMalformedBlob        = errors.New("encrypted blob is malformed")
	ErrInvalidPlaintext     = errors.New("decrypted payload is not valid JSON")
	ErrNoPayloadFound       = errors.New("no encrypted JSON payload found")
)
