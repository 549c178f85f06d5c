package csblob

import "errors"

// Sentinel errors, checked with errors.Is by callers; wrapped with
// fmt.Errorf("%w: ...") for context where it helps diagnostics.
var (
	// ErrInvalidInput covers empty bundle id, missing team id on a non-ad-hoc
	// build, zero code length, or empty entitlements passed to the DER slot.
	ErrInvalidInput = errors.New("csblob: invalid input")

	// ErrMalformedBlob is returned by parsers on bad magic, a declared length
	// exceeding the available buffer, or an out-of-range slot offset.
	// Builders never produce it.
	ErrMalformedBlob = errors.New("csblob: malformed blob")

	// ErrUnsupportedDERType is returned when an entitlements tree contains a
	// node kind the DER dialect cannot represent (float, date, opaque data).
	ErrUnsupportedDERType = errors.New("csblob: unsupported DER type")

	// ErrCMSFailure wraps a failure reported by the external CMS signer.
	ErrCMSFailure = errors.New("csblob: CMS signing failed")

	// ErrTruncatedCodeDirectory is reported when a parsed code directory's
	// declared offsets exceed its slot length; parsing of sibling slots
	// continues regardless.
	ErrTruncatedCodeDirectory = errors.New("csblob: truncated code directory")
)
