// Package errkind defines the stable, numbered error taxonomy every
// component in this module reports through. Kind codes are part of the
// wire contract with collaborators (§6/§7 of the design) and must not be
// renumbered once published.
package errkind

import "fmt"

// Kind is a stable numeric error classification. Values are append-only.
type Kind int

const (
	Unknown Kind = iota
	InvalidIdFormat
	InvalidKind
	InvalidCid
	UnsupportedHashAlgorithm
	PayloadHashMismatch
	UnsupportedVersion
	InvalidTimestamp
	PreviousNotMatch
	IdentityTerminated
	ThresholdNotMatch
	NextThresholdNotMatch
	LackOfMinProofs
	InvalidSigner
	InvalidNextSigner
	InvalidSignature
	InvalidCreateKey
	InvalidRevokeKey
	ClaimNotFound
	DuplicateSigner
	InvalidPrevious
	ExternalProofFailed
	ExternalProofTimeout
	EncodeError
	DecodeError
	Internal
)

var names = map[Kind]string{
	Unknown:                  "Unknown",
	InvalidIdFormat:          "InvalidIdFormat",
	InvalidKind:              "InvalidKind",
	InvalidCid:               "InvalidCid",
	UnsupportedHashAlgorithm: "UnsupportedHashAlgorithm",
	PayloadHashMismatch:      "PayloadHashMismatch",
	UnsupportedVersion:       "UnsupportedVersion",
	InvalidTimestamp:         "InvalidTimestamp",
	PreviousNotMatch:         "PreviousNotMatch",
	IdentityTerminated:       "IdentityTerminated",
	ThresholdNotMatch:        "ThresholdNotMatch",
	NextThresholdNotMatch:    "NextThresholdNotMatch",
	LackOfMinProofs:          "LackOfMinProofs",
	InvalidSigner:            "InvalidSigner",
	InvalidNextSigner:        "InvalidNextSigner",
	InvalidSignature:         "InvalidSignature",
	InvalidCreateKey:         "InvalidCreateKey",
	InvalidRevokeKey:         "InvalidRevokeKey",
	ClaimNotFound:            "ClaimNotFound",
	DuplicateSigner:          "DuplicateSigner",
	InvalidPrevious:          "InvalidPrevious",
	ExternalProofFailed:      "ExternalProofFailed",
	ExternalProofTimeout:     "ExternalProofTimeout",
	EncodeError:              "EncodeError",
	DecodeError:              "DecodeError",
	Internal:                 "Internal",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "Unknown"
}

// Error is the single error type returned across component boundaries.
// Every error from C1-C5 is projected to a Kind plus a free-form message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an *Error with no wrapped cause.
func New(k Kind, msg string) *Error {
	return &Error{Kind: k, Msg: msg}
}

// Wrap builds an *Error wrapping a lower-level cause.
func Wrap(k Kind, msg string, err error) *Error {
	return &Error{Kind: k, Msg: msg, Err: err}
}

// Is reports whether err carries the given Kind.
func Is(err error, k Kind) bool {
	var e *Error
	if ok := asError(err, &e); !ok {
		return false
	}
	return e.Kind == k
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
