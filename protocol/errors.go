package protocol

import (
	"context"
	"errors"
	"fmt"

	"xdao.co/docreg/commitment"
	"xdao.co/docreg/registry"
	"xdao.co/docreg/sealed"
	"xdao.co/docreg/storage"
)

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind rather than matching error strings.
type Kind string

const (
	KindInput              Kind = "Input"
	KindDuplicate          Kind = "Duplicate"
	KindNotRegistered      Kind = "NotRegistered"
	KindSecretMismatch     Kind = "SecretMismatch"
	KindProofGeneration    Kind = "ProofGeneration"
	KindNetworkUnavailable Kind = "NetworkUnavailable"
	KindAuthentication     Kind = "Authentication"
	KindCanceled           Kind = "Canceled"
	KindInternal           Kind = "Internal"
)

// Step names the flow step an error originated in.
type Step string

const (
	StepInput          Step = "input"
	StepHashing        Step = "hashing"
	StepDuplicateCheck Step = "duplicate-check"
	StepEncrypting     Step = "encrypting"
	StepAddressing     Step = "addressing"
	StepCommitting     Step = "committing"
	StepSubmitting     Step = "submitting"
	StepLookup         Step = "lookup"
	StepFetching       Step = "fetching"
	StepDecrypting     Step = "decrypting"
	StepListing        Step = "listing"
)

// Error is the structured error every flow returns.
//
// Message is intended for humans; do not match on it. Owner is set for
// KindDuplicate when the existing record could be read.
type Error struct {
	Kind    Kind
	Step    Step
	Message string
	Owner   *registry.Address
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Step, e.Message)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func newError(kind Kind, step Step, msg string) *Error {
	return &Error{Kind: kind, Step: step, Message: msg}
}

func wrapError(kind Kind, step Step, msg string, cause error) *Error {
	return &Error{Kind: kind, Step: step, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) an *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" for any other error.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// classify maps a collaborator error onto the taxonomy. ctx is the flow's
// context; if the caller abandoned it the error is KindCanceled regardless of
// what the collaborator reported.
func classify(ctx context.Context, step Step, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	if ctx.Err() != nil {
		return wrapError(KindCanceled, step, "flow abandoned", ctx.Err())
	}
	switch {
	case registry.IsUnavailable(err):
		return wrapError(KindNetworkUnavailable, step, "registry unreachable", err)
	case storage.IsUnavailable(err):
		return wrapError(KindNetworkUnavailable, step, "storage unreachable", err)
	case storage.IsNotFound(err):
		return wrapError(KindNetworkUnavailable, step, "content not retrievable from storage", err)
	case errors.Is(err, registry.ErrUnknownDocument):
		return wrapError(KindNotRegistered, step, "no such document", err)
	case commitment.IsProofGeneration(err):
		return wrapError(KindProofGeneration, step, "proof generation failed", err)
	case sealed.IsAuthentication(err), errors.Is(err, sealed.ErrMalformed):
		return wrapError(KindAuthentication, step, "wrong password or corrupted payload", err)
	case errors.Is(err, registry.ErrInvalidRequest), errors.Is(err, storage.ErrInvalidCID):
		return wrapError(KindInput, step, "rejected input", err)
	case errors.Is(err, context.DeadlineExceeded):
		return wrapError(KindNetworkUnavailable, step, "timed out", err)
	}
	return wrapError(KindInternal, step, "unexpected failure", err)
}
