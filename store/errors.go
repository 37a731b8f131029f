package store

import "fmt"

// ErrorKind classifies a store.Error, mirroring the teacher's
// consensus.ErrorCode/TxError sum-type error pattern.
type ErrorKind string

const (
	KindNotFound          ErrorKind = "not_found"
	KindSerDe             ErrorKind = "serde"
	KindStore             ErrorKind = "store"
	KindDuplicateCommitment ErrorKind = "duplicate_commitment"
)

// Error is the sum-typed error every store operation returns on failure.
// Context carries a human-readable detail (key, bucket, wrapped cause);
// callers that need to branch on failure kind use errors.As against Kind
// rather than string-matching the message.
type Error struct {
	Kind    ErrorKind
	Context string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("store: %s: %s: %v", e.Kind, e.Context, e.Cause)
	}
	return fmt.Sprintf("store: %s: %s", e.Kind, e.Context)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(kind ErrorKind, context string, cause error) *Error {
	return &Error{Kind: kind, Context: context, Cause: cause}
}

// OptionToNotFound lifts a successful-but-missing KV read (ok == false,
// err == nil) into a KindNotFound *Error, and otherwise wraps a non-nil
// err as KindStore. Mirrors store.rs's option_to_not_found.
func OptionToNotFound(ok bool, err error, context string) error {
	if err != nil {
		return newError(KindStore, context, err)
	}
	if !ok {
		return newError(KindNotFound, context, nil)
	}
	return nil
}

// IsNotFound reports whether err is (or wraps) a KindNotFound store error.
func IsNotFound(err error) bool {
	var se *Error
	return asStoreError(err, &se) && se.Kind == KindNotFound
}

func asStoreError(err error, target **Error) bool {
	for err != nil {
		if se, ok := err.(*Error); ok {
			*target = se
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
