package types

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error the way the rest of the engine needs to recover
// from it — callers switch on Kind, not on the wrapped message.
type Kind int

const (
	KindInternal Kind = iota
	KindDatabaseExists
	KindDatabaseNotFound
	KindTableExists
	KindTableNotFound
	KindColumnNotFound
	KindIncompatibleType
	KindFileExists
	KindFileNotFound
	KindFileNotOpen
	KindFileStillOpen
	KindPageNotExist
	KindRecordNotFound
	KindSlotOccupied
	KindNoSpace
	KindIoError
	KindTransactionAborted
)

func (k Kind) String() string {
	switch k {
	case KindDatabaseExists:
		return "DatabaseExists"
	case KindDatabaseNotFound:
		return "DatabaseNotFound"
	case KindTableExists:
		return "TableExists"
	case KindTableNotFound:
		return "TableNotFound"
	case KindColumnNotFound:
		return "ColumnNotFound"
	case KindIncompatibleType:
		return "IncompatibleType"
	case KindFileExists:
		return "FileExists"
	case KindFileNotFound:
		return "FileNotFound"
	case KindFileNotOpen:
		return "FileNotOpen"
	case KindFileStillOpen:
		return "FileStillOpen"
	case KindPageNotExist:
		return "PageNotExist"
	case KindRecordNotFound:
		return "RecordNotFound"
	case KindSlotOccupied:
		return "SlotOccupied"
	case KindNoSpace:
		return "NoSpace"
	case KindIoError:
		return "IoError"
	case KindTransactionAborted:
		return "TransactionAborted"
	default:
		return "Internal"
	}
}

// kindedError carries a Kind alongside the message so a caller several
// layers up can still recover it with KindOf, which walks Unwrap and Cause
// links through fmt.Errorf-style or pkg/errors wrapping at every
// intermediate frame.
type kindedError struct {
	kind Kind
	msg  string
}

func (e *kindedError) Error() string { return e.kind.String() + ": " + e.msg }

// NewError builds a fresh error of the given kind.
func NewError(kind Kind, msg string) error {
	return errors.WithStack(&kindedError{kind: kind, msg: msg})
}

// Errorf builds a fresh error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) error {
	return errors.WithStack(&kindedError{kind: kind, msg: fmt.Sprintf(format, args...)})
}

// KindOf walks err's cause chain and returns the Kind of the first
// kindedError found, or KindInternal if none is present.
func KindOf(err error) Kind {
	for err != nil {
		if ke, ok := err.(*kindedError); ok {
			return ke.kind
		}
		cause := errors.Unwrap(err)
		if cause == nil {
			cause = causer(err)
		}
		if cause == err || cause == nil {
			break
		}
		err = cause
	}
	return KindInternal
}

// Is reports whether err (or anything in its cause chain) is of kind k.
func Is(err error, k Kind) bool {
	return KindOf(err) == k
}

func causer(err error) error {
	type causeHaver interface{ Cause() error }
	if ch, ok := err.(causeHaver); ok {
		return ch.Cause()
	}
	return nil
}
