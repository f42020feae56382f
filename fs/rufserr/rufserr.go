// Package rufserr defines the POSIX-flavored error kinds shared by the
// fs packages, wrapped with golang.org/x/xerrors the way every package in
// the teacher repository wraps its failures.
package rufserr

import "golang.org/x/xerrors"

// Kind classifies a failure the way §7 of the design groups FS-CORE errors.
type Kind int

const (
	_ Kind = iota
	NotFound
	AlreadyExists
	NoSpace
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case AlreadyExists:
		return "already exists"
	case NoSpace:
		return "no space"
	default:
		return "unknown fs error"
	}
}

// Error is a Kind carrying the call-site context that produced it.
type Error struct {
	Kind Kind
	msg  string
}

func (e *Error) Error() string {
	if e.msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.msg
}

// Errorf builds an Error of the given kind with a formatted message,
// matching the call shape of xerrors.Errorf used throughout the teacher
// repository.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{
		Kind: kind,
		msg:  xerrors.Errorf(format, args...).Error(),
	}
}

// Is reports whether err (or something it wraps) is of the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if xerrors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
