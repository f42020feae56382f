// Package rvmerr defines the error kinds used by the vm packages.
package rvmerr

import "golang.org/x/xerrors"

// Kind classifies a VM-CORE failure per §7.
type Kind int

const (
	_ Kind = iota
	// TranslationFault marks a page directory or table entry that was not
	// allocated when Translate walked it.
	TranslationFault
	// OutOfMemory marks exhaustion of virtual pages or physical frames.
	OutOfMemory
	// AlreadyMapped marks an attempt to remap an already-allocated page
	// table entry (the reference implementation treats this as a silent
	// no-op; this port surfaces it instead, per the design notes).
	AlreadyMapped
)

func (k Kind) String() string {
	switch k {
	case TranslationFault:
		return "translation fault"
	case OutOfMemory:
		return "out of memory"
	case AlreadyMapped:
		return "page already mapped"
	default:
		return "unknown vm error"
	}
}

// Error carries a Kind plus call-site context, wrapped with xerrors like
// every other package in this repository.
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

// Errorf builds an Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, msg: xerrors.Errorf(format, args...).Error()}
}

// Is reports whether err is of the given kind.
func Is(err error, kind Kind) bool {
	var fe *Error
	if xerrors.As(err, &fe) {
		return fe.Kind == kind
	}
	return false
}
