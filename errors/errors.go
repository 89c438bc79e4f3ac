// Package errs provides the Kind-tagged wrapping error shared by ir,
// schema, and compiler: a Kind plus an optional wrapped error, an
// optional pipeline operator index, and an optional dotted path into an
// expression tree, so that every error surfaced by the compiler can name
// where in a program it occurred (see the error handling design).
package errs

import (
	"bytes"
	"fmt"
	"runtime"
)

// Kind classifies an error independent of the message text, so callers
// can branch on it with errors.As or Is instead of string matching.
type Kind int

const (
	Other Kind = iota

	// ir
	UnknownTag
	MissingField
	TypeMismatch
	TooDeep

	// schema
	TableNotFound
	ColumnNotFound
	AmbiguousColumn

	// compiler
	Unsupported
	Internal

	// provider: propagated unchanged from a SchemaProvider implementation
	Provider
)

func (k Kind) String() string {
	switch k {
	case Other:
		return "error"
	case UnknownTag:
		return "unknown tag"
	case MissingField:
		return "missing field"
	case TypeMismatch:
		return "type mismatch"
	case TooDeep:
		return "expression too deep"
	case TableNotFound:
		return "table not found"
	case ColumnNotFound:
		return "column not found"
	case AmbiguousColumn:
		return "ambiguous column"
	case Unsupported:
		return "unsupported"
	case Internal:
		return "internal error"
	case Provider:
		return "schema provider error"
	}
	return "unknown error kind"
}

// OpIndex tags an E() call with the pipeline operator index the error
// occurred at. Use NoOp when the error isn't attributable to one operator.
type OpIndex int

// NoOp marks an error as not attributable to a single pipeline operator.
const NoOp OpIndex = -1

// Path tags an E() call with a dotted path into an expression tree, e.g.
// "ops[2].condition.right".
type Path string

// Error is the concrete error type produced by E. Kind classifies it;
// Err, when present, carries the underlying cause or message; OpIndex and
// Path, when set, pin the error to a location within a program.
type Error struct {
	Kind    Kind
	Err     error
	OpIndex OpIndex
	Path    Path
}

func pad(b *bytes.Buffer, s string) {
	if b.Len() == 0 {
		return
	}
	b.WriteString(s)
}

func (e *Error) Error() string {
	b := &bytes.Buffer{}
	if e.Kind != Other {
		pad(b, ": ")
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		pad(b, ": ")
		b.WriteString(e.Err.Error())
	}
	if e.OpIndex != NoOp {
		pad(b, " ")
		fmt.Fprintf(b, "(op %d)", e.OpIndex)
	}
	if e.Path != "" {
		pad(b, " ")
		fmt.Fprintf(b, "(at %s)", e.Path)
	}
	if b.Len() == 0 {
		return "no error"
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Message returns the wrapped error text if present, or the Kind's
// description otherwise, without the "(op N)"/"(at path)" suffix — useful
// for callers that want to render location separately.
func (e *Error) Message() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Kind != Other {
		return e.Kind.String()
	}
	return "no error"
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// KindOf returns the Kind of err if it is an *Error, or Other otherwise.
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return Other
}

// E builds an error from any mix of:
//   - a Kind
//   - an existing error (wrapped, via %w semantics on Unwrap)
//   - an OpIndex or Path, pinning the error to a pipeline location
//   - a string and optional formatting verbs, like fmt.Errorf; must be
//     last if present
//
// Grounded on the teacher's zqe.E: accept a free mix of typed arguments
// and build up the structured error.
func E(args ...interface{}) error {
	if len(args) == 0 {
		panic("no args to errs.E")
	}
	e := &Error{OpIndex: NoOp}
	for i, arg := range args {
		switch arg := arg.(type) {
		case Kind:
			e.Kind = arg
		case OpIndex:
			e.OpIndex = arg
		case Path:
			e.Path = arg
		case error:
			e.Err = arg
		case string:
			e.Err = fmt.Errorf(arg, args[i+1:]...)
			return e
		default:
			_, file, line, _ := runtime.Caller(1)
			return fmt.Errorf("unknown type %T value %v in errs.E call at %v:%v", arg, arg, file, line)
		}
	}
	return e
}
