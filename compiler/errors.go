package compiler

import "github.com/ColinClark/mlql/errors"

// Re-exported so callers of this package (and its sql/substrait
// subpackages) don't need a second import for the shared error kinds and
// constructor.
const (
	Unsupported     = errs.Unsupported
	Internal        = errs.Internal
	TableNotFound   = errs.TableNotFound
	ColumnNotFound  = errs.ColumnNotFound
	AmbiguousColumn = errs.AmbiguousColumn
	NoOp            = errs.NoOp
)

// E builds a compiler-surfaced error; see errs.E for the accepted
// argument mix. Every error a backend returns is expected to carry an
// errs.OpIndex (or errs.NoOp) and, for expression errors, an errs.Path,
// per spec §7.
var E = errs.E

// At re-tags err with opIndex if err is an *errs.Error that doesn't
// already carry one, so a schema-layer error bubbling up through several
// call frames ends up attributed to the operator being translated when
// it's returned.
func At(err error, opIndex int) error {
	if e, ok := err.(*errs.Error); ok && e.OpIndex == errs.NoOp {
		e2 := *e
		e2.OpIndex = errs.OpIndex(opIndex)
		return &e2
	}
	return err
}

// AtPath additionally tags err with a dotted expression path if it
// doesn't already have one.
func AtPath(err error, opIndex int, path string) error {
	if e, ok := At(err, opIndex).(*errs.Error); ok && e.Path == "" {
		e2 := *e
		e2.Path = errs.Path(path)
		return &e2
	}
	return At(err, opIndex)
}
