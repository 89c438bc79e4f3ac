// Package schema defines the SchemaProvider contract the compiler
// depends on to resolve base-table columns, plus a memoizing decorator
// collaborators can wrap around a provider that talks to a real catalog.
package schema

import (
	"fmt"

	"github.com/ColinClark/mlql/errors"
)

// DataType is the coarse type tag set a SchemaProvider reports, just
// detailed enough for the Substrait backend to pick function signatures.
type DataType string

const (
	Int32     DataType = "int32"
	Int64     DataType = "int64"
	Float32   DataType = "float"
	Float64   DataType = "double"
	String    DataType = "string"
	Bool      DataType = "bool"
	Date      DataType = "date"
	Timestamp DataType = "timestamp"
	Decimal   DataType = "decimal"
	Other     DataType = "other"
)

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name     string
	DataType DataType
	Nullable bool
}

// TableSchema is the ordered column list for a base relation.
type TableSchema struct {
	Name    string
	Columns []ColumnInfo
}

// Provider is the single lookup abstraction the compiler depends on. No
// caching is contractually required of an implementation: the compiler
// calls once per distinct Source::Table during a translation and is free
// to memoize per-translation via MemoProvider.
type Provider interface {
	GetTableSchema(name string) (TableSchema, error)
}

// NotFound builds a SchemaError{Kind: TableNotFound} naming the table.
func NotFound(name string) error {
	return errs.E(errs.TableNotFound, fmt.Sprintf("table %q not found", name))
}

// ColumnNotFound builds a SchemaError{Kind: ColumnNotFound} naming the
// column and the columns actually available at that point.
func ColumnNotFound(name string, available []string) error {
	return errs.E(errs.ColumnNotFound, fmt.Sprintf("column %q not found (available: %v)", name, available))
}

// Ambiguous builds a SchemaError{Kind: AmbiguousColumn} naming the
// unqualified column that resolves against more than one source.
func Ambiguous(name string) error {
	return errs.E(errs.AmbiguousColumn, fmt.Sprintf("column %q is ambiguous; qualify it", name))
}
