// Package mlql is the top-level entry point: decode a program, compile
// it to SQL or a Substrait plan against a SchemaProvider, or compute its
// canonical fingerprint (spec §6.3). The tagged-union IR model lives in
// ir, the schema environment and shared compile-time machinery in
// compiler, and the two translation targets in compiler/sql and
// compiler/substrait.
package mlql

import (
	"github.com/ColinClark/mlql/compiler"
	"github.com/ColinClark/mlql/compiler/sql"
	"github.com/ColinClark/mlql/compiler/substrait"
	"github.com/ColinClark/mlql/ir"
	"github.com/ColinClark/mlql/schema"
)

// Decode parses data into a Program, per ir.Decode.
func Decode(data []byte) (*ir.Program, error) {
	return ir.Decode(data)
}

// CompileSQL translates program into a standalone SQL SELECT statement.
func CompileSQL(program *ir.Program, provider schema.Provider, opts *compiler.Options) (string, error) {
	return sql.Compile(program, provider, opts)
}

// CompileSubstrait translates program into a Substrait Plan, serialized
// as protobuf-JSON text.
func CompileSubstrait(program *ir.Program, provider schema.Provider, opts *compiler.Options) (string, error) {
	return substrait.Compile(program, provider, opts)
}

// Fingerprint returns program's canonical SHA-256 digest.
func Fingerprint(program *ir.Program) ([32]byte, error) {
	return ir.Fingerprint(program)
}

// Validate runs the non-fail-fast lint pass over program.
func Validate(program *ir.Program, provider schema.Provider, opts *compiler.Options) error {
	return compiler.Validate(program, provider, opts)
}
