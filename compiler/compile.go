package compiler

import "github.com/ColinClark/mlql/ir"

// Fingerprint re-exports ir.Fingerprint so a caller that only imports
// compiler (for CompileSQL/CompileSubstrait) doesn't need a second
// import to satisfy spec §6.3's fingerprint(program) entry point.
func Fingerprint(p *ir.Program) ([32]byte, error) {
	return ir.Fingerprint(p)
}
