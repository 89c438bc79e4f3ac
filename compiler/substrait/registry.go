package substrait

import "github.com/ColinClark/mlql/compiler"

// funcRegistry assigns deterministic anchors to (uri, signature) pairs
// in first-appearance order during a left-to-right pipeline walk (spec
// §4.5, §9's "no global state" note: one registry per translation,
// discarded afterward).
type funcRegistry struct {
	uriAnchors  map[string]uint32
	uriOrder    []string
	funcAnchors map[string]uint32
	funcOrder   []compiler.FunctionRef
	funcURI     map[string]string
}

func newFuncRegistry() *funcRegistry {
	return &funcRegistry{
		uriAnchors:  make(map[string]uint32),
		funcAnchors: make(map[string]uint32),
		funcURI:     make(map[string]string),
	}
}

func (r *funcRegistry) uriAnchor(uri string) uint32 {
	if a, ok := r.uriAnchors[uri]; ok {
		return a
	}
	a := uint32(len(r.uriOrder) + 1)
	r.uriAnchors[uri] = a
	r.uriOrder = append(r.uriOrder, uri)
	return a
}

// register returns ref's function anchor, assigning a fresh one on
// first appearance of its signature.
func (r *funcRegistry) register(ref compiler.FunctionRef) uint32 {
	r.uriAnchor(ref.URI)
	if a, ok := r.funcAnchors[ref.Signature]; ok {
		return a
	}
	a := uint32(len(r.funcOrder) + 1)
	r.funcAnchors[ref.Signature] = a
	r.funcURI[ref.Signature] = ref.URI
	r.funcOrder = append(r.funcOrder, ref)
	return a
}

func (r *funcRegistry) extensionUris() []ExtensionUri {
	out := make([]ExtensionUri, len(r.uriOrder))
	for i, uri := range r.uriOrder {
		out[i] = ExtensionUri{ExtensionUriAnchor: r.uriAnchors[uri], Uri: uri}
	}
	return out
}

func (r *funcRegistry) declarations() []SimpleExtensionDeclaration {
	out := make([]SimpleExtensionDeclaration, len(r.funcOrder))
	for i, ref := range r.funcOrder {
		out[i] = SimpleExtensionDeclaration{
			ExtensionFunction: &ExtensionFunction{
				ExtensionUriReference: r.uriAnchors[ref.URI],
				FunctionAnchor:        r.funcAnchors[ref.Signature],
				Name:                  ref.Name,
			},
		}
	}
	return out
}
