package dispatchresult

import "reflect"

// TypeResolver maps a nominal, unqualified type name back to a concrete
// reflect.Type, for decoding a remote dispatch's message payload into its
// original Go type. Resolution failure is not an error: DecodeData falls
// back to a generic map[string]any branch, mirroring the wire format's
// own "self-describing, falls back to unknown-type" contract.
type TypeResolver interface {
	Resolve(name string) (reflect.Type, bool)
}

// TypeRegistry is a simple map-backed TypeResolver that applications
// populate with every message type they want remote dispatch to
// reconstruct faithfully rather than as a generic map.
type TypeRegistry struct {
	byName map[string]reflect.Type
}

// NewTypeRegistry returns an empty TypeRegistry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{byName: make(map[string]reflect.Type)}
}

// Register associates example's dynamic type with its own type name
// (Type.String()) for later resolution.
func (r *TypeRegistry) Register(example any) {
	t := reflect.TypeOf(example)
	r.byName[t.String()] = t
}

// Resolve implements TypeResolver.
func (r *TypeRegistry) Resolve(name string) (reflect.Type, bool) {
	t, ok := r.byName[name]
	return t, ok
}
