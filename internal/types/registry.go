package types

import (
	"hash/fnv"
	"strings"

	"github.com/andsch11/fremgen/internal/position"
)

// builtinNames lists the types the registry knows about without ever
// seeing a declaration for them. Any name containing the substring
// "int" additionally gets a std:: internal alias installed, which
// deliberately also catches uintN_t names — matching the source
// system's own literal substring check rather than a signed-int-only
// allowlist.
var builtinNames = []string{
	"void", "bool", "char",
	"int8_t", "int16_t", "int32_t", "int64_t",
	"uint8_t", "uint16_t", "uint32_t", "uint64_t",
	"float", "double",
	"frem::RpcResult",
}

// Registry is the type registry (component A): every builtin, enum,
// struct and alias known to the current extraction run, keyed by fully
// qualified name.
type Registry struct {
	byFQN           map[string]*InterfaceType
	aliases         map[string]string
	internalAliases map[string]string
	pendingAliases  map[string]forwardAlias
	order           []string
}

// forwardAlias is an alias recorded before its target type was ever
// registered ("forward-alias parking"); Register applies it to the type's
// ID/ExpositionLocation the moment that fqn is first registered.
type forwardAlias struct {
	name     string
	location position.Position
}

// NewRegistry creates a Registry with its builtins and std:: intN_t
// synonyms already installed.
func NewRegistry() *Registry {
	r := &Registry{
		byFQN:           make(map[string]*InterfaceType),
		aliases:         make(map[string]string),
		internalAliases: make(map[string]string),
		pendingAliases:  make(map[string]forwardAlias),
	}
	for _, name := range builtinNames {
		r.registerBuiltin(name)
		if strings.Contains(name, "int") {
			r.SetInternalAlias("std::"+name, name)
		}
	}
	return r
}

func hashFQN(fqn string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(fqn))
	return h.Sum32()
}

func (r *Registry) registerBuiltin(fqn string) *InterfaceType {
	t := &InterfaceType{Hash: hashFQN(fqn), FullyQualifiedName: fqn, ID: fqn, Kind: KindBuiltIn}
	r.byFQN[fqn] = t
	return t
}

// Register records a user-defined type (enum or struct) under fqn,
// overwriting any previous entry of the same name, and appends it to
// the registration-order list used for YAML output. Composite kinds
// (array/optional/variant/future) are never registered here: they are
// anonymous and only ever appear embedded in another type's fields or
// in a function's parameters/return type.
//
// If t.ID is unset it defaults to the fully-qualified name, and any
// alias parked by an earlier SetAlias call for this fqn is applied now.
func (r *Registry) Register(t *InterfaceType) *InterfaceType {
	t.Hash = hashFQN(t.FullyQualifiedName)
	if t.ID == "" {
		t.ID = t.FullyQualifiedName
	}
	if fa, ok := r.pendingAliases[t.FullyQualifiedName]; ok {
		t.ID = fa.name
		t.ExpositionLocation = fa.location
		delete(r.pendingAliases, t.FullyQualifiedName)
	} else if t.ExpositionLocation == (position.Position{}) {
		t.ExpositionLocation = t.DeclarationLocation
	}
	if _, exists := r.byFQN[t.FullyQualifiedName]; !exists {
		r.order = append(r.order, t.FullyQualifiedName)
	}
	r.byFQN[t.FullyQualifiedName] = t
	return t
}

// Lookup resolves name through the alias tables (user aliases first,
// then internal aliases) before falling back to a direct registry
// entry. Aliases are resolved lazily on every call, so SetAlias and
// SetInternalAlias may be called before their target type exists
// ("forward-alias parking").
func (r *Registry) Lookup(name string) (*InterfaceType, bool) {
	if target, ok := r.aliases[name]; ok {
		return r.Lookup(target)
	}
	if target, ok := r.internalAliases[name]; ok {
		return r.Lookup(target)
	}
	t, ok := r.byFQN[name]
	return t, ok
}

// SetAlias installs a user-facing alias (from FREM_TYPE_ALIAS) pointing
// at canonicalFQN, and applies its effect on the target type's own
// display name: id becomes aliasName and expositionLocation becomes
// exposition. If canonicalFQN has not been registered yet, the alias is
// parked and applied by Register the moment that fqn is first
// registered ("forward-alias parking"). A later SetAlias call for the
// same aliasName silently replaces the earlier one: alias collisions are
// last-write-wins with no diagnostic, matching the observed (if
// inconsistent) source behavior.
func (r *Registry) SetAlias(aliasName, canonicalFQN string, exposition position.Position) {
	r.aliases[aliasName] = canonicalFQN
	if t, ok := r.byFQN[canonicalFQN]; ok {
		t.ID = aliasName
		t.ExpositionLocation = exposition
		return
	}
	r.pendingAliases[canonicalFQN] = forwardAlias{name: aliasName, location: exposition}
}

// SetInternalAlias installs a registry-internal synonym (currently only
// used for the std::intN_t spellings of the fixed-width builtins). It
// is kept in a separate table from SetAlias so provenance stays clear,
// even though both resolve through the same Lookup path.
func (r *Registry) SetInternalAlias(aliasName, canonicalName string) {
	r.internalAliases[aliasName] = canonicalName
}

// RegisteredTypes returns the user-defined (non-builtin) types in the
// order they were first registered, the order the YAML binding layer
// writes the top-level "types" section in.
func (r *Registry) RegisteredTypes() []*InterfaceType {
	out := make([]*InterfaceType, 0, len(r.order))
	for _, fqn := range r.order {
		out = append(out, r.byFQN[fqn])
	}
	return out
}
