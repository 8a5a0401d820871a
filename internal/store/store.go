package store

// Store accumulates every declaration harvested across one or more
// translation units of a single extraction run. It is owned by an
// internal/extractctx.Context rather than kept as package-level state,
// so nothing here is itself concurrency-safe.
type Store struct {
	ReturnValues   []ReturnValue
	Configurations []Configuration
	Errors         []ErrorDescriptor
	Sockets        []Socket
	Functions      []RpcFunction

	processedFunctions map[string]struct{}
}

// New creates an empty Store.
func New() *Store {
	return &Store{processedFunctions: make(map[string]struct{})}
}

// AddFunction appends fn unless a function with the same fully
// qualified name has already been recorded, in which case it reports
// false and leaves the store unchanged. Dedup is keyed by fully
// qualified name, not by ID, since two declarations of the same
// function (e.g. a forward declaration visited twice) share a name
// but may not share an alias.
func (s *Store) AddFunction(fn RpcFunction) bool {
	if _, seen := s.processedFunctions[fn.FullyQualifiedName]; seen {
		return false
	}
	s.processedFunctions[fn.FullyQualifiedName] = struct{}{}
	s.Functions = append(s.Functions, fn)
	return true
}

// AddReturnValue appends a frem::RpcResultDecl constant.
func (s *Store) AddReturnValue(rv ReturnValue) {
	s.ReturnValues = append(s.ReturnValues, rv)
}

// AddConfiguration appends a configuration. Deduplication across
// configurations with identical field values happens in
// internal/yamlio at write time, not here, matching the source
// implementation's std::set-based uniquing at serialization.
func (s *Store) AddConfiguration(c Configuration) {
	s.Configurations = append(s.Configurations, c)
}

// AddError appends an error descriptor.
func (s *Store) AddError(e ErrorDescriptor) {
	s.Errors = append(s.Errors, e)
}

// AddSocket appends a socket declaration.
func (s *Store) AddSocket(sock Socket) {
	s.Sockets = append(s.Sockets, sock)
}

// IsProcessed reports whether a function with fqn has already been
// recorded, without adding anything.
func (s *Store) IsProcessed(fqn string) bool {
	_, ok := s.processedFunctions[fqn]
	return ok
}
