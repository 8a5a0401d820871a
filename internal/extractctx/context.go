// Package extractctx provides the single explicit context object threaded
// through the rewriter, harvester, resolver and store for one extraction
// run, in place of process-wide singletons.
package extractctx

import (
	"github.com/andsch11/fremgen/internal/diagnostic"
	"github.com/andsch11/fremgen/internal/store"
	"github.com/andsch11/fremgen/internal/types"
)

// Context bundles the state a single extraction run threads through
// every component: the type registry, the accumulated parse result,
// and the diagnostic sink. One Context is constructed per invocation of
// the CLI and passed by pointer to every component; nothing in this
// repository keeps package-level mutable state instead.
type Context struct {
	Registry *types.Registry
	Store    *store.Store
	Diags    *diagnostic.Sink
}

// New creates a Context with a fresh registry, store and diagnostic sink.
func New() *Context {
	return &Context{
		Registry: types.NewRegistry(),
		Store:    store.New(),
		Diags:    diagnostic.NewSink(),
	}
}
