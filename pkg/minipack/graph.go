package minipack

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	digest "github.com/opencontainers/go-digest"
	"github.com/pkg/errors"

	"github.com/chenwangji/minipack/pkg/compiler"
	"github.com/chenwangji/minipack/pkg/graph"
)

// Node is a module listed in dependency order.
type Node struct {
	ID       string
	Requires []string
	// Digest covers the module source and the digests of everything it
	// requires, so it changes whenever anything below the module changes.
	Digest digest.Digest
}

// UnsolvedError reports the modules left over by circular requires.
type UnsolvedError struct {
	IDs []string
}

func (e *UnsolvedError) Error() string {
	return "circular requires between " + strings.Join(e.IDs, ", ")
}

func (e *UnsolvedError) Unwrap() error { return graph.ErrUnsolvable }

// DependencyOrder lists every module after the modules it requires. When
// requires form a cycle the modules outside it are still returned, together
// with an *UnsolvedError.
//
// An entry module that another module requires is also in r.Modules. Both
// lists hold the same *compiler.Module, so each id is read once.
func (r *Result) DependencyOrder(ctx context.Context, concurrency int, log logr.Logger) ([]Node, error) {
	sources := map[string]string{}
	nodes := map[string][]string{}
	for _, m := range append(append([]*compiler.Module{}, r.Entries...), r.Modules...) {
		if _, ok := nodes[m.ID]; ok {
			continue
		}
		sources[m.ID] = m.Source
		nodes[m.ID] = append([]string(nil), m.Requires...)
	}
	for id, deps := range nodes {
		known := deps[:0]
		for _, d := range deps {
			if _, ok := nodes[d]; ok {
				known = append(known, d)
			}
		}
		nodes[id] = known
	}

	var (
		mu      sync.Mutex
		order   []Node
		digests = map[string]digest.Digest{}
	)
	g := &graph.Graph{
		Concurrency: concurrency,
		Nodes:       nodes,
		Log:         log,
		Process: func(ctx context.Context, id string) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			deps := append([]string(nil), nodes[id]...)
			sort.Strings(deps)
			d := digest.Canonical.Digester()
			d.Hash().Write([]byte(sources[id]))
			for _, dep := range deps {
				d.Hash().Write([]byte("\x00" + dep + "\x00" + digests[dep].String()))
			}
			digests[id] = d.Digest()
			order = append(order, Node{ID: id, Requires: nodes[id], Digest: digests[id]})
			return nil
		},
	}
	if err := g.Solve(ctx); err != nil {
		if errors.Is(err, graph.ErrUnsolvable) {
			return order, &UnsolvedError{IDs: g.Unsolved()}
		}
		return order, err
	}
	return order, nil
}
