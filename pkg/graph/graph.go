// Package graph processes the nodes of a dependency graph with a pool of
// workers, starting a node only once everything it depends on is done.
package graph

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/go-logr/logr"
)

var (
	ErrUnsolvable = errors.New("graph: unsolvable graph")
)

type done struct {
	id  string
	err error
}

type work struct {
	id   string
	ctx  context.Context
	done chan done
}

type ProcessFunc func(ctx context.Context, id string) error

// Graph maps every node to the nodes it depends on. Dependencies must be
// nodes of the graph themselves.
type Graph struct {
	Concurrency int
	Nodes       map[string][]string
	Process     ProcessFunc
	Log         logr.Logger

	ids       []string
	wg        *sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	inFlight  map[string]bool
	completed map[string]bool
	work      chan work
	err       error
	done      chan done
}

func (g *Graph) init() {
	if g.Concurrency < 1 {
		g.Concurrency = 1
	}
	if g.Log.GetSink() == nil {
		g.Log = logr.Discard()
	}
	g.ids = make([]string, 0, len(g.Nodes))
	for id := range g.Nodes {
		g.ids = append(g.ids, id)
	}
	sort.Strings(g.ids)
	g.completed = map[string]bool{}
	g.inFlight = map[string]bool{}
	g.work = make(chan work, g.Concurrency)
	g.done = make(chan done)
	g.wg = &sync.WaitGroup{}
	g.ctx, g.cancel = context.WithCancel(context.Background())
}

// Solve processes every node. It returns the first processing error, the
// context error, or ErrUnsolvable when the remaining nodes depend on each
// other in a cycle.
func (g *Graph) Solve(ctx context.Context) error {
	g.init()
	defer g.cancel()

	g.wg.Add(g.Concurrency)
	for i := 0; i < g.Concurrency; i++ {
		go worker(g.Log.WithValues("worker", i), g.Process, g.wg, g.work)
	}
	err := g.pump(ctx)
	g.wg.Wait()
	close(g.done)
	return err
}

// Unsolved lists, after Solve, the nodes that were never processed.
func (g *Graph) Unsolved() []string {
	var out []string
	for _, id := range g.ids {
		if !g.completed[id] {
			out = append(out, id)
		}
	}
	return out
}

// Worker processes individual items from the work queue.
func worker(log logr.Logger, process ProcessFunc, wg *sync.WaitGroup, work chan work) {
	defer wg.Done()

	for work := range work {
		log.V(2).Info("starting work", "node", work.id)
		err := process(work.ctx, work.id)
		work.done <- done{id: work.id, err: err}
	}
}

// Reads from done channel and pumps work into the work channel. This function
// sets state on the graph object.
func (g *Graph) pump(ctx context.Context) error {
	defer close(g.work)

	if len(g.Nodes) == 0 {
		return nil
	}
	if !g.sendWork() {
		return ErrUnsolvable
	}

	// Wait for a worker to be freed to send more work down the work channel.
	// If jobs are still in flight, we continue to read from the done channel.
	cancelled := ctx.Done()
	for !g.finished() || g.working() {
		select {
		case done := <-g.done:
			g.complete(done.id)

			// If there's an error, mark this globally.
			if done.err != nil {
				g.Log.V(1).Info("work failed", "node", done.id, "error", done.err.Error())
				g.errored(done.err)
			}

			if !g.finished() {
				sent := g.sendWork()
				// Unsolvable case: no in flight processing and no new work
				// sent to the queue. A circular dependency must exist.
				if !sent && !g.working() {
					return ErrUnsolvable
				}
			}
		case <-cancelled:
			cancelled = nil
			g.errored(ctx.Err())
		}
	}
	return g.err
}

// Errored keeps the first error and cancels all work.
func (g *Graph) errored(err error) {
	if g.err == nil {
		g.err = err
	}
	g.cancel()
}

func (g *Graph) working() bool {
	return len(g.inFlight) > 0
}

func (g *Graph) finished() bool {
	return g.err != nil || len(g.completed) >= len(g.Nodes)
}

// Complete a set of work marking it done and not in flight.
func (g *Graph) complete(id string) {
	g.completed[id] = true
	delete(g.inFlight, id)
}

// SendWork pushes ready nodes into the work channel in id order until the
// channel is full.
func (g *Graph) sendWork() (sent bool) {
	for _, id := range g.ids {
		if !g.ready(id) {
			continue
		}
		select {
		case g.work <- work{id: id, ctx: g.ctx, done: g.done}:
		default:
			return
		}
		g.inFlight[id] = true
		sent = true
	}
	return
}

// Ready returns whether work can be started on.
func (g *Graph) ready(id string) bool {
	if g.inFlight[id] {
		return false
	}
	if g.completed[id] {
		return false
	}
	for _, dep := range g.Nodes[id] {
		if !g.completed[dep] {
			return false
		}
	}
	return true // All dependencies are completed.
}
