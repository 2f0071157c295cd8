// Package reactive wires named control values to the outputs computed from
// them.
//
// A Graph holds callbacks, each bound to one output and a set of inputs. When
// a host reports that some inputs changed, Dispatch runs every callback that
// watches one of them with the current input values and returns the new
// outputs. Callbacks know nothing about how they are triggered.
package reactive

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

var (
	// ErrUnknownInput is returned when a changed input is watched by no callback.
	ErrUnknownInput = errors.New("unknown input")
	// ErrMissingInput is returned when a callback input has no value in the state.
	ErrMissingInput = errors.New("missing input value")
	// ErrDuplicateOutput is returned when two callbacks claim the same output.
	ErrDuplicateOutput = errors.New("output already bound")
)

// Dependency names one property of one component, such as
// "site-dropdown.value".
type Dependency struct {
	ID       string `json:"id"`
	Property string `json:"property"`
}

func (d Dependency) String() string { return d.ID + "." + d.Property }

// ParseDependency reads the "id.property" form. The property follows the
// last dot, so ids may contain dots.
func ParseDependency(s string) (Dependency, error) {
	i := strings.LastIndexByte(s, '.')
	if i <= 0 || i == len(s)-1 {
		return Dependency{}, errors.Newf("dependency %q is not of the form id.property", s)
	}
	return Dependency{ID: s[:i], Property: s[i+1:]}, nil
}

// State holds the current value of every input, keyed by Dependency.String().
type State map[string]json.RawMessage

// Decode unmarshals the value of d into v.
func (s State) Decode(d Dependency, v any) error {
	raw, ok := s[d.String()]
	if !ok {
		return errors.Mark(errors.Newf("%s", d), ErrMissingInput)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.Wrapf(err, "decode %s", d)
	}
	return nil
}

// Func computes an output from the current state.
type Func func(ctx context.Context, in State) (any, error)

// Observer is told about every callback invocation.
type Observer func(output Dependency, took time.Duration, err error)

// Callback binds an output to the inputs it is computed from.
type Callback struct {
	Output Dependency   `json:"output"`
	Inputs []Dependency `json:"inputs"`
	fn     Func
}

// Graph is the set of registered callbacks. Register everything before the
// first Dispatch; after that the graph is only read and Dispatch may be
// called concurrently.
type Graph struct {
	mu        sync.RWMutex
	callbacks []*Callback
	outputs   map[string]struct{}
	watchers  map[string][]*Callback
	observers []Observer
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		outputs:  make(map[string]struct{}),
		watchers: make(map[string][]*Callback),
	}
}

// Register binds fn to output, to be re-run whenever any of inputs changes.
func (g *Graph) Register(output Dependency, inputs []Dependency, fn Func) error {
	if len(inputs) == 0 {
		return errors.Newf("callback for %s has no inputs", output)
	}
	if fn == nil {
		return errors.Newf("callback for %s has no function", output)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.outputs[output.String()]; ok {
		return errors.Mark(errors.Newf("%s", output), ErrDuplicateOutput)
	}
	cb := &Callback{Output: output, Inputs: append([]Dependency(nil), inputs...), fn: fn}
	g.callbacks = append(g.callbacks, cb)
	g.outputs[output.String()] = struct{}{}
	for _, in := range inputs {
		g.watchers[in.String()] = append(g.watchers[in.String()], cb)
	}
	return nil
}

// Observe adds an observer called after every callback invocation.
func (g *Graph) Observe(o Observer) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observers = append(g.observers, o)
}

// Callbacks lists the registered callbacks in registration order.
func (g *Graph) Callbacks() []Callback {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Callback, 0, len(g.callbacks))
	for _, cb := range g.callbacks {
		out = append(out, Callback{Output: cb.Output, Inputs: cb.Inputs})
	}
	return out
}

// Result maps an output (Dependency.String()) to its new value.
type Result map[string]any

// Dispatch runs, in registration order, every callback watching at least one
// of changed, and returns their outputs. The first failing callback aborts
// the dispatch.
func (g *Graph) Dispatch(ctx context.Context, changed []Dependency, state State) (Result, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	triggered := make(map[*Callback]struct{})
	for _, d := range changed {
		cbs, ok := g.watchers[d.String()]
		if !ok {
			return nil, errors.Mark(errors.Newf("%s", d), ErrUnknownInput)
		}
		for _, cb := range cbs {
			triggered[cb] = struct{}{}
		}
	}

	var run []*Callback
	for _, cb := range g.callbacks {
		if _, ok := triggered[cb]; ok {
			run = append(run, cb)
		}
	}
	return g.run(ctx, run, state)
}

// Resolve runs every callback, as for the first render of a page.
func (g *Graph) Resolve(ctx context.Context, state State) (Result, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.run(ctx, g.callbacks, state)
}

func (g *Graph) run(ctx context.Context, cbs []*Callback, state State) (Result, error) {
	out := make(Result, len(cbs))
	for _, cb := range cbs {
		for _, in := range cb.Inputs {
			if _, ok := state[in.String()]; !ok {
				return nil, errors.Mark(errors.Newf("%s needs %s", cb.Output, in), ErrMissingInput)
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		v, err := cb.fn(ctx, state)
		took := time.Since(start)
		for _, o := range g.observers {
			o(cb.Output, took, err)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "callback %s", cb.Output)
		}
		out[cb.Output.String()] = v
	}
	return out, nil
}
