package compose

import (
	"context"
	"reflect"
	"slices"
)

type (
	containerKey struct{}
	chainKey     struct{}
)

// WithContainer returns a copy of parent carrying c. Factories and
// constructors receive a context prepared this way.
func WithContainer(parent context.Context, c *Container) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, containerKey{}, c)
}

// FromContext returns the composition context stored in ctx.
func FromContext(ctx context.Context) (*Container, bool) {
	if ctx == nil {
		return nil, false
	}
	c, ok := ctx.Value(containerKey{}).(*Container)
	return c, ok && c != nil
}

// withChain stores the construction path in ctx, so resolutions reaching the
// container through FromContext or Resolver.Container stay on the same path.
func withChain(ctx context.Context, ch *chain) context.Context {
	return context.WithValue(ctx, chainKey{}, ch)
}

func chainFrom(ctx context.Context) *chain {
	if ctx == nil {
		return nil
	}
	ch, _ := ctx.Value(chainKey{}).(*chain)
	return ch
}

// chain is the immutable path of registrations under construction. Each
// construction extends its parent's chain, so concurrent resolutions never
// share state. cache is set for shared lifetimes and names the in-flight
// construction the node stands for.
type chain struct {
	key    string
	label  string
	cache  *instanceCache
	parent *chain
}

// push extends the chain with b, failing when b is already being constructed
// on this path.
func (c *chain) push(b *binding, cache *instanceCache) (*chain, error) {
	label := b.contract.String()
	for n := c; n != nil; n = n.parent {
		if n.key == b.key {
			return nil, &CyclicDependencyError{Chain: append(c.path(), label)}
		}
	}
	return &chain{key: b.key, label: label, cache: cache, parent: c}, nil
}

// flight returns the innermost shared construction on the path, the one the
// running goroutine is working for.
func (c *chain) flight() (flightID, bool) {
	for n := c; n != nil; n = n.parent {
		if n.cache != nil {
			return flightID{cache: n.cache, key: n.key}, true
		}
	}
	return flightID{}, false
}

func (c *chain) path() []string {
	var out []string
	for n := c; n != nil; n = n.parent {
		out = append(out, n.label)
	}
	slices.Reverse(out)
	return out
}

// resolution is the Resolver handed to constructors and factories. It
// resolves through its container while carrying the construction chain.
type resolution struct {
	container *Container
	chain     *chain
}

func (r *resolution) Resolve(ctx context.Context, contract Contract, name ...string) (any, error) {
	return r.container.resolve(ctx, r.chain, contract, firstName(name))
}

func (r *resolution) ResolveAll(ctx context.Context, contract Contract) (*Sequence, error) {
	return r.container.resolveAll(r.chain, contract)
}

func (r *resolution) ResolveExportFactories(ctx context.Context, contract Contract) ([]ExportFactory, error) {
	return r.container.exportFactories(r.chain, contract)
}

func (r *resolution) Container() *Container { return r.container }

// argument resolves one constructor parameter. A slice of a multi-instance
// contract receives every registration in processing order.
func (r *resolution) argument(ctx context.Context, p param) (reflect.Value, error) {
	if p.typ.Kind() == reflect.Slice && p.name == "" {
		elem := ContractFor(p.typ.Elem())
		if r.container.catalog.IsMultiple(elem) {
			seq, err := r.ResolveAll(ctx, elem)
			if err != nil {
				return reflect.Value{}, err
			}
			vals, err := seq.Materialize(ctx)
			if err != nil {
				return reflect.Value{}, err
			}
			out := reflect.MakeSlice(p.typ, 0, len(vals))
			for _, v := range vals {
				rv, err := valueFor(p.typ.Elem(), v)
				if err != nil {
					return reflect.Value{}, err
				}
				out = reflect.Append(out, rv)
			}
			return out, nil
		}
	}

	v, err := r.container.resolve(ctx, r.chain, p.contract, p.name)
	if err != nil {
		return reflect.Value{}, err
	}
	return valueFor(p.typ, v)
}
