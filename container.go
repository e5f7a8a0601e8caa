package compose

import (
	"context"
	"fmt"
	"io"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Container is a composition context. The root is created by Build; child
// contexts are created with CreateScope and share the root's catalog and
// singleton cache while keeping a private scoped cache.
type Container struct {
	id         string
	depth      int
	parent     *Container
	root       *Container
	catalog    *Catalog
	opts       *options
	logger     *zap.Logger
	singletons *instanceCache
	scoped     *instanceCache
	disposed   atomic.Bool
}

// Build runs the configured convention registrars, freezes catalog and
// returns the root composition context. The catalog stays frozen when Build
// fails afterwards, for example on validation; a corrected setup needs a new
// catalog.
func Build(catalog *Catalog, opts ...Option) (*Container, error) {
	if catalog == nil {
		return nil, &ConfigurationError{Reason: "catalog is nil"}
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.Named("compose")

	if len(o.registrars) > 0 {
		if err := catalog.ApplyConventions(o.candidates, o.filter, o.registrars...); err != nil {
			return nil, err
		}
	}
	catalog.freeze()

	if o.validate {
		if err := validateCatalog(catalog, o.ambiguity); err != nil {
			return nil, err
		}
	}

	root := newContainer(nil, catalog, o)
	root.logger.Debug("composition context built",
		zap.Int("registrations", catalog.Len()),
		zap.Stringer("ambiguity", o.ambiguity),
		zap.Bool("validated", o.validate),
	)
	return root, nil
}

func newContainer(parent *Container, catalog *Catalog, o *options) *Container {
	c := &Container{
		id:      uuid.NewString(),
		parent:  parent,
		catalog: catalog,
		opts:    o,
	}
	if parent == nil {
		c.root = c
		c.singletons = newInstanceCache(newWaitGraph())
	} else {
		c.root = parent.root
		c.depth = parent.depth + 1
		c.singletons = parent.root.singletons
	}
	c.scoped = newInstanceCache(c.singletons.waits)
	c.logger = o.logger.With(zap.String("scope", c.id), zap.Int("depth", c.depth))
	o.metrics.scopeOpened()
	return c
}

// ID returns the unique identifier of the context.
func (c *Container) ID() string { return c.id }

// Parent returns the context this one was created from, nil for the root.
func (c *Container) Parent() *Container { return c.parent }

// Root returns the root context of the tree.
func (c *Container) Root() *Container { return c.root }

// Catalog returns the frozen catalog shared by the tree.
func (c *Container) Catalog() *Catalog { return c.catalog }

// Container returns c. It lets *Container satisfy Resolver.
func (c *Container) Container() *Container { return c }

// Disposed reports whether Dispose has been called.
func (c *Container) Disposed() bool { return c.disposed.Load() }

// Resolve returns the value of the winning registration for contract. An
// optional name restricts the lookup to registrations carrying that name.
// Returns NoServiceRegisteredError, AmbiguousServiceError or ConfigurationError
// when no single winner exists.
func (c *Container) Resolve(ctx context.Context, contract Contract, name ...string) (any, error) {
	return c.resolve(ctx, chainFrom(ctx), contract, firstName(name))
}

// ResolveAll returns every registration of contract ordered by processing
// priority then registration order. Values are constructed when iterated.
func (c *Container) ResolveAll(ctx context.Context, contract Contract) (*Sequence, error) {
	return c.resolveAll(chainFrom(ctx), contract)
}

// ResolveExportFactories returns one lazy, metadata-aware handle per
// registration of contract, in ResolveAll order.
func (c *Container) ResolveExportFactories(ctx context.Context, contract Contract) ([]ExportFactory, error) {
	return c.exportFactories(chainFrom(ctx), contract)
}

// CreateScope returns a child context with an empty scoped cache.
func (c *Container) CreateScope() (*Container, error) {
	if c.disposed.Load() {
		return nil, ErrContainerDisposed
	}
	child := newContainer(c, c.catalog, c.opts)
	c.logger.Debug("scope created", zap.String("child", child.id))
	return child, nil
}

// Dispose releases every Disposable or io.Closer value constructed into this
// context's scoped cache, in reverse construction order. The root also
// releases the singleton cache. Release continues past failures, which are
// reported together as a DisposalError. Dispose is idempotent.
func (c *Container) Dispose(ctx context.Context) error {
	if !c.disposed.CompareAndSwap(false, true) {
		return nil
	}

	vals := c.scoped.close()
	if c.root == c {
		vals = append(vals, c.singletons.close()...)
	}

	var errs error
	for _, cv := range vals {
		if err := release(ctx, cv.value); err != nil {
			c.logger.Warn("service disposal failed", zap.String("service", cv.label), zap.Error(err))
			c.opts.metrics.disposalFailed()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", cv.label, err))
		}
	}
	c.opts.metrics.scopeClosed()
	c.logger.Debug("scope disposed", zap.Int("released", len(vals)))

	if errs != nil {
		return &DisposalError{Scope: c.id, Err: errs}
	}
	return nil
}

// Close disposes the context with a background context.
func (c *Container) Close() error {
	return c.Dispose(context.Background())
}

func (c *Container) resolve(ctx context.Context, ch *chain, contract Contract, name string) (any, error) {
	if c.disposed.Load() {
		return nil, ErrContainerDisposed
	}
	b, err := c.winner(contract, name)
	if err != nil {
		c.opts.metrics.resolved(err)
		return nil, err
	}
	v, err := c.instantiate(ctx, ch, b)
	c.opts.metrics.resolved(err)
	return v, err
}

// winner applies the resolution algorithm to contract. Multi-instance
// contracts yield the first registration in processing order.
func (c *Container) winner(contract Contract, name string) (*binding, error) {
	bs, err := c.catalog.candidates(contract)
	if err != nil {
		return nil, err
	}
	bs = filterByName(bs, name)
	if len(bs) == 0 {
		return nil, &NoServiceRegisteredError{Contract: contract.String(), Name: name}
	}
	if c.catalog.IsMultiple(contract) {
		return orderForAll(bs)[0], nil
	}
	return selectWinner(contract, bs, c.opts.ambiguity)
}

func (c *Container) resolveAll(ch *chain, contract Contract) (*Sequence, error) {
	if c.disposed.Load() {
		return nil, ErrContainerDisposed
	}
	bs, err := c.catalog.candidates(contract)
	if err != nil {
		return nil, err
	}
	ordered := orderForAll(bs)
	seq := &Sequence{items: make([]*element, len(ordered))}
	for i, b := range ordered {
		seq.items[i] = &element{
			reg: b.reg,
			build: func(ctx context.Context) (any, error) {
				return c.instantiate(ctx, ch, b)
			},
		}
	}
	return seq, nil
}

func (c *Container) exportFactories(ch *chain, contract Contract) ([]ExportFactory, error) {
	seq, err := c.resolveAll(ch, contract)
	if err != nil {
		return nil, err
	}
	out := make([]ExportFactory, len(seq.items))
	for i, it := range seq.items {
		out[i] = ExportFactory{metadata: it.reg.exportMetadata(), create: it.build}
	}
	return out, nil
}

// instantiate produces the value of b according to its lifetime.
func (c *Container) instantiate(ctx context.Context, ch *chain, b *binding) (any, error) {
	if inst, ok := b.reg.Strategy.(*InstanceStrategy); ok {
		return inst.Value, nil
	}

	var cache *instanceCache
	switch b.reg.Lifetime {
	case Singleton:
		cache = c.root.singletons
	case Scoped:
		cache = c.scoped
	}
	next, err := ch.push(b, cache)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		return c.construct(ctx, next, b)
	}

	// singletons are built by the root so their dependencies resolve there
	owner := c
	if b.reg.Lifetime == Singleton {
		owner = c.root
	}
	// shared constructions outlive the cancellation of the caller that started them
	return cache.getOrCreate(ctx, ch, b.key, b.contract.String(), func() (any, error) {
		return owner.construct(context.WithoutCancel(ctx), next, b)
	}, owner.releaseLate)
}

// construct builds a new value for b through its strategy.
func (c *Container) construct(ctx context.Context, ch *chain, b *binding) (v any, err error) {
	start := time.Now()
	ctx, span := c.opts.tracer.Start(ctx, "compose.construct", trace.WithAttributes(
		attribute.String("compose.contract", b.contract.String()),
		attribute.String("compose.implementation", b.reg.Implementation()),
		attribute.String("compose.lifetime", b.reg.Lifetime.String()),
		attribute.String("compose.scope", c.id),
	))
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, &InitializationError{Type: b.reg.Implementation(), Err: fmt.Errorf("panic: %v", r)}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		c.opts.metrics.constructed(b.reg.Lifetime, time.Since(start), err)
		c.logger.Debug("service constructed",
			zap.Stringer("contract", b.contract),
			zap.String("implementation", b.reg.Implementation()),
			zap.Stringer("lifetime", b.reg.Lifetime),
			zap.Duration("took", time.Since(start)),
			zap.Error(err),
		)
	}()

	ctx = withChain(WithContainer(ctx, c), ch)
	res := &resolution{container: c, chain: ch}

	if f, ok := b.reg.Strategy.(*FactoryStrategy); ok {
		v, err = f.Fn(ctx, res)
	} else {
		v, err = b.recipe.build(ctx, res, res.argument)
	}
	if err != nil {
		return nil, wrapConstruction(b, err)
	}
	if isNil(v) {
		return nil, &NilServiceError{Type: b.contract.String()}
	}
	if t := b.contract.Type(); t != nil && !reflect.TypeOf(v).AssignableTo(t) {
		return nil, &TypeMismatchError{Expected: typeName(t), Got: typeName(reflect.TypeOf(v))}
	}
	if in, ok := v.(Initializer); ok {
		if err := in.Initialize(ctx); err != nil {
			return nil, &InitializationError{Type: b.reg.Implementation(), Err: err}
		}
	}
	return v, nil
}

// releaseLate disposes a value whose construction finished after its cache
// was disposed.
func (c *Container) releaseLate(cv cachedValue) {
	if err := release(context.Background(), cv.value); err != nil {
		c.logger.Warn("late service disposal failed", zap.String("service", cv.label), zap.Error(err))
		c.opts.metrics.disposalFailed()
	}
}

func release(ctx context.Context, v any) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	switch d := v.(type) {
	case Disposable:
		return d.Dispose(ctx)
	case io.Closer:
		return d.Close()
	}
	return nil
}

// wrapConstruction keeps cycle reports and nested initialization failures as
// they are and wraps everything else with the failing implementation.
func wrapConstruction(b *binding, err error) error {
	switch err.(type) {
	case *CyclicDependencyError, *InitializationError:
		return err
	}
	return &InitializationError{Type: b.reg.Implementation(), Err: err}
}

func firstName(names []string) string {
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
