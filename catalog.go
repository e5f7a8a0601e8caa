package compose

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// binding is a registration matched against a requested closed contract.
type binding struct {
	reg      *Registration
	contract Contract
	recipe   *recipe
	key      string
}

// Catalog holds the registrations known to a composition context tree. It is
// mutable until Build freezes it.
type Catalog struct {
	mu         sync.RWMutex
	byContract map[contractKey][]*Registration
	all        []*Registration
	multiple   map[contractKey]bool
	seq        uint64
	frozen     bool
	logger     *zap.Logger

	// closed generic bindings, keyed by registration order and type arguments
	closed sync.Map
}

// CatalogOption configures a catalog.
type CatalogOption func(*Catalog)

// CatalogLogger sets the logger used while the catalog is assembled.
func CatalogLogger(l *zap.Logger) CatalogOption {
	return func(c *Catalog) {
		if l != nil {
			c.logger = l.Named("catalog")
		}
	}
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		byContract: make(map[contractKey][]*Registration, 32),
		multiple:   make(map[contractKey]bool),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Add registers strategy under contract with the given options.
func (c *Catalog) Add(contract Contract, strategy Strategy, opts ...RegistrationOption) error {
	reg := Registration{Contract: contract, Strategy: strategy}
	for _, opt := range opts {
		opt(&reg)
	}
	_, err := c.Register(reg)
	return err
}

// Register validates reg, assigns its order and stores it.
// Returns FrozenCatalogError once a container has been built from the catalog.
func (c *Catalog) Register(reg Registration) (*Registration, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return nil, &FrozenCatalogError{Contract: reg.Contract.String()}
	}

	r := reg
	if err := prepare(&r); err != nil {
		return nil, err
	}

	c.seq++
	r.order = c.seq
	key := r.matchContract().key()
	c.byContract[key] = append(c.byContract[key], &r)
	c.all = append(c.all, &r)

	c.logger.Debug("registered service",
		zap.Stringer("contract", r.matchContract()),
		zap.String("implementation", r.Implementation()),
		zap.Stringer("lifetime", r.Lifetime),
		zap.Uint64("order", r.order),
	)
	return &r, nil
}

// Remove drops every registration of contract accepted by match. Orders of
// removed registrations are never reused.
func (c *Catalog) Remove(contract Contract, match func(*Registration) bool) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return 0, &FrozenCatalogError{Contract: contract.String()}
	}

	key := contract.key()
	kept := c.byContract[key][:0]
	removed := make(map[*Registration]bool)
	for _, r := range c.byContract[key] {
		if match == nil || match(r) {
			removed[r] = true
			continue
		}
		kept = append(kept, r)
	}
	c.byContract[key] = kept

	if len(removed) > 0 {
		all := c.all[:0]
		for _, r := range c.all {
			if !removed[r] {
				all = append(all, r)
			}
		}
		c.all = all
	}
	return len(removed), nil
}

// AllowMultiple marks contracts as multi-instance. For generic contracts the
// open contract should be marked; every closing inherits the flag.
func (c *Catalog) AllowMultiple(contracts ...Contract) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		return &FrozenCatalogError{Contract: fmt.Sprint(contracts)}
	}
	for _, ct := range contracts {
		c.multiple[ct.key()] = true
	}
	return nil
}

// IsMultiple reports whether contract allows multiple registrations to be
// resolved as an ordered sequence.
func (c *Catalog) IsMultiple(contract Contract) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.multiple[contract.key()] {
		return true
	}
	return contract.IsGeneric() && c.multiple[contract.Open().key()]
}

// Frozen reports whether a container has been built from the catalog.
func (c *Catalog) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}

// Len returns the number of registrations.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.all)
}

func (c *Catalog) freeze() {
	c.mu.Lock()
	c.frozen = true
	c.mu.Unlock()
}

// registrations returns a snapshot in insertion order.
func (c *Catalog) registrations() []*Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Registration(nil), c.all...)
}

// candidates returns every registration matching a closed contract, in
// registration order. Open generic registrations are closed over the
// requested type arguments.
func (c *Catalog) candidates(contract Contract) ([]*binding, error) {
	if contract.IsZero() {
		return nil, &ConfigurationError{Reason: "contract is not set"}
	}
	if contract.IsOpen() {
		return nil, &ConfigurationError{
			Contract: contract.String(),
			Reason:   "an open contract cannot be resolved; close it with type arguments",
		}
	}

	c.mu.RLock()
	direct := c.byContract[contract.key()]
	var open []*Registration
	if contract.IsGeneric() {
		open = c.byContract[contract.Open().key()]
	}
	c.mu.RUnlock()

	out := make([]*binding, 0, len(direct)+len(open))
	for _, r := range direct {
		out = append(out, &binding{
			reg:      r,
			contract: contract,
			recipe:   r.recipe,
			key:      strconv.FormatUint(r.order, 10),
		})
	}
	for _, r := range open {
		b, err := c.closeGeneric(r, contract)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if len(open) > 0 && len(direct) > 0 {
		sort.SliceStable(out, func(i, j int) bool { return out[i].reg.order < out[j].reg.order })
	}
	return out, nil
}

// closeGeneric closes an open generic registration for a requested closed contract.
func (c *Catalog) closeGeneric(r *Registration, contract Contract) (*binding, error) {
	key := strconv.FormatUint(r.order, 10) + "|" + contract.key().args
	if b, ok := c.closed.Load(key); ok {
		return b.(*binding), nil
	}

	gen := r.Strategy.(*GenericTypeStrategy)
	if len(contract.args) != gen.Shape.Arity() {
		return nil, &ConfigurationError{
			Contract:       contract.String(),
			Implementation: gen.Shape.String(),
			Reason:         fmt.Sprintf("expected %d type arguments, got %d", gen.Shape.Arity(), len(contract.args)),
		}
	}
	ts, err := gen.Close(contract.args...)
	if err != nil {
		return nil, &ConfigurationError{
			Contract:       contract.String(),
			Implementation: gen.Shape.String(),
			Reason:         "closing the generic implementation failed",
			Err:            err,
		}
	}
	if ts == nil || ts.Implementation == nil {
		return nil, &ConfigurationError{
			Contract:       contract.String(),
			Implementation: gen.Shape.String(),
			Reason:         "the generic implementation has no closing for these type arguments",
		}
	}
	rc, err := analyzeRecipe(ts.Implementation, ts.Constructors)
	if err != nil {
		return nil, err
	}

	b := &binding{reg: r, contract: contract, recipe: rc, key: key}
	actual, _ := c.closed.LoadOrStore(key, b)
	return actual.(*binding), nil
}

// prepare validates a registration and computes its constructor recipe.
func prepare(r *Registration) error {
	if r.Contract.IsZero() {
		return &ConfigurationError{Implementation: r.Implementation(), Reason: "registration has no contract"}
	}
	if r.Strategy == nil {
		return &ConfigurationError{Contract: r.Contract.String(), Reason: "registration has no instancing strategy"}
	}
	if r.Lifetime == "" {
		r.Lifetime = Transient
	}
	if !r.Lifetime.valid() {
		return &ConfigurationError{Contract: r.Contract.String(), Reason: fmt.Sprintf("unknown lifetime %q", r.Lifetime)}
	}
	if r.Metadata == nil {
		r.Metadata = Metadata{}
	} else {
		r.Metadata = r.Metadata.Clone()
	}

	if gen, ok := r.Strategy.(*GenericTypeStrategy); ok {
		if gen.Shape == nil || gen.Close == nil {
			return &ConfigurationError{Contract: r.Contract.String(), Reason: "generic implementation needs a shape and a close function"}
		}
		if !r.Contract.IsOpen() {
			return &ConfigurationError{
				Contract:       r.Contract.String(),
				Implementation: gen.Shape.String(),
				Reason:         "an open generic implementation needs an open contract",
			}
		}
		if gen.Shape.Arity() != r.Contract.Shape().Arity() {
			return &ConfigurationError{
				Contract:       r.Contract.String(),
				Implementation: gen.Shape.String(),
				Reason:         "contract and implementation arities differ",
			}
		}
		r.ReducedContract = Contract{}
		return nil
	}

	if r.Contract.IsOpen() {
		if r.ReducedContract.IsZero() {
			return &ConfigurationError{
				Contract:       r.Contract.String(),
				Implementation: r.Implementation(),
				Reason:         "non-generic implementation bound to an open contract without a reduced contract",
			}
		}
		if r.ReducedContract.IsOpen() {
			return &ConfigurationError{Contract: r.ReducedContract.String(), Reason: "reduced contract must be closed"}
		}
	}

	target := r.matchContract()
	switch s := r.Strategy.(type) {
	case *TypeStrategy:
		if s.Implementation == nil {
			return &ConfigurationError{Contract: target.String(), Reason: "type strategy has no implementation type"}
		}
		if target.Type() != nil && !s.Implementation.AssignableTo(target.Type()) {
			return &ConfigurationError{
				Contract:       target.String(),
				Implementation: typeName(s.Implementation),
				Reason:         "implementation is not assignable to the contract",
			}
		}
		rc, err := analyzeRecipe(s.Implementation, s.Constructors)
		if err != nil {
			return err
		}
		r.recipe = rc
	case *InstanceStrategy:
		if isNil(s.Value) {
			return &NilServiceError{Type: target.String()}
		}
		if target.Type() != nil && !reflect.TypeOf(s.Value).AssignableTo(target.Type()) {
			return &ConfigurationError{
				Contract:       target.String(),
				Implementation: s.implementation(),
				Reason:         "instance is not assignable to the contract",
			}
		}
		r.Lifetime = Singleton
	case *FactoryStrategy:
		if s.Fn == nil {
			return &ConfigurationError{Contract: target.String(), Reason: "factory strategy has no function"}
		}
	default:
		return &ConfigurationError{Contract: target.String(), Reason: fmt.Sprintf("unsupported strategy %T", r.Strategy)}
	}
	return nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
