package compose

import (
	"context"
	"fmt"
	"reflect"
)

// Strategy is the way a registration produces its value. The variants are
// *TypeStrategy, *GenericTypeStrategy, *InstanceStrategy and *FactoryStrategy.
type Strategy interface {
	implementation() string
}

// TypeStrategy builds a closed implementation type through its constructor recipe.
type TypeStrategy struct {
	Implementation reflect.Type
	Constructors   []Constructor
}

// TypeOf returns a type strategy for implementation T.
func TypeOf[T any](ctors ...Constructor) *TypeStrategy {
	return &TypeStrategy{Implementation: reflect.TypeFor[T](), Constructors: ctors}
}

// TypeFor returns a type strategy for implementation t, as produced by type discovery.
func TypeFor(t reflect.Type, ctors ...Constructor) *TypeStrategy {
	return &TypeStrategy{Implementation: t, Constructors: ctors}
}

func (s *TypeStrategy) implementation() string { return typeName(s.Implementation) }

// CloseFunc returns the closed type strategy of a generic implementation for
// the given type arguments.
type CloseFunc func(args ...reflect.Type) (*TypeStrategy, error)

// GenericTypeStrategy is an open generic implementation. It is closed with the
// type arguments requested for its open contract.
type GenericTypeStrategy struct {
	Shape *Shape
	Close CloseFunc
}

// GenericType returns an open type strategy of the given shape.
func GenericType(shape *Shape, closeFn CloseFunc) *GenericTypeStrategy {
	return &GenericTypeStrategy{Shape: shape, Close: closeFn}
}

func (s *GenericTypeStrategy) implementation() string { return s.Shape.String() }

// InstanceStrategy returns a prebuilt value. It is always shared and never
// constructed nor disposed by a container.
type InstanceStrategy struct {
	Value any
}

// Instance returns an instance strategy for v.
func Instance(v any) *InstanceStrategy {
	return &InstanceStrategy{Value: v}
}

func (s *InstanceStrategy) implementation() string { return fmt.Sprintf("%T", s.Value) }

// FactoryFunc creates a value, possibly resolving further contracts through r.
type FactoryFunc func(ctx context.Context, r Resolver) (any, error)

// FactoryStrategy delegates construction to a function.
type FactoryStrategy struct {
	Fn FactoryFunc
}

// Factory returns a factory strategy for fn.
func Factory(fn FactoryFunc) *FactoryStrategy {
	return &FactoryStrategy{Fn: fn}
}

func (s *FactoryStrategy) implementation() string { return "factory" }

// Registration binds a contract to a strategy. The catalog assigns Order on insertion.
type Registration struct {
	Contract Contract
	// ReducedContract is the closed contract a non-generic implementation
	// registered under an open contract is matched by instead.
	ReducedContract    Contract
	Strategy           Strategy
	Lifetime           Lifetime
	ProcessingPriority int
	OverridePriority   int
	IsOverride         bool
	Name               string
	Metadata           Metadata

	order  uint64
	recipe *recipe
}

// Order returns the catalog insertion sequence number.
func (r *Registration) Order() uint64 { return r.order }

// Implementation describes what the strategy produces.
func (r *Registration) Implementation() string {
	if r.Strategy == nil {
		return "<none>"
	}
	return r.Strategy.implementation()
}

// matchContract is the contract the registration is indexed under.
func (r *Registration) matchContract() Contract {
	if !r.ReducedContract.IsZero() {
		return r.ReducedContract
	}
	return r.Contract
}

func (r *Registration) String() string {
	s := fmt.Sprintf("%s -> %s (%s, override %d, order %d)",
		r.matchContract(), r.Implementation(), r.Lifetime, r.OverridePriority, r.order)
	if r.Name != "" {
		s += fmt.Sprintf(" named %q", r.Name)
	}
	return s
}

// exportMetadata is the registration metadata merged with the well known keys.
func (r *Registration) exportMetadata() Metadata {
	md := r.Metadata.Clone()
	md[MetadataProcessingPriority] = r.ProcessingPriority
	md[MetadataOverridePriority] = r.OverridePriority
	md[MetadataIsOverride] = r.IsOverride
	md[MetadataImplementation] = r.Implementation()
	md[MetadataLifetime] = r.Lifetime
	if r.Name != "" {
		md[MetadataServiceName] = r.Name
	}
	return md
}

// RegistrationOption configures a registration created with Catalog.Add.
type RegistrationOption func(*Registration)

// AsSingleton shares the value across the whole context tree.
func AsSingleton() RegistrationOption {
	return func(r *Registration) { r.Lifetime = Singleton }
}

// AsScoped shares the value within one composition context.
func AsScoped() RegistrationOption {
	return func(r *Registration) { r.Lifetime = Scoped }
}

// AsTransient builds a new value on every resolution (default).
func AsTransient() RegistrationOption {
	return func(r *Registration) { r.Lifetime = Transient }
}

// WithName sets the name used for named lookups.
func WithName(name string) RegistrationOption {
	return func(r *Registration) { r.Name = name }
}

// WithProcessingPriority orders multi-instance resolution; lower comes first.
func WithProcessingPriority(p int) RegistrationOption {
	return func(r *Registration) { r.ProcessingPriority = p }
}

// WithOverridePriority settles competing single-instance registrations; lower wins.
func WithOverridePriority(p int) RegistrationOption {
	return func(r *Registration) { r.OverridePriority = p }
}

// AsOverride flags the registration as an intentional replacement.
func AsOverride() RegistrationOption {
	return func(r *Registration) { r.IsOverride = true }
}

// WithMetadata adds a metadata entry.
func WithMetadata(key string, value any) RegistrationOption {
	return func(r *Registration) {
		if r.Metadata == nil {
			r.Metadata = Metadata{}
		}
		r.Metadata[key] = value
	}
}

// WithReducedContract declares the closed contract a non-generic
// implementation satisfies when registered under an open contract.
func WithReducedContract(c Contract) RegistrationOption {
	return func(r *Registration) { r.ReducedContract = c }
}
