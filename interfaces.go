package compose

import (
	"context"
	"reflect"
)

// Lifetime defines how long a constructed service value is shared.
type Lifetime string

// Available service lifetimes
const (
	// Transient creates a new instance for each resolution
	Transient Lifetime = "transient"
	// Scoped shares an instance within a single composition context
	Scoped Lifetime = "scoped"
	// Singleton shares a single instance across the whole context tree
	Singleton Lifetime = "singleton"
)

func (l Lifetime) String() string {
	return string(l)
}

func (l Lifetime) valid() bool {
	switch l {
	case Transient, Scoped, Singleton:
		return true
	}
	return false
}

// Initializer is implemented by services that need to run setup code right
// after construction. It is called once per constructed value.
type Initializer interface {
	Initialize(ctx context.Context) error
}

// Disposable is implemented by services holding resources that must be
// released when the owning composition context is disposed.
// Values implementing io.Closer are released the same way.
type Disposable interface {
	Dispose(ctx context.Context) error
}

// Resolver is the view of a composition context handed to construction code.
// Factories and constructor parameters of this type resolve further contracts
// through it, so scoped and singleton semantics apply transitively.
type Resolver interface {
	// Resolve returns the single winning value for contract.
	Resolve(ctx context.Context, contract Contract, name ...string) (any, error)

	// ResolveAll returns every registration of contract in processing order.
	ResolveAll(ctx context.Context, contract Contract) (*Sequence, error)

	// ResolveExportFactories returns metadata-aware lazy handles for contract.
	ResolveExportFactories(ctx context.Context, contract Contract) ([]ExportFactory, error)

	// Container returns the composition context this resolver belongs to.
	Container() *Container
}

// Registrar emits registrations for a list of candidate implementation types.
// It is invoked once per catalog assembly.
type Registrar interface {
	Apply(candidates []reflect.Type, bc *BuildContext) error
}

// RegistrarFunc adapts a plain function to the Registrar interface.
type RegistrarFunc func(candidates []reflect.Type, bc *BuildContext) error

// Apply calls f.
func (f RegistrarFunc) Apply(candidates []reflect.Type, bc *BuildContext) error {
	return f(candidates, bc)
}

// Prioritized may be implemented by discovered implementation types to declare
// their processing priority to convention registrars.
type Prioritized interface {
	ProcessingPriority() int
}

// Overriding may be implemented by discovered implementation types to declare
// an override priority to convention registrars.
type Overriding interface {
	OverridePriority() int
}
