package compose

import "context"

// ExportFactory is a lazy handle on one registration of a contract. Its
// metadata is readable without constructing anything.
type ExportFactory struct {
	metadata Metadata
	create   func(context.Context) (any, error)
}

// Metadata returns a copy of the registration metadata, including the well
// known keys.
func (f ExportFactory) Metadata() Metadata {
	return f.metadata.Clone()
}

// Create produces the value following the registration's lifetime: shared
// lifetimes return the cached value, Transient builds a new one per call.
func (f ExportFactory) Create(ctx context.Context) (any, error) {
	if f.create == nil {
		return nil, &ConfigurationError{Reason: "export factory is not bound to a container"}
	}
	return f.create(ctx)
}

// Export is the typed view of an ExportFactory.
type Export[T any] struct {
	ExportFactory
}

// Create produces the value as T.
func (e Export[T]) Create(ctx context.Context) (T, error) {
	var zero T
	v, err := e.ExportFactory.Create(ctx)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: ContractOf[T]().String(), Got: typeOfValue(v)}
	}
	return t, nil
}
