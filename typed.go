package compose

import (
	"context"
	"reflect"
)

// Resolve resolves the contract of T and returns the value as T.
func Resolve[T any](ctx context.Context, r Resolver, name ...string) (T, error) {
	return ResolveContract[T](ctx, r, ContractOf[T](), name...)
}

// ResolveContract resolves contract and returns the value as T. It serves
// closed generic contracts, whose values are typed by the caller.
func ResolveContract[T any](ctx context.Context, r Resolver, contract Contract, name ...string) (T, error) {
	var zero T
	v, err := r.Resolve(ctx, contract, name...)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, &TypeMismatchError{Expected: ContractOf[T]().String(), Got: typeOfValue(v)}
	}
	return t, nil
}

// MustResolve is like Resolve but panics on failure.
func MustResolve[T any](ctx context.Context, r Resolver, name ...string) T {
	v, err := Resolve[T](ctx, r, name...)
	if err != nil {
		panic(err)
	}
	return v
}

// ResolveAll resolves every registration of T's contract, in processing order.
func ResolveAll[T any](ctx context.Context, r Resolver) ([]T, error) {
	seq, err := r.ResolveAll(ctx, ContractOf[T]())
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, seq.Len())
	for v, err := range seq.All(ctx) {
		if err != nil {
			return nil, err
		}
		t, ok := v.(T)
		if !ok {
			return nil, &TypeMismatchError{Expected: ContractOf[T]().String(), Got: typeOfValue(v)}
		}
		out = append(out, t)
	}
	return out, nil
}

// ExportFactories returns the typed export factories of T's contract.
func ExportFactories[T any](ctx context.Context, r Resolver) ([]Export[T], error) {
	fs, err := r.ResolveExportFactories(ctx, ContractOf[T]())
	if err != nil {
		return nil, err
	}
	out := make([]Export[T], len(fs))
	for i, f := range fs {
		out[i] = Export[T]{ExportFactory: f}
	}
	return out, nil
}

func typeOfValue(v any) string {
	if v == nil {
		return "<nil>"
	}
	return typeName(reflect.TypeOf(v))
}
