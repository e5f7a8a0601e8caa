package compose

import (
	"context"
	"fmt"
	"reflect"
)

var (
	contextType  = reflect.TypeFor[context.Context]()
	resolverType = reflect.TypeFor[Resolver]()
	errorType    = reflect.TypeFor[error]()
)

// Constructor is a candidate construction function for an implementation
// type: func(deps...) T or func(deps...) (T, error).
type Constructor struct {
	fn    any
	entry bool
	names []string
}

// Ctor declares a constructor. paramNames optionally name the lookup used for
// each parameter, by position; empty strings mean an unnamed lookup.
func Ctor(fn any, paramNames ...string) Constructor {
	return Constructor{fn: fn, names: paramNames}
}

// EntryPoint declares the constructor that composition must use when several
// are available.
func EntryPoint(fn any, paramNames ...string) Constructor {
	return Constructor{fn: fn, entry: true, names: paramNames}
}

type paramKind int

const (
	paramService paramKind = iota
	paramContext
	paramResolver
)

// param is one step of a recipe: the contract to resolve for a constructor
// parameter and the optional name of the lookup.
type param struct {
	typ      reflect.Type
	contract Contract
	name     string
	kind     paramKind
}

// recipe is the construction plan for a closed implementation type. It is
// computed once, when the registration enters the catalog.
type recipe struct {
	impl   reflect.Type
	fn     reflect.Value
	params []param
	hasErr bool
}

// analyzeRecipe selects the constructor for impl: the entry point if one is
// marked, otherwise the parameterless one, otherwise a sole constructor. With
// no constructors the value is built from the zero value of impl.
func analyzeRecipe(impl reflect.Type, ctors []Constructor) (*recipe, error) {
	if len(ctors) == 0 {
		return zeroRecipe(impl)
	}

	recipes := make([]*recipe, 0, len(ctors))
	var entry *recipe
	for _, c := range ctors {
		r, err := analyzeFunc(impl, c)
		if err != nil {
			return nil, err
		}
		if c.entry {
			if entry != nil {
				return nil, &ConfigurationError{
					Implementation: typeName(impl),
					Reason:         "more than one constructor is marked as entry point",
				}
			}
			entry = r
		}
		recipes = append(recipes, r)
	}
	if entry != nil {
		return entry, nil
	}
	for _, r := range recipes {
		if len(r.params) == 0 {
			return r, nil
		}
	}
	if len(recipes) == 1 {
		return recipes[0], nil
	}
	return nil, &ConfigurationError{
		Implementation: typeName(impl),
		Reason:         "several constructors and none is parameterless or marked as entry point",
	}
}

func zeroRecipe(impl reflect.Type) (*recipe, error) {
	switch {
	case impl.Kind() == reflect.Pointer && impl.Elem().Kind() == reflect.Struct:
	case impl.Kind() == reflect.Struct:
	default:
		return nil, &ConfigurationError{
			Implementation: typeName(impl),
			Reason:         "no constructor given and the type has no usable zero value",
		}
	}
	return &recipe{impl: impl}, nil
}

func analyzeFunc(impl reflect.Type, c Constructor) (*recipe, error) {
	fv := reflect.ValueOf(c.fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, &ConfigurationError{
			Implementation: typeName(impl),
			Reason:         fmt.Sprintf("constructor must be a function, got %T", c.fn),
		}
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, &ConfigurationError{Implementation: typeName(impl), Reason: "variadic constructors are not supported"}
	}
	switch {
	case ft.NumOut() == 1:
	case ft.NumOut() == 2 && ft.Out(1) == errorType:
	default:
		return nil, &ConfigurationError{
			Implementation: typeName(impl),
			Reason:         "constructor must return the implementation and an optional error",
		}
	}
	if !ft.Out(0).AssignableTo(impl) {
		return nil, &ConfigurationError{
			Implementation: typeName(impl),
			Reason:         fmt.Sprintf("constructor returns %s", typeName(ft.Out(0))),
		}
	}

	r := &recipe{impl: impl, fn: fv, hasErr: ft.NumOut() == 2, params: make([]param, ft.NumIn())}
	for i := 0; i < ft.NumIn(); i++ {
		in := ft.In(i)
		p := param{typ: in, contract: ContractFor(in)}
		if i < len(c.names) {
			p.name = c.names[i]
		}
		switch in {
		case contextType:
			p.kind = paramContext
		case resolverType:
			p.kind = paramResolver
		}
		r.params[i] = p
	}
	return r, nil
}

// build runs the recipe. arg supplies the value for each service parameter.
func (r *recipe) build(ctx context.Context, res Resolver, arg func(context.Context, param) (reflect.Value, error)) (any, error) {
	if !r.fn.IsValid() {
		if r.impl.Kind() == reflect.Pointer {
			return reflect.New(r.impl.Elem()).Interface(), nil
		}
		return reflect.Zero(r.impl).Interface(), nil
	}

	args := make([]reflect.Value, len(r.params))
	for i, p := range r.params {
		switch p.kind {
		case paramContext:
			args[i] = reflect.ValueOf(&ctx).Elem()
		case paramResolver:
			args[i] = reflect.ValueOf(&res).Elem()
		default:
			v, err := arg(ctx, p)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
	}

	out := r.fn.Call(args)
	if r.hasErr && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

// dependencies lists the service parameters of the recipe.
func (r *recipe) dependencies() []param {
	deps := make([]param, 0, len(r.params))
	for _, p := range r.params {
		if p.kind == paramService {
			deps = append(deps, p)
		}
	}
	return deps
}

// valueFor converts a resolved value to the parameter type.
func valueFor(t reflect.Type, v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, &TypeMismatchError{Expected: typeName(t), Got: typeName(rv.Type())}
	}
	return rv, nil
}
