package sample

import (
	"fmt"
	"reflect"

	"github.com/centraunit/compose"
)

// GenericSvc describes values of its type argument.
type GenericSvc[T any] interface {
	Describe(v T) string
}

type GenericImpl[T any] struct{}

func (*GenericImpl[T]) Describe(v T) string {
	return fmt.Sprintf("%T(%v)", v, v)
}

var (
	// GenericSvcShape is the open contract GenericSvc<T>.
	GenericSvcShape  = compose.NewShape("GenericSvc", 1)
	genericImplShape = compose.NewShape("GenericImpl", 1)
)

// GenericSvcOf returns the closed contract GenericSvc<T>.
func GenericSvcOf[T any]() compose.Contract {
	return GenericSvcShape.Close(reflect.TypeFor[T]())
}

func closeGenericImpl(args ...reflect.Type) (*compose.TypeStrategy, error) {
	switch args[0] {
	case reflect.TypeFor[int]():
		return compose.TypeOf[*GenericImpl[int]](), nil
	case reflect.TypeFor[string]():
		return compose.TypeOf[*GenericImpl[string]](), nil
	}
	return nil, fmt.Errorf("GenericImpl is not available for %s", args[0])
}
