package compose

import (
	"reflect"
	"strconv"
	"strings"
)

// Shape identifies an open generic contract or implementation by name and
// number of type arguments. Shapes are compared by identity.
type Shape struct {
	name  string
	arity int
}

// NewShape creates an open generic shape.
func NewShape(name string, arity int) *Shape {
	if arity < 1 {
		arity = 1
	}
	return &Shape{name: name, arity: arity}
}

func (s *Shape) Name() string { return s.name }
func (s *Shape) Arity() int   { return s.arity }

func (s *Shape) String() string {
	return s.name + "<" + strings.Repeat(",", s.arity-1) + ">"
}

// Open returns the open contract for the shape.
func (s *Shape) Open() Contract {
	return Contract{shape: s}
}

// Close returns the contract obtained by substituting args into the shape.
func (s *Shape) Close(args ...reflect.Type) Contract {
	return Contract{shape: s, args: append([]reflect.Type(nil), args...)}
}

// Contract is the identity registrations are grouped under. It is either a
// closed Go type, an open shape, or a shape closed over type arguments.
type Contract struct {
	typ   reflect.Type
	shape *Shape
	args  []reflect.Type
}

// ContractOf returns the closed contract for T. Interface types are the
// usual choice.
func ContractOf[T any]() Contract {
	return Contract{typ: reflect.TypeFor[T]()}
}

// ContractFor returns the closed contract for t.
func ContractFor(t reflect.Type) Contract {
	return Contract{typ: t}
}

// IsZero reports whether the contract is unset.
func (c Contract) IsZero() bool {
	return c.typ == nil && c.shape == nil
}

// IsOpen reports whether the contract is an open generic shape.
func (c Contract) IsOpen() bool {
	return c.shape != nil && c.args == nil
}

// IsGeneric reports whether the contract derives from a shape.
func (c Contract) IsGeneric() bool {
	return c.shape != nil
}

// Type returns the Go type of a closed, non-generic contract.
func (c Contract) Type() reflect.Type { return c.typ }

// Shape returns the shape of a generic contract.
func (c Contract) Shape() *Shape { return c.shape }

// Args returns the closing type arguments of a closed generic contract.
func (c Contract) Args() []reflect.Type {
	return append([]reflect.Type(nil), c.args...)
}

// Open returns the open contract a closed generic contract was built from.
func (c Contract) Open() Contract {
	if c.shape == nil {
		return c
	}
	return Contract{shape: c.shape}
}

func (c Contract) String() string {
	switch {
	case c.typ != nil:
		return typeName(c.typ)
	case c.shape == nil:
		return "<none>"
	case c.args == nil:
		return c.shape.String()
	}
	names := make([]string, len(c.args))
	for i, a := range c.args {
		names[i] = typeName(a)
	}
	return c.shape.name + "<" + strings.Join(names, ",") + ">"
}

// Equal reports whether both contracts denote the same identity.
func (c Contract) Equal(other Contract) bool {
	return c.key() == other.key()
}

type contractKey struct {
	typ   reflect.Type
	shape *Shape
	args  string
}

func (c Contract) key() contractKey {
	k := contractKey{typ: c.typ, shape: c.shape}
	if c.args != nil {
		var b strings.Builder
		b.WriteString(strconv.Itoa(len(c.args)))
		for _, a := range c.args {
			b.WriteByte('|')
			b.WriteString(qualifiedName(a))
		}
		k.args = b.String()
	}
	return k
}

// typeName returns the short, readable name of t.
func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// qualifiedName includes the package path of named types so that equally
// named types from different packages never collide.
func qualifiedName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	switch t.Kind() {
	case reflect.Pointer:
		return "*" + qualifiedName(t.Elem())
	case reflect.Slice:
		return "[]" + qualifiedName(t.Elem())
	case reflect.Map:
		return "map[" + qualifiedName(t.Key()) + "]" + qualifiedName(t.Elem())
	}
	return t.String()
}
