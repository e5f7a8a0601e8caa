package sample

import (
	"context"
	"reflect"

	"github.com/centraunit/compose"
)

// Operation is one step of the calculation pipeline, applied in processing
// priority order.
type Operation interface {
	Name() string
	Apply(v int) int
}

type AddOperation struct{}

func (*AddOperation) Name() string            { return "add" }
func (*AddOperation) Apply(v int) int         { return v + 3 }
func (*AddOperation) ProcessingPriority() int { return 10 }

type MultiplyOperation struct{}

func (*MultiplyOperation) Name() string            { return "multiply" }
func (*MultiplyOperation) Apply(v int) int         { return v * 2 }
func (*MultiplyOperation) ProcessingPriority() int { return 20 }

type NegateOperation struct{}

func (*NegateOperation) Name() string            { return "negate" }
func (*NegateOperation) Apply(v int) int         { return -v }
func (*NegateOperation) ProcessingPriority() int { return 5 }

type SquareOperation struct{}

func (*SquareOperation) Name() string            { return "square" }
func (*SquareOperation) Apply(v int) int         { return v * v }
func (*SquareOperation) ProcessingPriority() int { return 15 }

// Pipeline receives every Operation in order.
type Pipeline struct {
	Operations []Operation
}

func NewPipeline(ops []Operation) *Pipeline {
	return &Pipeline{Operations: ops}
}

func (p *Pipeline) Run(v int) int {
	for _, op := range p.Operations {
		v = op.Apply(v)
	}
	return v
}

// OperationNames resolves the operations and returns their names in order.
func OperationNames(ctx context.Context, r compose.Resolver) ([]string, error) {
	ops, err := compose.ResolveAll[Operation](ctx, r)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name()
	}
	return names, nil
}

func operationCandidates() []reflect.Type {
	return []reflect.Type{
		reflect.TypeFor[*AddOperation](),
		reflect.TypeFor[*MultiplyOperation](),
		reflect.TypeFor[*NegateOperation](),
		reflect.TypeFor[*SquareOperation](),
	}
}
