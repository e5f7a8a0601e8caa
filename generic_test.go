package compose_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/centraunit/compose"
)

type user struct{ Name string }
type order struct{ ID int }

type Repository[T any] interface {
	Kind() string
}

type memoryRepo[T any] struct{}

func (*memoryRepo[T]) Kind() string { return "memory:" + reflect.TypeFor[T]().Name() }

type userRepo struct{}

func (*userRepo) Kind() string { return "users" }

var (
	repositoryShape = compose.NewShape("Repository", 1)
	memoryRepoShape = compose.NewShape("memoryRepo", 1)
)

func closeMemoryRepo(args ...reflect.Type) (*compose.TypeStrategy, error) {
	switch args[0] {
	case reflect.TypeFor[user]():
		return compose.TypeOf[*memoryRepo[user]](), nil
	case reflect.TypeFor[order]():
		return compose.TypeOf[*memoryRepo[order]](), nil
	}
	return nil, fmt.Errorf("no memory repository for %s", args[0])
}

type GenericTestSuite struct {
	suite.Suite
	ctx     context.Context
	catalog *compose.Catalog
}

func (s *GenericTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.catalog = compose.NewCatalog()
}

func repoOf[T any]() compose.Contract {
	return repositoryShape.Close(reflect.TypeFor[T]())
}

func (s *GenericTestSuite) TestClosesOpenImplementation() {
	s.NoError(s.catalog.Add(repositoryShape.Open(), compose.GenericType(memoryRepoShape, closeMemoryRepo), compose.AsSingleton()))
	c, err := compose.Build(s.catalog)
	s.Require().NoError(err)

	users, err := compose.ResolveContract[Repository[user]](s.ctx, c, repoOf[user]())
	s.Require().NoError(err)
	s.Equal("memory:user", users.Kind())

	orders, err := compose.ResolveContract[Repository[order]](s.ctx, c, repoOf[order]())
	s.Require().NoError(err)
	s.Equal("memory:order", orders.Kind())

	again, err := compose.ResolveContract[Repository[user]](s.ctx, c, repoOf[user]())
	s.Require().NoError(err)
	s.Same(users, again, "each closing is its own singleton")
}

func (s *GenericTestSuite) TestUnsupportedClosing() {
	s.NoError(s.catalog.Add(repositoryShape.Open(), compose.GenericType(memoryRepoShape, closeMemoryRepo)))
	c, err := compose.Build(s.catalog)
	s.Require().NoError(err)

	_, err = c.Resolve(s.ctx, repoOf[string]())
	var cfgErr *compose.ConfigurationError
	s.True(errors.As(err, &cfgErr))

	_, err = c.Resolve(s.ctx, repositoryShape.Close(reflect.TypeFor[user](), reflect.TypeFor[order]()))
	s.True(errors.As(err, &cfgErr), "arity mismatch")

	_, err = c.Resolve(s.ctx, repositoryShape.Open())
	s.True(errors.As(err, &cfgErr), "open contracts cannot be resolved")
}

func (s *GenericTestSuite) TestReducedContract() {
	err := s.catalog.Add(repositoryShape.Open(), compose.TypeOf[*userRepo]())
	var cfgErr *compose.ConfigurationError
	s.Require().True(errors.As(err, &cfgErr), "a non-generic implementation needs a reduced contract")

	s.NoError(s.catalog.Add(repositoryShape.Open(), compose.GenericType(memoryRepoShape, closeMemoryRepo)))
	s.NoError(s.catalog.Add(repositoryShape.Open(), compose.TypeOf[*userRepo](), compose.WithReducedContract(repoOf[user]())))
	c, err := compose.Build(s.catalog)
	s.Require().NoError(err)

	users, err := compose.ResolveContract[Repository[user]](s.ctx, c, repoOf[user]())
	s.Require().NoError(err)
	s.Equal("users", users.Kind(), "the later registration wins the tie")

	orders, err := compose.ResolveContract[Repository[order]](s.ctx, c, repoOf[order]())
	s.Require().NoError(err)
	s.Equal("memory:order", orders.Kind())
}

func (s *GenericTestSuite) TestStructuralErrors() {
	var cfgErr *compose.ConfigurationError

	err := s.catalog.Add(repoOf[user](), compose.GenericType(memoryRepoShape, closeMemoryRepo))
	s.True(errors.As(err, &cfgErr), "generic implementation on a closed contract")

	err = s.catalog.Add(repositoryShape.Open(), compose.GenericType(compose.NewShape("pair", 2), closeMemoryRepo))
	s.True(errors.As(err, &cfgErr), "arity mismatch")
}

func (s *GenericTestSuite) TestMultipleClosings() {
	s.NoError(s.catalog.AllowMultiple(repositoryShape.Open()))
	s.NoError(s.catalog.Add(repositoryShape.Open(), compose.GenericType(memoryRepoShape, closeMemoryRepo), compose.WithProcessingPriority(2)))
	s.NoError(s.catalog.Add(repositoryShape.Open(), compose.TypeOf[*userRepo](),
		compose.WithReducedContract(repoOf[user]()), compose.WithProcessingPriority(1)))
	c, err := compose.Build(s.catalog)
	s.Require().NoError(err)

	seq, err := c.ResolveAll(s.ctx, repoOf[user]())
	s.Require().NoError(err)
	vals, err := seq.Materialize(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(vals, 2)
	s.Equal("users", vals[0].(Repository[user]).Kind())
	s.Equal("memory:user", vals[1].(Repository[user]).Kind())
}

func TestGenericSuite(t *testing.T) {
	suite.Run(t, new(GenericTestSuite))
}
