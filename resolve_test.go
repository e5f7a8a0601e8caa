package compose_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"pgregory.net/rapid"

	"github.com/centraunit/compose"
	"github.com/centraunit/compose/mock"
)

type ResolveTestSuite struct {
	suite.Suite
	ctx context.Context
}

func (s *ResolveTestSuite) SetupTest() {
	s.ctx = context.Background()
}

func labelled(label string) *compose.InstanceStrategy {
	return compose.Instance(&mock.MockDB{Label: label})
}

func labelOf(db mock.Database) string {
	return db.(*mock.MockDB).Label
}

func (s *ResolveTestSuite) TestOverridePriority() {
	catalog := compose.NewCatalog()
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("default")))
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("override"), compose.WithOverridePriority(-1), compose.AsOverride()))
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("later")))

	for _, strategy := range []compose.AmbiguityStrategy{compose.UseLast, compose.UseFirst, compose.ForcePriority} {
		c, err := compose.Build(catalog, compose.WithAmbiguityStrategy(strategy))
		s.Require().NoError(err)
		db, err := compose.Resolve[mock.Database](s.ctx, c)
		s.NoError(err, strategy.String())
		s.Equal("override", labelOf(db), strategy.String())
	}
}

func (s *ResolveTestSuite) TestAmbiguityStrategies() {
	catalog := compose.NewCatalog()
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("a")))
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("b")))

	s.Run("UseLast", func() {
		c, err := compose.Build(catalog)
		s.Require().NoError(err)
		s.Equal("b", labelOf(compose.MustResolve[mock.Database](s.ctx, c)))
	})

	s.Run("UseFirst", func() {
		c, err := compose.Build(catalog, compose.WithAmbiguityStrategy(compose.UseFirst))
		s.Require().NoError(err)
		s.Equal("a", labelOf(compose.MustResolve[mock.Database](s.ctx, c)))
	})

	s.Run("ForcePriority", func() {
		c, err := compose.Build(catalog, compose.WithAmbiguityStrategy(compose.ForcePriority))
		s.Require().NoError(err)
		_, err = compose.Resolve[mock.Database](s.ctx, c)
		var ambiguous *compose.AmbiguousServiceError
		s.Require().True(errors.As(err, &ambiguous))
		s.Len(ambiguous.Candidates, 2)
		s.Equal([]uint64{1, 2}, []uint64{ambiguous.Candidates[0].Order, ambiguous.Candidates[1].Order})
	})
}

func (s *ResolveTestSuite) TestNamedLookup() {
	catalog := compose.NewCatalog()
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("primary-old"), compose.WithName("primary")))
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("replica"), compose.WithName("replica")))
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("primary-new"), compose.WithName("primary")))
	c, err := compose.Build(catalog)
	s.Require().NoError(err)

	s.Equal("primary-new", labelOf(compose.MustResolve[mock.Database](s.ctx, c, "primary")))
	s.Equal("replica", labelOf(compose.MustResolve[mock.Database](s.ctx, c, "replica")))
	s.Equal("primary-new", labelOf(compose.MustResolve[mock.Database](s.ctx, c)), "unnamed lookups see every registration")
}

func (s *ResolveTestSuite) TestResolveOnMultiInstanceContract() {
	catalog := compose.NewCatalog()
	s.NoError(catalog.AllowMultiple(compose.ContractOf[mock.Database]()))
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("late"), compose.WithProcessingPriority(10)))
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("early"), compose.WithProcessingPriority(1)))
	c, err := compose.Build(catalog, compose.WithAmbiguityStrategy(compose.ForcePriority))
	s.Require().NoError(err)

	s.Equal("early", labelOf(compose.MustResolve[mock.Database](s.ctx, c)))
	s.True(catalog.IsMultiple(compose.ContractOf[mock.Database]()))
}

func (s *ResolveTestSuite) TestResolveAllOrdering() {
	catalog := compose.NewCatalog()
	s.NoError(catalog.AllowMultiple(compose.ContractOf[mock.Database]()))
	for i, p := range []int{10, 20, 5, 15, 5} {
		s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled(fmt.Sprintf("%d@%d", p, i)), compose.WithProcessingPriority(p)))
	}
	c, err := compose.Build(catalog)
	s.Require().NoError(err)

	dbs, err := compose.ResolveAll[mock.Database](s.ctx, c)
	s.Require().NoError(err)
	got := make([]string, len(dbs))
	for i, db := range dbs {
		got[i] = labelOf(db)
	}
	want := []string{"5@2", "5@4", "10@0", "15@3", "20@1"}
	s.Empty(cmp.Diff(want, got))
}

func (s *ResolveTestSuite) TestSequenceIsLazy() {
	counter := &mock.Counter{}
	catalog := compose.NewCatalog()
	s.NoError(catalog.AllowMultiple(compose.ContractOf[mock.Database]()))
	for i := 0; i < 3; i++ {
		s.NoError(catalog.Add(compose.ContractOf[mock.Database](), compose.Factory(func(context.Context, compose.Resolver) (any, error) {
			counter.Inc()
			return &mock.MockDB{}, nil
		})))
	}
	c, err := compose.Build(catalog)
	s.Require().NoError(err)

	seq, err := c.ResolveAll(s.ctx, compose.ContractOf[mock.Database]())
	s.Require().NoError(err)
	s.Equal(3, seq.Len())
	s.EqualValues(0, counter.Load())

	for _, err := range seq.All(s.ctx) {
		s.NoError(err)
		break
	}
	s.EqualValues(1, counter.Load())

	vals, err := seq.Materialize(s.ctx)
	s.NoError(err)
	s.Len(vals, 3)
	s.EqualValues(3, counter.Load(), "reached elements are not rebuilt")
}

func (s *ResolveTestSuite) TestResolveAllIdentityAcrossCalls() {
	contract := compose.ContractOf[mock.Database]()
	catalog := compose.NewCatalog()
	s.NoError(catalog.AllowMultiple(contract))
	for _, lifetime := range []compose.RegistrationOption{compose.AsSingleton(), compose.AsScoped(), compose.AsTransient()} {
		s.NoError(catalog.Add(contract, compose.Factory(func(context.Context, compose.Resolver) (any, error) {
			return &mock.MockDB{}, nil
		}), lifetime))
	}
	root, err := compose.Build(catalog)
	s.Require().NoError(err)
	defer root.Close()
	child, err := root.CreateScope()
	s.Require().NoError(err)

	all := func(c *compose.Container) []mock.Database {
		vals, err := compose.ResolveAll[mock.Database](s.ctx, c)
		s.Require().NoError(err)
		s.Require().Len(vals, 3)
		return vals
	}
	first, second := all(root), all(root)
	s.Same(first[0], second[0], "singleton")
	s.Same(first[1], second[1], "scoped")
	s.NotSame(first[2], second[2], "transient")

	inChild, againInChild := all(child), all(child)
	s.Same(first[0], inChild[0], "singletons are shared with child scopes")
	s.NotSame(first[1], inChild[1], "each scope has its own scoped values")
	s.Same(inChild[1], againInChild[1])
	s.NotSame(inChild[2], againInChild[2])
}

func (s *ResolveTestSuite) TestSequenceRetriesAfterCancellation() {
	release := make(chan struct{})
	catalog := compose.NewCatalog()
	s.NoError(catalog.AllowMultiple(compose.ContractOf[mock.Database]()))
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), compose.Factory(func(context.Context, compose.Resolver) (any, error) {
		<-release
		return &mock.MockDB{Label: "slow"}, nil
	}), compose.AsSingleton()))
	c, err := compose.Build(catalog)
	s.Require().NoError(err)
	defer c.Close()

	seq, err := c.ResolveAll(s.ctx, compose.ContractOf[mock.Database]())
	s.Require().NoError(err)

	ctx, cancel := context.WithTimeout(s.ctx, 10*time.Millisecond)
	defer cancel()
	_, err = seq.Materialize(ctx)
	s.ErrorIs(err, context.DeadlineExceeded)

	close(release)
	vals, err := seq.Materialize(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(vals, 1)
	s.Equal("slow", labelOf(vals[0].(mock.Database)))
}

func (s *ResolveTestSuite) TestInspect() {
	catalog := compose.NewCatalog()
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("a")))
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("b"), compose.WithOverridePriority(-5)))
	s.NoError(catalog.Add(compose.ContractOf[mock.Database](), labelled("c")))
	c, err := compose.Build(catalog)
	s.Require().NoError(err)

	infos, err := c.Inspect(compose.ContractOf[mock.Database]())
	s.Require().NoError(err)
	s.Require().Len(infos, 3)
	winners := slices.IndexFunc(infos, func(i compose.RegistrationInfo) bool { return i.Winner })
	s.Equal(1, winners)
	s.Equal(-5, infos[1].OverridePriority)
	s.Len(catalog.Registrations(), 3)
}

func TestResolveSuite(t *testing.T) {
	suite.Run(t, new(ResolveTestSuite))
}

type generated struct {
	override   int
	processing int
	name       string
}

func genRegistrations(t *rapid.T) []generated {
	return rapid.SliceOfN(rapid.Custom(func(t *rapid.T) generated {
		return generated{
			override:   rapid.IntRange(-2, 2).Draw(t, "override"),
			processing: rapid.IntRange(0, 3).Draw(t, "processing"),
			name:       rapid.SampledFrom([]string{"", "x", "y"}).Draw(t, "name"),
		}
	}), 1, 12).Draw(t, "registrations")
}

func catalogFor(t require.TestingT, regs []generated, multiple bool) *compose.Catalog {
	catalog := compose.NewCatalog()
	if multiple {
		require.NoError(t, catalog.AllowMultiple(compose.ContractOf[mock.Database]()))
	}
	for i, r := range regs {
		require.NoError(t, catalog.Add(compose.ContractOf[mock.Database](), labelled(strconv.Itoa(i)),
			compose.WithOverridePriority(r.override),
			compose.WithProcessingPriority(r.processing),
			compose.WithName(r.name),
		))
	}
	return catalog
}

// expectedWinner models single-instance resolution over the registrations
// carrying name, or all of them for an empty name.
func expectedWinner(regs []generated, name string, strategy compose.AmbiguityStrategy) (int, int) {
	var idx []int
	for i, r := range regs {
		if name == "" || r.name == name {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return -1, 0
	}
	lowest := regs[idx[0]].override
	for _, i := range idx {
		lowest = min(lowest, regs[i].override)
	}
	var tied []int
	for _, i := range idx {
		if regs[i].override == lowest {
			tied = append(tied, i)
		}
	}
	switch {
	case len(tied) == 1:
		return tied[0], 1
	case strategy == compose.UseFirst:
		return tied[0], len(tied)
	case strategy == compose.ForcePriority:
		return -1, len(tied)
	}
	return tied[len(tied)-1], len(tied)
}

func TestWinnerSelectionProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		regs := genRegistrations(t)
		strategy := rapid.SampledFrom([]compose.AmbiguityStrategy{compose.UseLast, compose.UseFirst, compose.ForcePriority}).Draw(t, "strategy")
		name := rapid.SampledFrom([]string{"", "x", "y"}).Draw(t, "lookup")

		c, err := compose.Build(catalogFor(t, regs, false), compose.WithAmbiguityStrategy(strategy))
		require.NoError(t, err)

		want, tied := expectedWinner(regs, name, strategy)
		db, err := compose.Resolve[mock.Database](context.Background(), c, name)
		switch {
		case want >= 0:
			require.NoError(t, err)
			assert.Equal(t, strconv.Itoa(want), labelOf(db))
		case tied > 1:
			var ambiguous *compose.AmbiguousServiceError
			require.ErrorAs(t, err, &ambiguous)
			assert.Len(t, ambiguous.Candidates, tied)
		default:
			var missing *compose.NoServiceRegisteredError
			require.ErrorAs(t, err, &missing)
		}
	})
}

func TestResolveAllOrderingProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		regs := genRegistrations(t)
		c, err := compose.Build(catalogFor(t, regs, true))
		require.NoError(t, err)

		dbs, err := compose.ResolveAll[mock.Database](context.Background(), c)
		require.NoError(t, err)
		require.Len(t, dbs, len(regs))

		want := make([]int, len(regs))
		for i := range want {
			want[i] = i
		}
		slices.SortStableFunc(want, func(a, b int) int { return regs[a].processing - regs[b].processing })

		got := make([]int, len(dbs))
		for i, db := range dbs {
			got[i], _ = strconv.Atoi(labelOf(db))
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("ResolveAll order mismatch (-want +got):\n%s", diff)
		}
	})
}
