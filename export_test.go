package compose_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centraunit/compose"
	"github.com/centraunit/compose/mock"
)

func TestExportFactories(t *testing.T) {
	ctx := context.Background()
	counter := &mock.Counter{}
	catalog := compose.NewCatalog()
	require.NoError(t, catalog.AllowMultiple(compose.ContractOf[mock.Database]()))
	newDB := func(label string) compose.FactoryFunc {
		return func(context.Context, compose.Resolver) (any, error) {
			counter.Inc()
			return &mock.MockDB{Label: label}, nil
		}
	}
	require.NoError(t, catalog.Add(compose.ContractOf[mock.Database](), compose.Factory(newDB("sql")),
		compose.WithMetadata("connectionKind", "sql"), compose.WithProcessingPriority(2), compose.AsSingleton()))
	require.NoError(t, catalog.Add(compose.ContractOf[mock.Database](), compose.Factory(newDB("nosql")),
		compose.WithMetadata("connectionKind", []string{"nosql", "document"}), compose.WithProcessingPriority(1)))

	c, err := compose.Build(catalog)
	require.NoError(t, err)
	defer c.Close()

	exports, err := compose.ExportFactories[mock.Database](ctx, c)
	require.NoError(t, err)
	require.Len(t, exports, 2)
	assert.EqualValues(t, 0, counter.Load(), "reading metadata constructs nothing")

	md := exports[0].Metadata()
	assert.True(t, md.Contains("connectionKind", "document"))
	assert.Equal(t, 1, md.Int(compose.MetadataProcessingPriority))
	assert.Equal(t, compose.Transient, md[compose.MetadataLifetime])
	assert.Equal(t, false, md[compose.MetadataIsOverride])

	var sql compose.Export[mock.Database]
	for _, e := range exports {
		if e.Metadata().Contains("connectionKind", "sql") {
			sql = e
		}
	}
	a, err := sql.Create(ctx)
	require.NoError(t, err)
	b, err := sql.Create(ctx)
	require.NoError(t, err)
	assert.Same(t, a, b, "singleton exports share the instance")
	assert.Equal(t, "sql", labelOf(a))

	x, err := exports[0].Create(ctx)
	require.NoError(t, err)
	y, err := exports[0].Create(ctx)
	require.NoError(t, err)
	assert.NotSame(t, x, y, "transient exports build per call")
	assert.EqualValues(t, 3, counter.Load())

	md["connectionKind"] = "changed"
	assert.Equal(t, "document", exports[0].Metadata()["connectionKind"].([]string)[1], "metadata is copied")
}

func TestUnboundExportFactory(t *testing.T) {
	var f compose.ExportFactory
	_, err := f.Create(context.Background())
	var cfgErr *compose.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
