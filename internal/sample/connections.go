package sample

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/centraunit/compose"
)

// MetadataConnectionKind lists the kinds of connection a factory serves.
const MetadataConnectionKind = "connectionKind"

// ConnectionFactory opens connections of one kind.
type ConnectionFactory interface {
	Dialect() string
}

type SqlConnectionFactory struct{}

func (*SqlConnectionFactory) Dialect() string           { return "postgres" }
func (*SqlConnectionFactory) ConnectionKinds() []string { return []string{"sql", "relational"} }

type MongoConnectionFactory struct{}

func (*MongoConnectionFactory) Dialect() string           { return "mongodb" }
func (*MongoConnectionFactory) ConnectionKinds() []string { return []string{"nosql", "document"} }

type RedisConnectionFactory struct{}

func (*RedisConnectionFactory) Dialect() string           { return "redis" }
func (*RedisConnectionFactory) ConnectionKinds() []string { return []string{"nosql", "cache"} }
func (*RedisConnectionFactory) ProcessingPriority() int   { return 1 }

type kinded interface {
	ConnectionKinds() []string
}

func connectionCandidates() []reflect.Type {
	return []reflect.Type{
		reflect.TypeFor[*SqlConnectionFactory](),
		reflect.TypeFor[*MongoConnectionFactory](),
		reflect.TypeFor[*RedisConnectionFactory](),
	}
}

func connectionMetadata(t reflect.Type) compose.Metadata {
	if t.Kind() != reflect.Pointer {
		return nil
	}
	k, ok := reflect.New(t.Elem()).Interface().(kinded)
	if !ok {
		return nil
	}
	return compose.Metadata{MetadataConnectionKind: k.ConnectionKinds()}
}

// OpenConnection picks the first factory serving kind, in processing order,
// and only constructs that one.
func OpenConnection(ctx context.Context, r compose.Resolver, kind string) (ConnectionFactory, error) {
	exports, err := compose.ExportFactories[ConnectionFactory](ctx, r)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(exports, func(e compose.Export[ConnectionFactory]) bool {
		return e.Metadata().Contains(MetadataConnectionKind, kind)
	})
	if i < 0 {
		return nil, fmt.Errorf("no connection factory serves %q", kind)
	}
	return exports[i].Create(ctx)
}
